// Package policy decides which candidate files a stager accepts.
//
// A Policy is an immutable size limit plus a MIME allowlist. Evaluate runs a
// whole capture batch through it and returns every file that passed along
// with a single human-readable reason: the last rejection in the batch.
//
//	p, err := policy.New(policy.Policy{
//	    MaxSizeBytes:   5 << 20,
//	    AcceptPatterns: []string{"image/*", "application/pdf"},
//	    AllowMultiple:  true,
//	})
//	if err != nil {
//	    return err
//	}
//
//	v := policy.Evaluate(files, p)
//	if v.Reason != "" {
//	    showError(v.Reason)
//	}
//	stage(v.Accepted)
//
// Rejections are outcomes, not errors. A rejected file is simply left out of
// Verdict.Accepted; the rest of the batch is unaffected.
package policy
