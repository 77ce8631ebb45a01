// Package errors provides structured errors for filestage faults.
//
// Validation outcomes (oversized files, rejected MIME types) are not errors
// and never travel through this package. It covers the things that can
// actually fail: preview allocation, configuration, a closed stager, an
// unknown server session.
//
// Each error carries a code from the registry:
//
//	err := errors.New("S001").
//	    WithDetail("s3 put failed").
//	    Wrap(cause)
//
//	fmt.Println(err.Format())
//	// ERROR S001: Preview allocation failed
//	//
//	//   s3 put failed
//	//
//	//   Caused by: ...
package errors
