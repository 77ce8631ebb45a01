package main

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	ferrors "github.com/vango-dev/filestage/internal/errors"
	"github.com/vango-dev/filestage/pkg/policy"
)

type checkOptions struct {
	maxSize  string
	accept   []string
	multiple bool
}

func checkCmd() *cobra.Command {
	opts := checkOptions{maxSize: "10MB"}

	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Evaluate local files against a policy",
		Long: `Evaluate files against a size/type policy, exactly as a stager would,
and print which ones would be staged.

MIME types are taken from the file extension, falling back to content
sniffing. The command exits non-zero if any file is rejected.

Examples:
  filestage check --max-size=1MB --accept='image/*' photo.png notes.pdf
  filestage check --accept=application/pdf --multiple *.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.maxSize, "max-size", opts.maxSize, "Per-file size limit (e.g. 10MB)")
	cmd.Flags().StringSliceVar(&opts.accept, "accept", nil, "Accepted MIME patterns (default: all)")
	cmd.Flags().BoolVar(&opts.multiple, "multiple", false, "Multi mode: keep every accepted file")

	return cmd
}

func runCheck(w io.Writer, opts checkOptions, paths []string) error {
	maxSize, err := policy.ParseSize(opts.maxSize)
	if err != nil {
		return err
	}
	p, err := policy.New(policy.Policy{
		MaxSizeBytes:   maxSize,
		AcceptPatterns: opts.accept,
		AllowMultiple:  opts.multiple,
	})
	if err != nil {
		return err
	}

	files := make([]policy.File, 0, len(paths))
	for _, path := range paths {
		f, err := localFile(path)
		if err != nil {
			return ferrors.Newf(ferrors.CategoryCLI, "cannot read %s", path).Wrap(err)
		}
		files = append(files, f)
	}

	verdict := policy.Evaluate(files, p)

	fmt.Fprintf(w, "Policy: %s max, mode %s\n\n", policy.FormatLimit(p.MaxSizeBytes), p.Mode())
	for i, f := range verdict.Accepted {
		status := "staged"
		if !p.AllowMultiple && i > 0 {
			status = "dropped (single mode keeps the first file)"
		}
		fmt.Fprintf(w, "  ✓ %-30s %-24s %10s  %s\n", f.Name, f.MIMEType, humanize.Bytes(uint64(f.Size)), status)
	}
	for _, r := range verdict.Rejections {
		fmt.Fprintf(w, "  ✗ %-30s %s\n", r.File.Name, r.Message)
	}

	if verdict.Rejected() {
		fmt.Fprintf(w, "\nerror: %s\n", verdict.Reason)
		return ferrors.Newf(ferrors.CategoryCLI, "%d of %d files rejected", len(verdict.Rejections), len(files))
	}
	return nil
}

// localFile describes the file at path as a candidate.
func localFile(path string) (policy.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return policy.File{}, err
	}
	if info.IsDir() {
		return policy.File{}, fmt.Errorf("%s is a directory", path)
	}

	mimeType, err := detectType(path)
	if err != nil {
		return policy.File{}, err
	}

	return policy.File{
		Name:     filepath.Base(path),
		MIMEType: mimeType,
		Size:     info.Size(),
		Source: policy.SourceFunc(func() (io.ReadCloser, error) {
			return os.Open(path)
		}),
	}, nil
}

// detectType uses the extension when it is known and sniffs the content
// otherwise.
func detectType(path string) (string, error) {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		mediaType, _, err := mime.ParseMediaType(byExt)
		if err == nil {
			return mediaType, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(head[:n]))
	return mediaType, nil
}
