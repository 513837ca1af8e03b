package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/tmzncty/modelverify/pkg/verify/types"
)

// PlainFormatter renders a simple tab-separated report suitable for
// scripting and piping. No colors or styling.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	fmt.Fprintf(w, "repository: %s@%s\n", r.Repository, r.Revision)
	fmt.Fprintf(w, "local root: %s\n", r.LocalRoot)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "STATUS\tSIZE\tFILE\tREASON"); err != nil {
		return err
	}
	for _, file := range r.Files {
		status := "OK"
		if !file.OK {
			status = "FAIL"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			status, types.FormatSize(file.LocalSize), file.Name, file.Reason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}

	verdict := "VALID"
	if !r.Valid {
		verdict = "INVALID"
	}
	fmt.Fprintf(w, "%s: %d/%d files valid, %d missing, %s hashed in %s\n",
		verdict, r.Stats.FilesValid, r.Stats.FilesChecked, r.Stats.FilesMissing,
		types.FormatSize(r.Stats.BytesHashed), r.Stats.Elapsed.Round(10*time.Millisecond))
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
