package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/tmzncty/modelverify/pkg/verify/types"
)

// PrettyFormatter renders a styled terminal report using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatTable(r))
	if len(r.Problems) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatProblems(r))
	}
	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		for _, warning := range r.Warnings {
			w.WriteString(WarningStyle.Render("! "+warning) + "\n")
		}
	}
	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")
	return nil
}

// formatHeader builds the repository metadata box.
func (f *PrettyFormatter) formatHeader(r *Report) string {
	lines := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Repository:"),
			ValueStyle.Render(r.Repository+"@"+r.Revision)),
		fmt.Sprintf("%s %s", LabelStyle.Render("Local root:"),
			ValueStyle.Render(r.LocalRoot)),
		fmt.Sprintf("%s %s", LabelStyle.Render("Manifest:"),
			ValueStyle.Render(fmt.Sprintf("%d files", r.Stats.ManifestFiles))),
	}
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatTable builds the per-file rows.
func (f *PrettyFormatter) formatTable(r *Report) string {
	if len(r.Files) == 0 {
		return MutedStyle.Render("  No local files to verify\n")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
		TableHeaderStyle.Render("STATUS"),
		TableHeaderStyle.Render(padLeft("SIZE", 10)),
		TableHeaderStyle.Render("FILE")))

	for _, file := range r.Files {
		status := SuccessStyle.Render("  OK  ")
		if !file.OK {
			status = DangerStyle.Render(" FAIL ")
		}
		line := fmt.Sprintf("  %s  %s  %s", status,
			padLeft(types.FormatSize(file.LocalSize), 10), file.Name)
		if file.ModifiedDuringScan {
			line += WarningStyle.Render("  (modified during scan)")
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

// formatProblems details every failing file with expected versus actual
// values so a mismatch can be diagnosed from the report alone.
func (f *PrettyFormatter) formatProblems(r *Report) string {
	var sb strings.Builder
	sb.WriteString(DangerStyle.Render("Problems") + "\n")
	for _, p := range r.Problems {
		sb.WriteString(fmt.Sprintf("  %s %s\n", DangerStyle.Render("-"), p.Name))
		sb.WriteString(MutedStyle.Render(fmt.Sprintf("      %s", p.Reason)) + "\n")
		if p.OfficialSHA256 != "" {
			sb.WriteString(MutedStyle.Render(fmt.Sprintf("      official sha256=%s size=%d",
				p.OfficialSHA256, p.OfficialSize)) + "\n")
		}
		if p.LocalSHA256 != "" {
			sb.WriteString(MutedStyle.Render(fmt.Sprintf("      local    sha256=%s size=%d",
				p.LocalSHA256, p.LocalSize)) + "\n")
		}
	}
	return sb.String()
}

// formatFooter builds the summary box with the overall verdict.
func (f *PrettyFormatter) formatFooter(r *Report) string {
	verdict := SuccessStyle.Render("VALID")
	if !r.Valid {
		verdict = DangerStyle.Render("INVALID")
	}

	summary := fmt.Sprintf("%s  %s",
		verdict,
		LabelStyle.Render(fmt.Sprintf("%d/%d valid, %d missing, %s hashed in %s",
			r.Stats.FilesValid, r.Stats.FilesChecked, r.Stats.FilesMissing,
			types.FormatSize(r.Stats.BytesHashed), formatElapsed(r))))
	if r.Stats.CacheHits > 0 {
		summary += MutedStyle.Render(fmt.Sprintf("  (%d cache hits)", r.Stats.CacheHits))
	}
	return FooterBox.Render(summary)
}

func formatElapsed(r *Report) string {
	return r.Stats.Elapsed.Truncate(10 * time.Millisecond).String()
}

// padLeft right-aligns s in a field of the given width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
