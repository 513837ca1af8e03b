package output

import (
	"bytes"
	"encoding/json"
)

// jsonReport is the top-level JSON output structure.
type jsonReport struct {
	Repository string       `json:"repository"`
	Revision   string       `json:"revision"`
	LocalRoot  string       `json:"local_root"`
	Valid      bool         `json:"valid"`
	Files      []FileResult `json:"files"`
	Problems   []FileResult `json:"problems,omitempty"`
	Stats      jsonStats    `json:"stats"`
	Warnings   []string     `json:"warnings,omitempty"`
}

// jsonStats renders durations as strings for readability.
type jsonStats struct {
	ManifestFiles  int    `json:"manifest_files"`
	FilesChecked   int    `json:"files_checked"`
	FilesValid     int    `json:"files_valid"`
	FilesMissing   int    `json:"files_missing"`
	MissingSkipped int    `json:"missing_skipped"`
	BytesHashed    int64  `json:"bytes_hashed"`
	CacheHits      int    `json:"cache_hits"`
	Elapsed        string `json:"elapsed"`
}

// JSONFormatter renders the full report as one indented JSON document.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	out := jsonReport{
		Repository: r.Repository,
		Revision:   r.Revision,
		LocalRoot:  r.LocalRoot,
		Valid:      r.Valid,
		Files:      r.Files,
		Problems:   r.Problems,
		Stats: jsonStats{
			ManifestFiles:  r.Stats.ManifestFiles,
			FilesChecked:   r.Stats.FilesChecked,
			FilesValid:     r.Stats.FilesValid,
			FilesMissing:   r.Stats.FilesMissing,
			MissingSkipped: r.Stats.MissingSkipped,
			BytesHashed:    r.Stats.BytesHashed,
			CacheHits:      r.Stats.CacheHits,
			Elapsed:        r.Stats.Elapsed.String(),
		},
		Warnings: r.Warnings,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
