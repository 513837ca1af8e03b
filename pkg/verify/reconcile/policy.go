package reconcile

import "strings"

// Policy decides which manifest files must exist locally. A critical
// file's absence blocks the overall-valid declaration; any other absent
// file is silently skipped, never scanned, never compared. Only files
// expected to be large or structurally essential are enforced.
type Policy struct {
	// CriticalSuffixes match by filename suffix, e.g. ".safetensors".
	CriticalSuffixes []string

	// CriticalNames match exactly, e.g. "config.json".
	CriticalNames []string
}

// DefaultPolicy covers weight shards, the weight index, and the config
// and tokenizer files of a transformer checkpoint.
func DefaultPolicy() Policy {
	return Policy{
		CriticalSuffixes: []string{".safetensors", ".index.json"},
		CriticalNames:    []string{"config.json", "tokenizer.json"},
	}
}

// Critical reports whether the named file must exist locally.
func (p Policy) Critical(name string) bool {
	for _, exact := range p.CriticalNames {
		if name == exact {
			return true
		}
	}
	for _, suffix := range p.CriticalSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
