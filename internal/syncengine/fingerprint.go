package syncengine

import (
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/sevigo/coderag/internal/core"
)

// Fingerprint computes the (size, mtime) tuple spec.md mandates for change
// detection, non-cryptographic by design (Design Note §9). An xxhash-64
// digest of the file content is layered on as a fast supplementary signal:
// it never gates the comparison by itself, but lets callers that want a
// stronger confirmation (e.g. a resumed, possibly-clock-skewed scan) check
// content equality without paying for SHA-256.
func Fingerprint(path string) (core.Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return core.Fingerprint{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return core.Fingerprint{}, err
	}

	return core.Fingerprint{
		Size:    info.Size(),
		ModTime: info.ModTime().UnixNano(),
		XXHash:  xxhash.Sum64(data),
	}, nil
}

// Changed reports whether fingerprint b differs from the previously
// recorded fingerprint a under the spec's equality-only comparison.
func Changed(a, b core.Fingerprint) bool {
	return a.Size != b.Size || a.ModTime != b.ModTime
}
