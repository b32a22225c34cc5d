package export

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Hash digests a set of export rows into a lowercase hex SHA-256. The digest is
// independent of input ordering and line-ending convention: rows are sorted
// byte-wise and CRLF is normalised to LF before hashing, so the same data
// always yields the same hash no matter which surface produced it.
func Hash(rows []string) string {
	normalised := make([]string, len(rows))
	for i, row := range rows {
		normalised[i] = strings.ReplaceAll(row, "\r\n", "\n")
	}
	sort.Strings(normalised)
	h := sha256.New()
	for _, row := range normalised {
		h.Write([]byte(row))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// File is one named artifact inside an export bundle.
type File struct {
	Name    string
	Content []byte
}

// BundleHash digests a bundle of files. Files are hashed in name order with
// CRLF normalised, so two bundles with the same files hash identically.
func BundleHash(files []File) string {
	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	h := sha256.New()
	for _, f := range sorted {
		content := strings.ReplaceAll(string(f.Content), "\r\n", "\n")
		h.Write([]byte(f.Name))
		h.Write([]byte{0})
		h.Write([]byte(content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
