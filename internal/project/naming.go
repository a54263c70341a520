package project

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var idRegexp = regexp.MustCompile("[^a-z0-9_-]+")

// GenerateID derives a stable project id from a source directory path, the
// way the teacher derives a Qdrant collection name from a repo's full name:
// lowercase, slashes and any character outside [a-z0-9_-] stripped, capped
// to a sane length.
func GenerateID(sourceDir string) string {
	base := filepath.Base(filepath.Clean(sourceDir))
	safe := idRegexp.ReplaceAllString(strings.ToLower(base), "")
	if safe == "" {
		safe = "project"
	}
	const maxIDLength = 80
	if len(safe) > maxIDLength {
		safe = safe[:maxIDLength]
	}
	return fmt.Sprintf("%s-%x", safe, simpleHash(sourceDir))
}

// simpleHash is a tiny FNV-1a variant used only to disambiguate two
// projects that share a base directory name (e.g. "~/work/api" and
// "~/personal/api"). A collision is not detected: Register replaces an
// existing project with the same id, and the register command's --id flag
// is the way to pick a different id explicitly.
func simpleHash(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
