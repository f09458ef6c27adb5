package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SanitizeInput removes null bytes and control characters from a single-line input
func SanitizeInput(input string) string {
	var result strings.Builder
	result.Grow(len(input))
	for _, r := range input {
		if r < 32 || r == 127 {
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

// CleanURLInput prepares a client supplied URL: control characters are
// dropped and surrounding whitespace trimmed. An empty result means the
// request carried no usable URL.
func CleanURLInput(input string) string {
	return strings.TrimSpace(SanitizeInput(input))
}

// IsValidName checks that name is a single path element with no traversal
func IsValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return false
	}
	return filepath.Base(name) == name
}

// ValidateFilePath joins requestedPath onto basePath and rejects any result
// that would leave basePath.
func ValidateFilePath(basePath, requestedPath string) (string, error) {
	if filepath.IsAbs(requestedPath) {
		return "", fmt.Errorf("absolute paths not allowed")
	}
	if strings.Contains(requestedPath, "\x00") {
		return "", fmt.Errorf("path contains null byte")
	}

	cleanBase := filepath.Clean(basePath)
	fullPath := filepath.Join(cleanBase, filepath.Clean(requestedPath))

	relPath, err := filepath.Rel(cleanBase, fullPath)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt detected")
	}
	if relPath == "." {
		return "", fmt.Errorf("path resolves to the base directory")
	}

	return fullPath, nil
}
