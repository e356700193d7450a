package constants

import "strings"

// AllowedExtensions holds the file extensions the upload surface accepts.
// Everything else is rejected before it reaches the extraction pipeline.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether a filename carries an accepted extension.
func IsAllowedExt(filename string) bool {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return false
	}
	_, ok := AllowedExtensions[NormalizeExt(filename[i:])]
	return ok
}
