package webserver

import (
	"strings"

	"sizes/internal/request"
	"sizes/internal/types"
)

// filenameReplacer strips path separators and characters that are unsafe in
// displayed file names.
var filenameReplacer = strings.NewReplacer(
	"/", "",
	"\\", "",
	"..", "",
	":", "",
	"*", "",
	"?", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

// SanitizeFilename sanitizes filenames to prevent issues
func SanitizeFilename(filename string) string {
	filename = strings.TrimSpace(filenameReplacer.Replace(filename))

	// Ensure filename is not empty after sanitization
	if filename == "" {
		filename = "upload"
	}

	return filename
}

// CountFiles returns how many files raw carries, including entries that the
// normalizer will later drop or reject.
func CountFiles(raw request.RawRequest) int {
	switch v := raw[request.FieldFiles].(type) {
	case types.File:
		return 1
	case []types.File:
		return len(v)
	case []any:
		return len(v)
	default:
		return 0
	}
}

// ValidateUpload rejects requests with more than maxFiles files and
// sanitizes the names of the ones it keeps. Empty names are left alone so
// the normalizer can drop them as unselected inputs.
func ValidateUpload(raw request.RawRequest, maxFiles int) error {
	if n := CountFiles(raw); n > maxFiles {
		return uploadErrorf("too many files: %d (max %d)", n, maxFiles)
	}

	switch v := raw[request.FieldFiles].(type) {
	case types.File:
		raw[request.FieldFiles] = sanitizeFile(v)
	case []types.File:
		for i := range v {
			v[i] = sanitizeFile(v[i])
		}
	case []any:
		for i, item := range v {
			if f, ok := item.(types.File); ok {
				v[i] = sanitizeFile(f)
			}
		}
	}

	return nil
}

func sanitizeFile(f types.File) types.File {
	if f.Name != "" {
		f.Name = SanitizeFilename(f.Name)
	}

	return f
}
