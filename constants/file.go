package constants

import "strings"

// Document formats the pipeline knows how to extract text from.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// AllowedExtensions holds the file extensions accepted at upload.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"gif":  {},
}

// contentTypeExt maps declared upload content types to a canonical extension.
var contentTypeExt = map[string]string{
	"application/pdf": "pdf",
	"image/png":       "png",
	"image/jpeg":      "jpg",
	"image/jpg":       "jpg",
	"image/gif":       "gif",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the document format for an extension, or "" when the
// extension is not supported.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "png", "jpg", "jpeg", "gif":
		return IMAGE
	default:
		return ""
	}
}

// MapContentTypeToExt returns the canonical extension for a declared content
// type, or "" when the content type is not supported. Parameters after a
// semicolon (e.g. "; charset=binary") are ignored.
func MapContentTypeToExt(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return contentTypeExt[ct]
}
