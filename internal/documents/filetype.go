package documents

import "strings"

// DeriveFileType classifies a blob from its declared MIME type, falling back to the original name.
func DeriveFileType(mimeType, originalName string) FileType {
	mt := strings.ToLower(mimeType)
	name := strings.ToLower(originalName)
	switch {
	case strings.Contains(mt, "pdf"):
		return FileTypePDF
	case strings.Contains(mt, "word"), strings.Contains(mt, "document"), strings.Contains(name, ".doc"):
		if strings.Contains(name, ".docx") {
			return FileTypeDocx
		}
		return FileTypeDoc
	case strings.Contains(mt, "image"):
		return FileTypeImage
	}
	return FileTypeOther
}
