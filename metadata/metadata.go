// Package metadata pulls a flat, ordered key/value view of the embedded
// metadata of a file: EXIF for images, the info dictionary for PDFs, OOXML
// document properties for DOCX and simple statistics for text files.
package metadata

import (
	"strings"

	"metarisk/risk"
)

const (
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
	mimeTIFF = "image/tiff"
	mimeHEIF = "image/heif"
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Extract returns the metadata of path for the given MIME type. maxBytes
// bounds how much of the file a parser may read; zero means unlimited.
// Unsupported types and unreadable files yield empty metadata.
func Extract(path string, mimeType string, maxBytes int64) risk.Metadata {
	var md risk.Metadata
	switch {
	case mimeType == mimeJPEG, mimeType == mimePNG, mimeType == mimeTIFF, mimeType == mimeHEIF:
		md = extractImageMetadata(path, maxBytes)
	case mimeType == mimePDF:
		md = extractPDFMetadata(path, maxBytes)
	case mimeType == mimeDOCX:
		md = extractDOCXMetadata(path, maxBytes)
	case IsText(mimeType):
		md = extractTextMetadata(path, maxBytes)
	}
	if md == nil {
		md = risk.Metadata{}
	}
	return md
}

// IsText reports whether mimeType is handled by the text extractor.
func IsText(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/") ||
		strings.Contains(mimeType, "json") ||
		strings.Contains(mimeType, "javascript")
}
