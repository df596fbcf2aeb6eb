package metadata

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
)

// Unknown is returned when the type of a file cannot be determined.
const Unknown = "unknown"

// headerSize covers every magic number filetype inspects.
const headerSize = 8192

var textExtensions = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
	".html": "text/html",
	".css":  "text/css",
	".js":   "text/javascript",
	".py":   "text/x-python",
	".c":    "text/x-c",
	".cpp":  "text/x-c++",
	".java": "text/x-java",
}

// DetectMIME sniffs the type of path from its leading bytes. Files that carry
// no magic number are classified as text when their extension is a known
// source or document extension or their content looks like text.
func DetectMIME(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	buf := make([]byte, headerSize)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	buf = buf[:n]

	kind, err := filetype.Match(buf)
	if err == nil && kind != filetype.Unknown && kind.MIME.Value != "" {
		return kind.MIME.Value, nil
	}
	if mimeType, ok := textExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return mimeType, nil
	}
	if looksLikeText(buf) {
		return "text/plain", nil
	}
	return Unknown, nil
}

func looksLikeText(sample []byte) bool {
	if len(sample) == 0 {
		return false
	}
	if !utf8.Valid(sample) {
		// A multi-byte rune may be cut at the end of the sample.
		trimmed := sample
		for i := 0; i < utf8.UTFMax && len(trimmed) > 0 && !utf8.Valid(trimmed); i++ {
			trimmed = trimmed[:len(trimmed)-1]
		}
		if !utf8.Valid(trimmed) {
			return false
		}
	}
	var control int
	for _, b := range sample {
		if b == 0 {
			return false
		}
		if b < 0x09 || (b > 0x0D && b < 0x20) {
			control++
		}
	}
	return control <= len(sample)/10
}
