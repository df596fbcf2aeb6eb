package metadata

import (
	"os"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"metarisk/risk"
)

// extractPDFMetadata reads the document information dictionary. Files larger
// than maxBytes are skipped because pdfcpu parses the whole cross-reference
// table.
func extractPDFMetadata(path string, maxBytes int64) risk.Metadata {
	if maxBytes > 0 {
		info, err := os.Stat(path)
		if err != nil || info.Size() > maxBytes {
			return nil
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	info, err := api.PDFInfo(f, path, nil, false, nil)
	if err != nil {
		return nil
	}

	var md risk.Metadata
	setText := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			md.Set(key, value)
		}
	}
	setText("Title", info.Title)
	setText("Author", info.Author)
	setText("Subject", info.Subject)
	setText("Keywords", keywordText(info.Keywords))
	setText("Creator", info.Creator)
	setText("Producer", info.Producer)
	setText("CreationDate", pdfDate(info.CreationDate))
	setText("ModDate", pdfDate(info.ModificationDate))
	md.Set("Pages", info.PageCount)
	return md
}

func keywordText(v any) string {
	switch k := v.(type) {
	case string:
		return k
	case []string:
		return strings.Join(k, ", ")
	}
	return ""
}

var pdfDatePattern = regexp.MustCompile(`^(?:D:)?(\d{4})(\d{2})?(\d{2})?(\d{2})?(\d{2})?(\d{2})?(Z|[+-]\d{2}'?\d{2}'?)?`)

// pdfDate rewrites a PDF date string (D:YYYYMMDDHHmmSS+HH'mm') as
// "YYYY-MM-DD HH:MM:SS+HH:MM". Values in any other form are returned as is.
func pdfDate(raw string) string {
	raw = strings.TrimSpace(raw)
	m := pdfDatePattern.FindStringSubmatch(raw)
	if m == nil || m[2] == "" || m[3] == "" {
		return raw
	}
	part := func(s string) string {
		if s == "" {
			return "00"
		}
		return s
	}
	out := m[1] + "-" + m[2] + "-" + m[3] + " " + part(m[4]) + ":" + part(m[5]) + ":" + part(m[6])
	switch zone := strings.ReplaceAll(m[7], "'", ""); {
	case zone == "Z":
		out += "+00:00"
	case len(zone) == 5:
		out += zone[:3] + ":" + zone[3:]
	}
	return out
}
