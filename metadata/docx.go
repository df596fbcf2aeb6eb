package metadata

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"

	"metarisk/risk"
)

type coreProperties struct {
	Title          string `xml:"title"`
	Subject        string `xml:"subject"`
	Creator        string `xml:"creator"`
	Keywords       string `xml:"keywords"`
	Description    string `xml:"description"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Revision       string `xml:"revision"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
	LastPrinted    string `xml:"lastPrinted"`
}

type appProperties struct {
	Application string `xml:"Application"`
	AppVersion  string `xml:"AppVersion"`
	Company     string `xml:"Company"`
	Manager     string `xml:"Manager"`
	Template    string `xml:"Template"`
	TotalTime   string `xml:"TotalTime"`
}

// extractDOCXMetadata parses the core and extended properties parts of an
// OOXML package. A missing part is not an error.
func extractDOCXMetadata(path string, maxBytes int64) risk.Metadata {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil
	}
	defer r.Close()

	var md risk.Metadata
	setText := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			md.Set(key, value)
		}
	}

	var core coreProperties
	if decodePart(&r.Reader, "docProps/core.xml", maxBytes, &core) {
		setText("Title", core.Title)
		setText("Subject", core.Subject)
		setText("Creator", core.Creator)
		setText("Keywords", core.Keywords)
		setText("Description", core.Description)
		setText("Last Modified By", core.LastModifiedBy)
		setText("Revision", core.Revision)
		setText("Created", core.Created)
		setText("Modified", core.Modified)
		setText("Last Printed", core.LastPrinted)
	}

	var app appProperties
	if decodePart(&r.Reader, "docProps/app.xml", maxBytes, &app) {
		setText("Application", app.Application)
		setText("AppVersion", app.AppVersion)
		setText("Company", app.Company)
		setText("Manager", app.Manager)
		setText("Template", app.Template)
		setText("Total Editing Time", app.TotalTime)
	}
	return md
}

func decodePart(r *zip.Reader, name string, maxBytes int64, v any) bool {
	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		if maxBytes > 0 && f.UncompressedSize64 > uint64(maxBytes) {
			return false
		}
		rc, err := f.Open()
		if err != nil {
			return false
		}
		defer rc.Close()

		var reader io.Reader = rc
		if maxBytes > 0 {
			reader = io.LimitReader(rc, maxBytes)
		}
		return xml.NewDecoder(reader).Decode(v) == nil
	}
	return false
}
