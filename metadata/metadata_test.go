package metadata

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractMetadataMissingFile(t *testing.T) {
	cases := []string{
		mimeJPEG,
		mimePDF,
		mimeDOCX,
		"text/plain",
		"unknown",
	}
	for _, mime := range cases {
		meta := Extract("", mime, 1024)
		if meta == nil || len(meta) != 0 {
			t.Fatalf("expected empty metadata for %s, got %v", mime, meta)
		}
	}
}

func TestExtractTextMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree"), 0o644); err != nil {
		t.Fatal(err)
	}
	md := Extract(path, "text/plain", 0)
	if got := md.Keys(); len(got) != 3 || got[0] != "File Size (bytes)" || got[1] != "Line Count" || got[2] != "Encoding" {
		t.Fatalf("unexpected keys %v", got)
	}
	if v, _ := md.Get("Line Count"); v != 3 {
		t.Fatalf("expected 3 lines, got %v", v)
	}
	if v, _ := md.Get("File Size (bytes)"); v != int64(13) {
		t.Fatalf("expected 13 bytes, got %v", v)
	}
}

func TestCountLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	for content, want := range map[string]int{"": 0, "x": 1, "x\n": 1, "x\ny\n": 2, "\n\n": 2, "a\rb\rc": 3, "a\r": 1, "a\r\nb\r\n": 2, "a\r\rb": 3, "\r\n\r": 2} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		md := extractTextMetadata(path, 0)
		if v, _ := md.Get("Line Count"); v != want {
			t.Fatalf("%q: expected %d lines, got %v", content, want, v)
		}
	}
}

func TestCountLinesCRAcrossChunks(t *testing.T) {
	content := strings.Repeat("x", textReadChunk-1) + "\r\n" + "y\r" + "z"
	lines, err := countLines(strings.NewReader(content))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if lines != 3 {
		t.Fatalf("expected 3 lines, got %d", lines)
	}
}

func writeDOCX(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	parts := map[string]string{
		"docProps/core.xml": `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/">
<dc:title>Quarterly plan</dc:title>
<dc:creator>Jane Roe</dc:creator>
<cp:lastModifiedBy>John Doe</cp:lastModifiedBy>
<cp:revision>4</cp:revision>
<dcterms:created>2024-03-01T09:00:00Z</dcterms:created>
<dcterms:modified>2024-03-02T10:30:00Z</dcterms:modified>
</cp:coreProperties>`,
		"docProps/app.xml": `<?xml version="1.0" encoding="UTF-8"?>
<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">
<Application>Microsoft Office Word</Application>
<Company>Acme</Company>
</Properties>`,
	}
	for name, body := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExtractDOCXMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.docx")
	writeDOCX(t, path)

	md := Extract(path, mimeDOCX, 0)
	want := map[string]string{
		"Title":            "Quarterly plan",
		"Creator":          "Jane Roe",
		"Last Modified By": "John Doe",
		"Revision":         "4",
		"Created":          "2024-03-01T09:00:00Z",
		"Modified":         "2024-03-02T10:30:00Z",
		"Application":      "Microsoft Office Word",
		"Company":          "Acme",
	}
	for key, value := range want {
		got, ok := md.Get(key)
		if !ok || got != value {
			t.Fatalf("%s = %v, want %q", key, got, value)
		}
	}
	if _, ok := md.Get("Subject"); ok {
		t.Fatal("empty properties should be omitted")
	}

	if small := Extract(path, mimeDOCX, 16); len(small) != 0 {
		t.Fatalf("parts over the size limit should be skipped, got %v", small)
	}
}

func TestPDFDate(t *testing.T) {
	cases := map[string]string{
		"D:20240101120000+05'30'": "2024-01-01 12:00:00+05:30",
		"D:20240101120000Z":       "2024-01-01 12:00:00+00:00",
		"D:20240101":              "2024-01-01 00:00:00",
		"2024-01-01 12:00:00":     "2024-01-01 12:00:00",
		"":                        "",
	}
	for in, want := range cases {
		if got := pdfDate(in); got != want {
			t.Fatalf("pdfDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetectMIME(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "pixel.bin")
	header := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
	if err := os.WriteFile(png, header, 0o644); err != nil {
		t.Fatal(err)
	}
	if got, err := DetectMIME(png); err != nil || got != mimePNG {
		t.Fatalf("DetectMIME(png) = %q, %v", got, err)
	}

	src := filepath.Join(dir, "main.py")
	if err := os.WriteFile(src, []byte("print('hi')\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got, _ := DetectMIME(src); got != "text/x-python" {
		t.Fatalf("DetectMIME(py) = %q", got)
	}

	plain := filepath.Join(dir, "README")
	if err := os.WriteFile(plain, []byte("just words here\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got, _ := DetectMIME(plain); got != "text/plain" {
		t.Fatalf("DetectMIME(README) = %q", got)
	}

	bin := filepath.Join(dir, "blob")
	if err := os.WriteFile(bin, []byte{0x00, 0x01, 0x02, 0xff}, 0o644); err != nil {
		t.Fatal(err)
	}
	if got, _ := DetectMIME(bin); got != Unknown {
		t.Fatalf("DetectMIME(blob) = %q", got)
	}

	if _, err := DetectMIME(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
