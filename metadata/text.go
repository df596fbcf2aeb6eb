package metadata

import (
	"bytes"
	"io"
	"os"

	"metarisk/risk"
)

const textReadChunk = 64 * 1024

// extractTextMetadata reports the size and line count of a text file. Lines
// are counted the way a line iterator would: a trailing fragment without a
// newline is still a line. Only the first maxBytes are counted when set.
func extractTextMetadata(path string, maxBytes int64) risk.Metadata {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil
	}

	var reader io.Reader = f
	if maxBytes > 0 {
		reader = io.LimitReader(f, maxBytes)
	}
	lines, err := countLines(reader)
	if err != nil {
		return nil
	}

	return risk.Metadata{
		{Key: "File Size (bytes)", Value: info.Size()},
		{Key: "Line Count", Value: lines},
		{Key: "Encoding", Value: "utf-8"},
	}
}

// countLines treats "\n", "\r\n" and a lone "\r" as line endings.
func countLines(r io.Reader) (int, error) {
	buf := make([]byte, textReadChunk)
	lines := 0
	var last byte
	read := false
	pendingCR := false
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if !pendingCR && bytes.IndexByte(chunk, '\r') < 0 {
				lines += bytes.Count(chunk, []byte{'\n'})
			} else {
				for _, c := range chunk {
					if pendingCR {
						pendingCR = false
						lines++
						if c == '\n' {
							continue
						}
					}
					switch c {
					case '\r':
						pendingCR = true
					case '\n':
						lines++
					}
				}
			}
			last = chunk[n-1]
			read = true
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if pendingCR {
		lines++
	}
	if read && last != '\n' && last != '\r' {
		lines++
	}
	return lines, nil
}
