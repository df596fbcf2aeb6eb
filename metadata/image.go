package metadata

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"metarisk/risk"
)

// exifTextFields are copied verbatim when present, in this order.
var exifTextFields = []struct {
	key  string
	name exif.FieldName
}{
	{"DateTime", exif.DateTime},
	{"DateTimeOriginal", exif.DateTimeOriginal},
	{"DateTimeDigitized", exif.DateTimeDigitized},
	{"Make", exif.Make},
	{"Model", exif.Model},
	{"Software", exif.Software},
	{"Artist", exif.Artist},
	{"Copyright", exif.Copyright},
	{"ImageDescription", exif.ImageDescription},
	{"BodySerialNumber", exif.FieldName("BodySerialNumber")},
	{"LensModel", exif.FieldName("LensModel")},
}

// extractImageMetadata decodes the EXIF block of an image.
func extractImageMetadata(path string, maxBytes int64) risk.Metadata {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var reader io.Reader = f
	if maxBytes > 0 {
		reader = io.LimitReader(f, maxBytes)
	}
	x, err := exif.Decode(reader)
	if err != nil {
		return nil
	}

	var md risk.Metadata
	for _, field := range exifTextFields {
		tag, err := x.Get(field.name)
		if err != nil {
			continue
		}
		if value := tagText(tag); value != "" {
			md.Set(field.key, value)
		}
	}
	if lat, long, err := x.LatLong(); err == nil {
		md.Set("GPS Latitude", strconv.FormatFloat(lat, 'f', 6, 64))
		md.Set("GPS Longitude", strconv.FormatFloat(long, 'f', 6, 64))
	}
	if _, err := x.Get(exif.MakerNote); err == nil {
		md.Set("MakerNote", "present")
	}
	if thumb, err := x.JpegThumbnail(); err == nil && len(thumb) > 0 {
		md.Set("EXIF Thumbnail", strconv.Itoa(len(thumb))+" bytes")
	}
	return md
}

func tagText(tag *tiff.Tag) string {
	if tag.Format() == tiff.StringVal {
		s, err := tag.StringVal()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(s, "\x00"))
	}
	return strings.Trim(tag.String(), `"`)
}
