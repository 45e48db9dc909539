package extract

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

var exifTextFields = []exif.FieldName{exif.Make, exif.Model, exif.ImageDescription, exif.DateTime}

// extractImage OCRs a raster image. JPEG camera metadata is appended so photos are
// findable by camera or date even without legible text.
func (e *Extractor) extractImage(ctx context.Context, path string) (string, error) {
	text, err := e.ocr.image(ctx, path)
	if err != nil {
		return "", failure(path, "ocr", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		if meta := exifText(path); meta != "" {
			text = strings.TrimSpace(text + "\n" + meta)
		}
	}
	return text, nil
}

func exifText(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return ""
	}

	var values []string
	for _, field := range exifTextFields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		if value, err := tag.StringVal(); err == nil {
			if value = strings.TrimSpace(strings.Trim(value, "\x00")); value != "" {
				values = append(values, value)
			}
		}
	}
	return strings.Join(values, " ")
}

// extractSVG returns the character data of <text> elements, including nested tspans.
func extractSVG(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	decoder := xml.NewDecoder(f)
	decoder.Strict = false

	var (
		parts []string
		depth int
	)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "text" || depth > 0 {
				depth++
			}
		case xml.EndElement:
			if depth > 0 {
				depth--
			}
		case xml.CharData:
			if depth > 0 {
				if s := strings.TrimSpace(string(t)); s != "" {
					parts = append(parts, s)
				}
			}
		}
	}
	return strings.Join(parts, " "), nil
}
