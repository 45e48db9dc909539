package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

func extractDocx(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	f := findZipFile(&r.Reader, "word/document.xml")
	if f == nil {
		return "", errors.New("word/document.xml not found in archive")
	}
	return xmlText(f, "t", "p")
}

// extractPptx reads the slides in slide order.
func extractPptx(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	slides := numberedParts(&r.Reader, "ppt/slides/slide")
	if len(slides) == 0 {
		return "", errors.New("no slides found in archive")
	}

	var text strings.Builder
	for _, slide := range slides {
		slideText, err := xmlText(slide, "t", "p")
		if err != nil {
			return "", fmt.Errorf("read %s: %w", slide.Name, err)
		}
		appendLine(&text, slideText)
	}
	return text.String(), nil
}

// extractXlsx reads the shared string table and the inline strings and values of
// every worksheet.
func extractXlsx(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var text strings.Builder
	if shared := findZipFile(&r.Reader, "xl/sharedStrings.xml"); shared != nil {
		sharedText, err := xmlText(shared, "t", "si")
		if err != nil {
			return "", fmt.Errorf("read shared strings: %w", err)
		}
		appendLine(&text, sharedText)
	}

	for _, sheet := range numberedParts(&r.Reader, "xl/worksheets/sheet") {
		sheetText, err := sheetValues(sheet)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", sheet.Name, err)
		}
		appendLine(&text, sheetText)
	}
	return text.String(), nil
}

// xmlText collects the character data of every textElement, starting a new line at the
// end of every blockElement.
func xmlText(f *zip.File, textElement, blockElement string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var (
		text   strings.Builder
		inText bool
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
			if t.Name.Local == textElement {
				inText = true
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case textElement:
				inText = false
			case blockElement:
				text.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(text.String()), nil
}

// sheetValues returns inline strings and literal values of a worksheet. Cells of type "s"
// point into the shared string table and are skipped.
func sheetValues(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var (
		values   []string
		cellType string
		inValue  bool
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
			switch t.Name.Local {
			case "c":
				cellType = ""
				for _, attr := range t.Attr {
					if attr.Name.Local == "t" {
						cellType = attr.Value
					}
				}
			case "v", "t":
				inValue = cellType != "s"
			}
		case xml.CharData:
			if inValue {
				if v := strings.TrimSpace(string(t)); v != "" {
					values = append(values, v)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "v" || t.Name.Local == "t" {
				inValue = false
			}
		}
	}
	return strings.Join(values, " "), nil
}

func findZipFile(r *zip.Reader, name string) *zip.File {
	for _, f := range r.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// numberedParts returns the archive members named <prefix><n>.xml ordered by n.
func numberedParts(r *zip.Reader, prefix string) []*zip.File {
	type part struct {
		n    int
		file *zip.File
	}
	var parts []part
	for _, f := range r.File {
		if !strings.HasPrefix(f.Name, prefix) || path.Ext(f.Name) != ".xml" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(f.Name, prefix), ".xml"))
		if err != nil {
			continue
		}
		parts = append(parts, part{n: n, file: f})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].n < parts[j].n })

	files := make([]*zip.File, len(parts))
	for i, p := range parts {
		files[i] = p.file
	}
	return files
}

func appendLine(b *strings.Builder, s string) {
	if s == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(s)
}
