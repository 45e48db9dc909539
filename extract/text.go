package extract

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"
	"unicode"
)

const maxPlainTextBytes = 10 << 20

func extractPlainText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxPlainTextBytes))
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), " "), nil
}

// extractCSV joins every cell of the file and drops numeric characters, which carry
// little search value in tabular data.
func extractCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader := csv.NewReader(io.LimitReader(f, maxPlainTextBytes))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var text strings.Builder
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return "", err
		}
		if text.Len() > 0 {
			text.WriteByte('\n')
		}
		text.WriteString(strings.Join(record, " "))
	}

	return strings.Map(func(r rune) rune {
		if unicode.IsNumber(r) {
			return -1
		}
		return r
	}, text.String()), nil
}
