package extract

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"golang.org/x/text/encoding/charmap"
)

const (
	palmDBHeaderSize = 78
	palmDBRecordSize = 8

	compressionNone    = 1
	compressionPalmDOC = 2

	encodingCP1252 = 1252
	encodingUTF8   = 65001

	mobiExtraFlagsOffset = 0xF2
	mobiMinHeaderForFlag = 0xE4
)

var errMobiFormat = errors.New("malformed mobi file")

// extractMobi decodes the text records of a MOBI book and strips its markup.
func extractMobi(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	records, err := palmRecords(data)
	if err != nil {
		return "", err
	}
	header := records[0]
	if len(header) < 16 {
		return "", fmt.Errorf("%w: short record 0", errMobiFormat)
	}

	compression := binary.BigEndian.Uint16(header[0:2])
	textRecords := int(binary.BigEndian.Uint16(header[8:10]))
	if encryption := binary.BigEndian.Uint16(header[12:14]); encryption != 0 {
		return "", errors.New("encrypted mobi files are not supported")
	}
	if compression != compressionNone && compression != compressionPalmDOC {
		return "", fmt.Errorf("unsupported mobi compression %d", compression)
	}

	encoding := uint32(encodingCP1252)
	var extraFlags uint16
	if len(header) >= 32 && string(header[16:20]) == "MOBI" {
		encoding = binary.BigEndian.Uint32(header[28:32])
		mobiHeaderLength := binary.BigEndian.Uint32(header[20:24])
		if mobiHeaderLength >= mobiMinHeaderForFlag && len(header) >= mobiExtraFlagsOffset+2 {
			extraFlags = binary.BigEndian.Uint16(header[mobiExtraFlagsOffset : mobiExtraFlagsOffset+2])
		}
	}

	var raw bytes.Buffer
	for i := 1; i <= textRecords && i < len(records); i++ {
		record := records[i]
		record = record[:len(record)-trailingEntriesSize(record, extraFlags)]
		if compression == compressionPalmDOC {
			record = palmDOCDecompress(record)
		}
		raw.Write(record)
	}

	content := raw.Bytes()
	if encoding != encodingUTF8 {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(content)
		if err != nil {
			return "", fmt.Errorf("decode cp1252: %w", err)
		}
		content = decoded
	}

	return htmlText(bytes.NewReader(content))
}

// palmRecords splits a PalmDB file into its records.
func palmRecords(data []byte) ([][]byte, error) {
	if len(data) < palmDBHeaderSize {
		return nil, fmt.Errorf("%w: short header", errMobiFormat)
	}
	count := int(binary.BigEndian.Uint16(data[76:78]))
	if count == 0 || len(data) < palmDBHeaderSize+count*palmDBRecordSize {
		return nil, fmt.Errorf("%w: bad record list", errMobiFormat)
	}

	offsets := make([]int, count+1)
	for i := 0; i < count; i++ {
		entry := data[palmDBHeaderSize+i*palmDBRecordSize:]
		offsets[i] = int(binary.BigEndian.Uint32(entry[0:4]))
	}
	offsets[count] = len(data)

	records := make([][]byte, count)
	for i := 0; i < count; i++ {
		start, end := offsets[i], offsets[i+1]
		if start > end || end > len(data) {
			return nil, fmt.Errorf("%w: record %d out of range", errMobiFormat, i)
		}
		records[i] = data[start:end]
	}
	return records, nil
}

// trailingEntriesSize returns how many bytes at the end of a text record belong to the
// trailing entries announced by the extra data flags.
func trailingEntriesSize(record []byte, flags uint16) int {
	size := 0
	for bits := flags >> 1; bits != 0; bits >>= 1 {
		if bits&1 == 1 {
			size += backwardVarint(record, len(record)-size)
		}
	}
	if flags&1 == 1 && len(record)-size-1 >= 0 {
		size += int(record[len(record)-size-1]&0x3) + 1
	}
	if size > len(record) {
		return len(record)
	}
	return size
}

func backwardVarint(record []byte, end int) int {
	result, shift := 0, 0
	for end > 0 {
		v := record[end-1]
		result |= int(v&0x7F) << shift
		shift += 7
		end--
		if v&0x80 != 0 || shift >= 28 {
			break
		}
	}
	return result
}

// palmDOCDecompress expands a PalmDOC LZ77 record.
func palmDOCDecompress(in []byte) []byte {
	out := make([]byte, 0, len(in)*2)
	for i := 0; i < len(in); {
		c := in[i]
		i++
		switch {
		case c >= 1 && c <= 8:
			end := i + int(c)
			if end > len(in) {
				end = len(in)
			}
			out = append(out, in[i:end]...)
			i = end
		case c < 0x80:
			out = append(out, c)
		case c >= 0xC0:
			out = append(out, ' ', c^0x80)
		default:
			if i >= len(in) {
				return out
			}
			pair := int(c)<<8 | int(in[i])
			i++
			distance := (pair >> 3) & 0x07FF
			length := pair&0x07 + 3
			if distance == 0 || distance > len(out) {
				continue
			}
			for j := 0; j < length; j++ {
				out = append(out, out[len(out)-distance])
			}
		}
	}
	return out
}
