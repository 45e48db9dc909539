package extract

import "strings"

// MaxChunkChars bounds the length of a chunk in characters.
const MaxChunkChars = 2000

// Chunk packs the whitespace-separated words of text into chunks of at most MaxChunkChars
// characters, joined by single spaces. A word longer than the bound is cut into pieces.
func Chunk(text string) []string {
	var (
		chunks  []string
		current strings.Builder
		length  int
	)

	flush := func() {
		if length > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			length = 0
		}
	}

	for _, word := range strings.Fields(text) {
		runes := []rune(word)

		for len(runes) > MaxChunkChars {
			flush()
			chunks = append(chunks, string(runes[:MaxChunkChars]))
			runes = runes[MaxChunkChars:]
		}
		if len(runes) == 0 {
			continue
		}

		if length > 0 && length+1+len(runes) > MaxChunkChars {
			flush()
		}
		if length > 0 {
			current.WriteByte(' ')
			length++
		}
		current.WriteString(string(runes))
		length += len(runes)
	}
	flush()

	return chunks
}
