package chunker

import "unicode/utf8"

// Chunk represents a contiguous slice of the input text.
type Chunk struct {
	Index int
	Text  string
	// Chars is the length of Text in characters (runes).
	Chars int
	// TokenCount is an estimate filled in by callers that count tokens; Split leaves it zero.
	TokenCount int
}

// Len returns the length of text in characters, not bytes.
func Len(text string) int {
	return utf8.RuneCountInString(text)
}

// Split cuts text into non-overlapping windows of exactly maxChars characters,
// the last one holding the remainder. Boundaries are pure slicing and may fall
// mid-word. Concatenating the chunk texts in order yields text exactly.
// Empty text or maxChars <= 0 yields no chunks.
func Split(text string, maxChars int) []Chunk {
	if maxChars <= 0 || text == "" {
		return nil
	}

	total := Len(text)
	chunks := make([]Chunk, 0, (total+maxChars-1)/maxChars)

	start, count := 0, 0
	for i := range text {
		if count == maxChars {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: text[start:i], Chars: count})
			start, count = i, 0
		}
		count++
	}
	chunks = append(chunks, Chunk{Index: len(chunks), Text: text[start:], Chars: count})
	return chunks
}
