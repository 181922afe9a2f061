package memory

import (
	"strings"
	"unicode/utf8"
)

const DefaultChunkSize = 1000

// Split breaks text into sentence-aligned chunks of at most maxSize runes.
// Sentences are accumulated greedily; a chunk is closed when the next
// sentence would push it past maxSize. A single sentence longer than maxSize
// becomes its own oversized chunk — sentences are never split internally.
func Split(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, sentence := range sentences {
		sentenceLen := utf8.RuneCountInString(sentence)

		if currentLen > 0 && currentLen+1+sentenceLen > maxSize {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}

		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += sentenceLen
	}

	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// splitSentences cuts after sentence-final punctuation, keeping the
// punctuation with its sentence so that rejoined chunks reproduce the
// original text modulo whitespace.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); len(s) > 0 {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, r := range text {
		current.WriteRune(r)
		if isSentenceEnd(r) {
			flush()
		}
	}
	flush()

	return sentences
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '\n':
		return true
	}
	return false
}
