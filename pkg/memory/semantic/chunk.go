package semantic

import (
	"strings"
	"unicode/utf8"
)

// DefaultMinChunkLength is the minimum chunk size, in characters, that
// ChunkText emits before starting a new chunk.
const DefaultMinChunkLength = 50

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// ChunkText splits text into paragraph chunks.
//
// Paragraphs are separated by blank lines; CRLF and lone CR line endings
// count as newlines. Adjacent paragraphs are joined
// with a space until the running chunk reaches minLength characters. A short
// trailing remainder is appended to the last chunk, or emitted alone when it
// is the only one.
func ChunkText(text string, minLength int) []string {
	if minLength <= 0 {
		minLength = DefaultMinChunkLength
	}

	text = lineEndings.Replace(text)

	var chunks []string
	var buf string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if buf != "" {
			buf += " " + p
		} else {
			buf = p
		}
		if utf8.RuneCountInString(buf) >= minLength {
			chunks = append(chunks, buf)
			buf = ""
		}
	}

	if buf != "" {
		if len(chunks) > 0 {
			chunks[len(chunks)-1] += " " + buf
		} else {
			chunks = append(chunks, buf)
		}
	}
	return chunks
}

// SafeLabel normalizes a data set label: lowercase, spaces replaced with
// underscores, at most 40 characters.
func SafeLabel(label string) string {
	s := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
	if utf8.RuneCountInString(s) > 40 {
		s = string([]rune(s)[:40])
	}
	return s
}
