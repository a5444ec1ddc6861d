package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"inkwell/search/internal/index"
)

const snippetWindow = 60

// snippet highlights the first query token found in the excerpt (or the
// title when there is no excerpt) and trims the text to a window around
// the hit.
func snippet(normalized string, rec index.Record) string {
	text := rec.Excerpt
	if text == "" {
		text = rec.Title
	}
	if text == "" {
		return ""
	}

	for _, token := range strings.Fields(normalized) {
		hit, end := foldIndex(text, token)
		if hit < 0 {
			continue
		}

		start := snapRuneStart(text, maxInt(0, hit-snippetWindow))
		stop := snapRuneStart(text, minInt(len(text), end+snippetWindow))

		var b strings.Builder
		if start > 0 {
			b.WriteString("…")
		}
		b.WriteString(text[start:hit])
		b.WriteString("<mark>")
		b.WriteString(text[hit:end])
		b.WriteString("</mark>")
		b.WriteString(text[end:stop])
		if stop < len(text) {
			b.WriteString("…")
		}
		return b.String()
	}

	// No token hit (edit-distance or phonetic match): plain leading text
	stop := snapRuneStart(text, minInt(len(text), 2*snippetWindow))
	if stop < len(text) {
		return text[:stop] + "…"
	}
	return text
}

// foldIndex locates token in text case-insensitively and returns byte
// offsets into the original text. The token is already lowercased; text is
// folded rune by rune during the scan, so offsets stay valid even for
// characters whose lowercase form has a different byte length.
func foldIndex(text, token string) (int, int) {
	want := []rune(token)
	if len(want) == 0 {
		return -1, -1
	}
	for i := 0; i < len(text); {
		j, k := i, 0
		for k < len(want) && j < len(text) {
			r, size := utf8.DecodeRuneInString(text[j:])
			if unicode.ToLower(r) != want[k] {
				break
			}
			j += size
			k++
		}
		if k == len(want) {
			return i, j
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return -1, -1
}

// snapRuneStart moves i back to the nearest rune boundary so windowed
// slicing never cuts a multi-byte character.
func snapRuneStart(s string, i int) int {
	for i > 0 && i < len(s) && s[i]&0xC0 == 0x80 {
		i--
	}
	return i
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
