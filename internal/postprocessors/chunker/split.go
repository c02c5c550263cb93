package chunker

import "strings"

// Split breaks text into whitespace-delimited words and packs them, in
// order and joined by single spaces, into fragments of at most maxBytes
// UTF-8 bytes. A word longer than maxBytes is emitted alone; words are
// never cut. maxBytes <= 0 disables the limit. Empty input yields nil.
func Split(text string, maxBytes int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var (
		fragments []string
		current   strings.Builder
	)
	for _, w := range words {
		if current.Len() == 0 {
			current.WriteString(w)
			continue
		}
		if maxBytes > 0 && current.Len()+1+len(w) > maxBytes {
			fragments = append(fragments, current.String())
			current.Reset()
			current.WriteString(w)
			continue
		}
		current.WriteByte(' ')
		current.WriteString(w)
	}
	return append(fragments, current.String())
}
