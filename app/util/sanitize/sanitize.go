package sanitize

import "strings"

// MaxInputLength is applied both to the input buffer and to outbound messages.
const MaxInputLength = 1000

// Sanitize trims surrounding whitespace, strips characters that could break
// downstream HTML/markup contexts and truncates the result. Interior
// whitespace is preserved.
func Sanitize(raw string) string {
	trimmed := strings.TrimSpace(raw)

	var b strings.Builder
	b.Grow(len(trimmed))

	count := 0
	for _, r := range trimmed {
		switch r {
		case '<', '>', '"', '\'', '&':
			continue
		}

		if count >= MaxInputLength {
			break
		}

		b.WriteRune(r)
		count++
	}

	return strings.TrimSpace(b.String())
}
