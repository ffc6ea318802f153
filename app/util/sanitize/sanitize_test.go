package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "Ich brauche eine neue Website", "Ich brauche eine neue Website"},
		{"strips dangerous characters", `<script>alert("x")&'</script>`, "scriptalert(x)/script"},
		{"preserves interior whitespace", "mehrere  Wörter   bleiben", "mehrere  Wörter   bleiben"},
		{"trims surrounding whitespace", "  hallo  ", "hallo"},
		{"empty input", "", ""},
		{"only stripped characters", `<>"'&`, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.input))
		})
	}
}

func TestSanitizeTruncates(t *testing.T) {
	long := strings.Repeat("a", MaxInputLength+500)
	assert.Len(t, Sanitize(long), MaxInputLength)
}

func TestSanitizeTruncatesByRunes(t *testing.T) {
	long := strings.Repeat("ü", MaxInputLength+10)

	got := Sanitize(long)
	assert.Equal(t, MaxInputLength, len([]rune(got)))
}
