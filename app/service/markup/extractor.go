package markup

import "strings"

// Wire-level markup emitted by the model. Blocks may appear anywhere in the
// assistant text and may be split across arbitrary chunk boundaries. The
// section tags belong to a deprecated protocol revision that segregated all
// blocks into one trailing section.
const (
	openTag  = "[QUOTE_RECOMMENDATION]"
	closeTag = "[/QUOTE_RECOMMENDATION]"

	sectionOpenTag  = "[QUOTE_SECTION]"
	sectionCloseTag = "[/QUOTE_SECTION]"
)

// Update is the result of feeding a chunk: the full displayable text so far
// (never contains delimiter tokens, complete or partial) and the raw JSON
// payloads completed since the previous update.
type Update struct {
	Display  string
	Payloads []string
}

// Extractor incrementally strips quote markup from a streamed assistant reply.
// Display text is prefix-stable across updates, so callers can append deltas.
type Extractor struct {
	buf     strings.Builder
	emitted int
}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Feed appends a chunk to the accumulation buffer and rescans it.
func (e *Extractor) Feed(chunk string) Update {
	e.buf.WriteString(chunk)
	return e.update(false)
}

// Finish performs the defensive end-of-stream rescan. A block whose closing
// delimiter never arrived is discarded, not displayed.
func (e *Extractor) Finish() Update {
	return e.update(true)
}

func (e *Extractor) update(final bool) Update {
	display, payloads := scan(e.buf.String(), final)

	fresh := payloads[min(e.emitted, len(payloads)):]
	if len(payloads) > e.emitted {
		e.emitted = len(payloads)
	}

	return Update{Display: display, Payloads: fresh}
}

func scan(s string, final bool) (string, []string) {
	a := strings.Index(s, sectionOpenTag)
	if a < 0 {
		return scanBlocks(s, final)
	}

	// trailing-section variant: nothing after the section marker is prose
	pre := s[:a]
	rest := s[a+len(sectionOpenTag):]

	inner, post := rest, ""
	if b := strings.Index(rest, sectionCloseTag); b >= 0 {
		inner, post = rest[:b], rest[b+len(sectionCloseTag):]
	}

	display, payloads := scanBlocks(pre, true)
	if !final {
		return display, payloads
	}

	_, sectionPayloads := scanBlocks(inner, true)
	displayPost, postPayloads := scanBlocks(post, true)

	payloads = append(payloads, sectionPayloads...)
	payloads = append(payloads, postPayloads...)

	return display + displayPost, payloads
}

// scanBlocks walks the text once, copying prose and resolving markup blocks.
// An unresolved block truncates the display at its opener: mid-stream that
// hides bytes still arriving, at the end of the stream it discards them.
func scanBlocks(s string, final bool) (string, []string) {
	var display strings.Builder
	var payloads []string

	i := 0
	for {
		rel := strings.Index(s[i:], openTag)
		if rel < 0 {
			rest := s[i:]
			if !final {
				rest = rest[:len(rest)-trailingPartialTag(rest)]
			}

			display.WriteString(rest)
			break
		}

		open := i + rel
		display.WriteString(s[i:open])

		payload, next, ok := scanPayload(s, open+len(openTag))
		if !ok {
			break
		}

		payloads = append(payloads, payload)
		i = next
	}

	return display.String(), payloads
}

// scanPayload bounds the JSON payload following an opener. The object is
// scanned with brace balancing (string-aware), never with a lazy search, so a
// "}" inside a string or an adjacent block cannot steal the closing delimiter.
func scanPayload(s string, start int) (payload string, next int, ok bool) {
	i := start
	for i < len(s) && isSpace(s[i]) {
		i++
	}

	if i < len(s) && s[i] == '{' {
		if end, balanced := scanJSONObject(s, i); balanced {
			j := end
			for j < len(s) && isSpace(s[j]) {
				j++
			}

			if strings.HasPrefix(s[j:], closeTag) {
				return s[i:end], j + len(closeTag), true
			}

			if strings.HasPrefix(closeTag, s[j:]) {
				// closing delimiter still arriving
				return "", 0, false
			}
		}
		// unbalanced braces fall through: if the closing delimiter is already
		// in the buffer the object can never balance, so the block is bounded
		// there and the normalizer rejects just this payload
	}

	// malformed or detached payload: bound it by the nearest closing delimiter
	// so scanning continues past the block
	if idx := strings.Index(s[start:], closeTag); idx >= 0 {
		return strings.TrimSpace(s[start : start+idx]), start + idx + len(closeTag), true
	}

	return "", 0, false
}

// scanJSONObject returns the index just past the object starting at s[start],
// tracking brace depth and JSON string/escape state.
func scanJSONObject(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}

	return 0, false
}

// trailingPartialTag reports how many trailing bytes of s are a proper prefix
// of a markup token, so a stray "[QUOTE_RECO" never flashes on screen while
// the rest of the delimiter is still in flight.
func trailingPartialTag(s string) int {
	tags := [...]string{openTag, closeTag, sectionOpenTag, sectionCloseTag}

	best := 0
	for _, tag := range tags {
		limit := min(len(s), len(tag)-1)

		for n := limit; n > best; n-- {
			if s[len(s)-n:] == tag[:n] {
				best = n
				break
			}
		}
	}

	return best
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
