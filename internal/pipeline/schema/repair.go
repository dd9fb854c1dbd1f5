package schema

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractJSON pulls the JSON body out of a model response that may be
// wrapped in prose or markdown fences. Returns the body and whether any
// stripping was needed.
func ExtractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	repaired := false

	// Markdown code fences around the body.
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
		repaired = true
	}

	// Leading/trailing commentary outside the outermost bracket pair.
	start := strings.IndexAny(s, "{[")
	if start > 0 {
		s = s[start:]
		repaired = true
	}
	if end := lastBalancedEnd(s); end > 0 && end < len(s) {
		s = s[:end]
		repaired = true
	}
	return strings.TrimSpace(s), repaired
}

// lastBalancedEnd scans for the position just past the outermost closing
// bracket, ignoring brackets inside string literals. Returns -1 when the
// body never balances (truncated output).
func lastBalancedEnd(s string) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
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
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// CloseTruncated attempts to finish a body the model cut off mid-stream:
// closes an open string literal, drops a dangling comma or partial value,
// then closes every unbalanced brace/bracket in order.
func CloseTruncated(s string) (string, bool) {
	if gjson.Valid(s) {
		return s, false
	}

	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
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
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	out := s
	if inString {
		out += `"`
	}
	out = strings.TrimRight(out, " \t\r\n")
	// A dangling comma or key fragment before the close would still be
	// invalid; trim back to the last complete element.
	out = trimDangling(out)
	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	if !gjson.Valid(out) {
		return s, false
	}
	return out, true
}

// trimDangling removes a trailing comma or an incomplete "key": fragment.
func trimDangling(s string) string {
	t := strings.TrimRight(s, " \t\r\n")
	t = strings.TrimSuffix(t, ",")
	if strings.HasSuffix(t, ":") {
		// drop the orphaned key
		if q := strings.LastIndex(t[:len(t)-1], `,`); q >= 0 {
			t = t[:q]
		}
	}
	return t
}

// StripTrailingCommas removes commas that directly precede a closing
// brace/bracket, which strict decoding rejects.
func StripTrailingCommas(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	repaired := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
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
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				repaired = true
				continue // drop the comma
			}
		}
		b.WriteByte(c)
	}
	return b.String(), repaired
}
