package scanning

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencePattern     = regexp.MustCompile("```[A-Za-z]*")
	narrativePattern = regexp.MustCompile(`(?i)^(here is|here's|here are|the following|sure)[^\n:{\[]*[:\n]?\s*`)
)

// Sanitize strips the wrapping models like to put around JSON (code fences,
// a chatty first sentence) and returns the first balanced JSON object or
// array in raw. When no balanced value is found the cleaned text is
// returned so the caller's decode step reports the failure.
func Sanitize(raw string) string {
	text := fencePattern.ReplaceAllString(raw, "")
	text = strings.Trim(strings.TrimSpace(text), "`")
	text = strings.TrimSpace(text)
	text = narrativePattern.ReplaceAllString(text, "")

	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return text
	}
	if end := balancedEnd(text, start); end != -1 {
		return text[start : end+1]
	}
	return text
}

// balancedEnd returns the index of the bracket closing the one at start,
// or -1. Only the opening bracket's own type is counted and brackets
// inside string literals are ignored.
func balancedEnd(text string, start int) int {
	open := text[start]
	closing := byte('}')
	if open == '[' {
		closing = ']'
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
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
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// DecodeJSON sanitizes raw model output and unmarshals it into v.
func DecodeJSON(raw string, v any) error {
	clean := Sanitize(raw)
	if err := json.Unmarshal([]byte(clean), v); err != nil {
		return fmt.Errorf("%w: %v", ErrResponseParse, err)
	}
	return nil
}
