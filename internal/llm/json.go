package llm

import (
	"fmt"
	"strings"
)

// ExtractJSONObject locates the first balanced {...} span inside free-form
// model output. Models wrap payloads in prose or code fences often enough
// that we never trust the raw text to be JSON.
func ExtractJSONObject(raw string) ([]byte, error) {
	text := strings.TrimSpace(raw)

	// Strip a leading code fence (``` or ```json) and a trailing one.
	if strings.HasPrefix(text, "```") {
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			text = strings.TrimSpace(text[idx+1:])
		} else {
			text = strings.TrimSpace(text[3:])
		}
	}
	if strings.HasSuffix(text, "```") {
		text = strings.TrimSpace(text[:len(text)-3])
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	depth := 0
	inString := false
	escaped := false
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return []byte(text[start : i+1]), nil
			}
		}
	}
	return nil, fmt.Errorf("unbalanced JSON object in response")
}
