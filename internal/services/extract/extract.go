// Package extract pulls the first JSON object out of free-form model output.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoObject is returned when the text holds no balanced {...} region.
var ErrNoObject = errors.New("no json object found")

// Result describes one extraction attempt.
type Result struct {
	Raw    string // input text
	Block  string // the balanced region, empty on ErrNoObject
	Parsed bool
	Err    error
}

// Object finds the first balanced JSON object in text and decodes it into dst.
// It never panics. On failure Parsed is false and Err is ErrNoObject or wraps
// the decode error.
func Object(text string, dst interface{}) Result {
	res := Result{Raw: text}
	block, ok := FirstBlock(text)
	if !ok {
		res.Err = ErrNoObject
		return res
	}
	res.Block = block
	if err := json.Unmarshal([]byte(block), dst); err != nil {
		res.Err = fmt.Errorf("decode json object: %w", err)
		return res
	}
	res.Parsed = true
	return res
}

// FirstBlock returns the first balanced {...} substring. Braces inside string
// literals are ignored and backslash escapes are honoured.
func FirstBlock(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if start < 0 {
			if ch == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
