// Package jsonx extracts JSON payloads from model prose. Model responses wrap
// JSON in markdown fences, explanations or trailing commentary, so extraction
// is inherently best-effort: every call site must supply its own fallback for
// the no-JSON case and must never treat a miss as fatal.
package jsonx

import (
	"encoding/json"
	"errors"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNoJSON is returned when no candidate JSON value is found in the text.
var ErrNoJSON = errors.New("no JSON value found in text")

// FirstObject returns the first balanced {...} span in text, honoring string
// literals and escape sequences. The boolean is false when no balanced object
// exists.
func FirstObject(text string) (string, bool) {
	return firstBalanced(text, '{', '}')
}

// FirstArray returns the first balanced [...] span in text.
func FirstArray(text string) (string, bool) {
	return firstBalanced(text, '[', ']')
}

func firstBalanced(text string, open, close byte) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if start == -1 {
			if c == open {
				start = i
				depth = 1
			}
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// DecodeFirstObject finds the first balanced object in text and unmarshals it
// into v. Malformed spans are passed through jsonrepair before giving up, so
// common model mistakes (trailing commas, single quotes, unquoted keys) still
// decode. Returns ErrNoJSON when text carries no object at all.
func DecodeFirstObject(text string, v any) error {
	raw, ok := FirstObject(text)
	if !ok {
		return ErrNoJSON
	}
	return decode(raw, v)
}

// DecodeFirstArray is DecodeFirstObject for the first balanced array.
func DecodeFirstArray(text string, v any) error {
	raw, ok := FirstArray(text)
	if !ok {
		return ErrNoJSON
	}
	return decode(raw, v)
}

func decode(raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(repaired), v)
}
