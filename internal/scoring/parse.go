package scoring

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseError reports a model response that could not be turned into a Result.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "invalid AI JSON: " + e.Reason
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// parseResult extracts the first well-formed feedback object from a raw model
// response. The model is instructed to return bare JSON but routinely wraps it
// in code fences or prose, so: strip fences, drop control characters, then
// take the outermost brace pair and decode it. Required fields are "ratings"
// (number) and "feedback" (string).
func parseResult(text string) (Result, error) {
	jsonString := strings.TrimSpace(text)
	if m := codeFenceRe.FindStringSubmatch(jsonString); m != nil {
		jsonString = strings.TrimSpace(m[1])
	}

	jsonString = stripControlChars(jsonString)

	start := strings.Index(jsonString, "{")
	end := strings.LastIndex(jsonString, "}")
	if start == -1 || end == -1 || start > end {
		return Result{}, &ParseError{Reason: "could not find valid JSON block"}
	}
	jsonString = jsonString[start : end+1]

	var raw struct {
		Ratings  *float64 `json:"ratings"`
		Feedback *string  `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(jsonString), &raw); err != nil {
		return Result{}, &ParseError{Reason: err.Error()}
	}
	if raw.Ratings == nil {
		return Result{}, &ParseError{Reason: `missing "ratings" field`}
	}
	if raw.Feedback == nil {
		return Result{}, &ParseError{Reason: `missing "feedback" field`}
	}

	rating := int(*raw.Ratings)
	if rating < 0 || rating > 10 {
		return Result{}, &ParseError{Reason: fmt.Sprintf("rating %d out of range", rating)}
	}

	return Result{Rating: rating, Feedback: *raw.Feedback}, nil
}

// stripControlChars removes ASCII control characters, replacing newlines with
// spaces so values spanning lines stay separated.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r':
			return ' '
		default:
			if r < 0x20 {
				return -1
			}
			return r
		}
	}, s)
}
