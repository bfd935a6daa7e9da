package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	jsonFence = "```json"
	fence     = "```"
)

// ExtractJSON pulls the JSON payload out of free-form model text. The model
// is asked for raw JSON but routinely wraps it in markdown fences, so three
// encodings are tolerated, tried in order:
//
//  1. a ```json fence: content between the first such fence and the next ```
//  2. any generic ``` fence: content between the first and second markers
//  3. no fence: the whole trimmed text
//
// A missing closing fence yields everything after the opening one. The
// result is not validated here; callers parse it.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if i := strings.Index(text, jsonFence); i >= 0 {
		rest := text[i+len(jsonFence):]
		if j := strings.Index(rest, fence); j >= 0 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest)
	}

	if i := strings.Index(text, fence); i >= 0 {
		rest := text[i+len(fence):]
		if j := strings.Index(rest, fence); j >= 0 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest)
	}

	return text
}

// decodeResponse extracts and parses a model response into v. A parse
// failure is a hard stage failure wrapped as ErrMalformedResponse.
func decodeResponse(text string, v any) error {
	payload := ExtractJSON(text)
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
