package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// APIError is an error envelope found in an otherwise successful response.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// ShapeError reports that a response envelope lacks the expected
// choices[0].message.content path.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return e.Reason
}

// Content returns the first choice's message content. The error is a
// *Failure, *APIError or *ShapeError.
func Content(r Result) (string, error) {
	if r.Failure != nil {
		return "", r.Failure
	}
	if apiErr, ok := r.Payload["error"]; ok {
		return "", &APIError{Message: describeAPIError(apiErr)}
	}
	return firstContent(r.Payload)
}

// Extract returns the first choice's message content, or a displayable
// error string. It handles every Result shape without panicking.
func Extract(r Result) string {
	text, err := Content(r)
	if err == nil {
		return text
	}

	var (
		failure *Failure
		apiErr  *APIError
	)
	switch {
	case errors.As(err, &failure):
		return formatFailure(failure)
	case errors.As(err, &apiErr):
		return "Error: " + apiErr.Message
	default:
		return fmt.Sprintf("Error parsing response: %v\n\nFull response: %s", err, PrettyPayload(r))
	}
}

func formatFailure(f *Failure) string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(f.Message)
	if details := strings.TrimSpace(string(f.Details)); details != "" {
		b.WriteString("\n\nDetails: ")
		b.WriteString(details)
	}
	return b.String()
}

func describeAPIError(v any) string {
	switch e := v.(type) {
	case string:
		return e
	case map[string]any:
		if msg, ok := e["message"].(string); ok && msg != "" {
			if typ, ok := e["type"].(string); ok && typ != "" {
				return fmt.Sprintf("%s (%s)", msg, typ)
			}
			return msg
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func firstContent(payload map[string]any) (string, error) {
	rawChoices, ok := payload["choices"]
	if !ok {
		return "", shapeError(`missing key "choices"`)
	}
	choices, ok := rawChoices.([]any)
	if !ok {
		return "", shapeError(`"choices" is not a list`)
	}
	if len(choices) == 0 {
		return "", shapeError(`"choices" is empty`)
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return "", shapeError("choices[0] is not an object")
	}
	rawMessage, ok := choice["message"]
	if !ok {
		return "", shapeError(`choices[0] is missing key "message"`)
	}
	message, ok := rawMessage.(map[string]any)
	if !ok {
		return "", shapeError("choices[0].message is not an object")
	}
	rawContent, ok := message["content"]
	if !ok {
		return "", shapeError(`choices[0].message is missing key "content"`)
	}
	content, ok := rawContent.(string)
	if !ok {
		return "", shapeError("choices[0].message.content is not a string")
	}
	return content, nil
}

func shapeError(reason string) error {
	return &ShapeError{Reason: reason}
}

// PrettyPayload renders the decoded envelope with two-space indentation.
func PrettyPayload(r Result) string {
	if r.Payload == nil {
		if len(r.Raw) > 0 {
			return string(r.Raw)
		}
		return "{}"
	}
	data, err := json.MarshalIndent(r.Payload, "", "  ")
	if err != nil {
		return string(r.Raw)
	}
	return string(data)
}
