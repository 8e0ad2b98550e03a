package mapper

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/uber/ulsp-bridge/src/ulsp/entity"
)

const (
	// NoHoverText is returned when the server has no hover for the position.
	NoHoverText = "No hover information available"
	// NoCompletionsText is returned when the server has no completion items for the position.
	NoCompletionsText = "No completions available"
	// DiagnosticsTimeoutText is returned when no diagnostics were pushed within the wait budget.
	DiagnosticsTimeoutText = "No diagnostics received within timeout"

	_indent = "  "
)

// HoverResultToToolResult maps a raw textDocument/hover result to the tool payload, which is the hover contents.
func HoverResultToToolResult(raw json.RawMessage) (*entity.ToolResult, error) {
	if isNull(raw) {
		return &entity.ToolResult{Text: NoHoverText}, nil
	}
	var hover struct {
		Contents json.RawMessage `json:"contents"`
	}
	if err := json.Unmarshal(raw, &hover); err != nil {
		return nil, wrapErrParse(err)
	}
	if isEmptyHoverContents(hover.Contents) {
		return &entity.ToolResult{Text: NoHoverText}, nil
	}
	text, err := prettyJSON(hover.Contents)
	if err != nil {
		return nil, err
	}
	return &entity.ToolResult{Text: text}, nil
}

// CompletionResultToToolResult maps a raw textDocument/completion result, either an item array or a completion list.
func CompletionResultToToolResult(raw json.RawMessage) (*entity.ToolResult, error) {
	if isNull(raw) {
		return &entity.ToolResult{Text: NoCompletionsText}, nil
	}
	empty, err := isEmptyCompletion(raw)
	if err != nil {
		return nil, err
	}
	if empty {
		return &entity.ToolResult{Text: NoCompletionsText}, nil
	}
	text, err := prettyJSON(raw)
	if err != nil {
		return nil, err
	}
	return &entity.ToolResult{Text: text}, nil
}

// DiagnosticsToToolResult maps a pushed diagnostics list to the tool payload.
func DiagnosticsToToolResult(diagnostics json.RawMessage) (*entity.ToolResult, error) {
	if isNull(diagnostics) {
		diagnostics = json.RawMessage("[]")
	}
	text, err := prettyJSON(diagnostics)
	if err != nil {
		return nil, err
	}
	return &entity.ToolResult{Text: text}, nil
}

// DiagnosticsTimeoutToolResult is the payload of a diagnostics call that received no push in time. It is not an error.
func DiagnosticsTimeoutToolResult() *entity.ToolResult {
	return &entity.ToolResult{Text: DiagnosticsTimeoutText}
}

// ErrorToToolResult reports a request level failure in band.
func ErrorToToolResult(err error) *entity.ToolResult {
	return &entity.ToolResult{
		Text:    fmt.Sprintf("Error: %v", err),
		IsError: true,
	}
}

// ToolResultToToolCallResult maps a tool result to the tools/call response.
func ToolResultToToolCallResult(r *entity.ToolResult) *entity.ToolCallResult {
	return &entity.ToolCallResult{
		Content: []entity.TextContent{{Type: "text", Text: r.Text}},
		IsError: r.IsError,
	}
}

func prettyJSON(raw json.RawMessage) (string, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", _indent); err != nil {
		return "", wrapErrParse(err)
	}
	return out.String(), nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Hover contents may be a MarkedString, a MarkedString array or MarkupContent.
func isEmptyHoverContents(raw json.RawMessage) bool {
	if isNull(raw) {
		return true
	}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}
	switch v := value.(type) {
	case string:
		return v == ""
	case []interface{}:
		return len(v) == 0
	case map[string]interface{}:
		s, ok := v["value"].(string)
		return ok && s == ""
	}
	return false
}

func isEmptyCompletion(raw json.RawMessage) (bool, error) {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return false, wrapErrParse(err)
	}
	switch v := value.(type) {
	case []interface{}:
		return len(v) == 0, nil
	case map[string]interface{}:
		items, _ := v["items"].([]interface{})
		return len(items) == 0, nil
	}
	return false, nil
}
