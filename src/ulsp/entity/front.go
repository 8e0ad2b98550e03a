package entity

import "encoding/json"

// ToolCallParams are the parameters of a tools/call request.
type ToolCallParams struct {
	Name      ToolName        `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// TextContent is a single text block of a tool call result.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolCallResult is the response to a tools/call request.
type ToolCallResult struct {
	Content []TextContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// ToolDescription describes one tool in a tools/list response.
type ToolDescription struct {
	Name        ToolName    `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema is the JSON schema of a tool's arguments.
type InputSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]SchemaProperty `json:"properties"`
	Required   []string                  `json:"required"`
}

// SchemaProperty describes one argument of a tool.
type SchemaProperty struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ToolListResult is the response to a tools/list request.
type ToolListResult struct {
	Tools []ToolDescription `json:"tools"`
}

// ServerInfo names the bridge in the initialize response.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the response to the front initialize request.
type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      ServerInfo             `json:"serverInfo"`
}
