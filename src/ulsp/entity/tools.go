package entity

// ToolName identifies a tool exposed to callers.
type ToolName string

const (
	// ToolHover returns hover information at a position.
	ToolHover ToolName = "get_hover"
	// ToolCompletions returns completion items at a position.
	ToolCompletions ToolName = "get_completions"
	// ToolDiagnostics returns diagnostics published for a document.
	ToolDiagnostics ToolName = "get_diagnostics"
)

// PositionToolArguments are the arguments of the hover and completions tools.
// Line and Character are zero based.
type PositionToolArguments struct {
	LanguageID  string `json:"languageId"`
	FilePath    string `json:"filePath"`
	Content     string `json:"content"`
	Line        uint32 `json:"line"`
	Character   uint32 `json:"character"`
	ProjectRoot string `json:"projectRoot"`
}

// DocumentToolArguments are the arguments of the diagnostics tool.
type DocumentToolArguments struct {
	LanguageID  string `json:"languageId"`
	FilePath    string `json:"filePath"`
	Content     string `json:"content"`
	ProjectRoot string `json:"projectRoot"`
}

// Document returns the document portion of position arguments.
func (a PositionToolArguments) Document() DocumentToolArguments {
	return DocumentToolArguments{
		LanguageID:  a.LanguageID,
		FilePath:    a.FilePath,
		Content:     a.Content,
		ProjectRoot: a.ProjectRoot,
	}
}

// Key returns the session key addressed by the arguments.
func (a DocumentToolArguments) Key() SessionKey {
	return SessionKey{LanguageID: a.LanguageID, ProjectRoot: a.ProjectRoot}
}

// ToolResult is the text payload returned from a tool call.
type ToolResult struct {
	Text    string
	IsError bool
}
