package errors

import stderr "errors"

// New returns an error that formats as the given text.
// Each call to New returns a distinct error value even if the text is identical.
func New(msg string) error {
	return stderr.New(msg)
}

var (
	// NoArgumentsOnWireError reports that a tool call carried no arguments.
	NoArgumentsOnWireError = New("tool arguments are required")
	// NoToolNameOnWireError reports that a tool call carried no tool name.
	NoToolNameOnWireError = New("tool name is required")
	// RegistryClosedError reports that sessions can no longer be created because the bridge is shutting down.
	RegistryClosedError = New("session registry is shut down")
)

// IsBadRequest reports whether the error is a bad request from the caller.
func IsBadRequest(e error) bool {
	return stderr.Is(e, NoArgumentsOnWireError) || stderr.Is(e, NoToolNameOnWireError)
}
