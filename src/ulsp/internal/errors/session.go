package errors

import (
	stderr "errors"
	"fmt"
)

// HandshakeStage names the step of session creation that failed.
type HandshakeStage string

// Handshake stages.
const (
	StageInitialize  HandshakeStage = "initialize"
	StageInitialized HandshakeStage = "initialized"
)

// ConfigurationMissingError indicates that no invocation is configured for a language.
type ConfigurationMissingError struct {
	LanguageID string
}

// Error is an implementation of the error interface.
func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("no language server configured for %q", e.LanguageID)
}

// SpawnError indicates that the language server process could not be started.
type SpawnError struct {
	LanguageID string
	Err        error
}

// Error is an implementation of the error interface.
func (e *SpawnError) Error() string {
	return fmt.Sprintf("starting language server for %q: %v", e.LanguageID, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// HandshakeError indicates that the language server did not complete initialization.
type HandshakeError struct {
	LanguageID string
	Stage      HandshakeStage
	Err        error
}

// Error is an implementation of the error interface.
func (e *HandshakeError) Error() string {
	return fmt.Sprintf("%s handshake with language server for %q failed: %v", e.Stage, e.LanguageID, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// UnknownToolError indicates a tool call for a name that is not registered.
type UnknownToolError struct {
	Name string
}

// Error is an implementation of the error interface.
func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// IsConfigurationMissing reports whether ConfigurationMissingError is part of the error chain.
func IsConfigurationMissing(e error) bool {
	var cm *ConfigurationMissingError
	return stderr.As(e, &cm)
}

// IsUnknownTool reports whether UnknownToolError is part of the error chain.
func IsUnknownTool(e error) bool {
	var ut *UnknownToolError
	return stderr.As(e, &ut)
}

// IsSessionCreation reports whether the error came from spawning or initializing a session.
func IsSessionCreation(e error) bool {
	var se *SpawnError
	var he *HandshakeError
	return stderr.As(e, &se) || stderr.As(e, &he)
}
