// Package entity contains the domain logic for the ulsp-bridge service.
package entity

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	languageserver "github.com/uber/ulsp-bridge/src/ulsp/gateway/language-server"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/executor"
	"go.lsp.dev/uri"
)

// SessionKey identifies a session by analyzed language and project.
type SessionKey struct {
	LanguageID  string `json:"languageId" zap:"languageId"`
	ProjectRoot string `json:"projectRoot" zap:"projectRoot"`
}

// String implements fmt.Stringer.
func (k SessionKey) String() string {
	return fmt.Sprintf("%s:%s", k.LanguageID, k.ProjectRoot)
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus int

const (
	// SessionStatusInitializing means the handshake is in progress.
	SessionStatusInitializing SessionStatus = iota
	// SessionStatusReady means the session accepts tool calls.
	SessionStatusReady
	// SessionStatusFailed means creation failed. Failed sessions are never stored.
	SessionStatusFailed
)

// String implements fmt.Stringer.
func (s SessionStatus) String() string {
	switch s {
	case SessionStatusInitializing:
		return "initializing"
	case SessionStatusReady:
		return "ready"
	case SessionStatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("SessionStatus(%d)", int(s))
	}
}

// Session pairs one language server process and its connection for one SessionKey.
type Session struct {
	UUID          uuid.UUID                 `json:"uuid" zap:"uuid"`
	Key           SessionKey                `json:"key" zap:"key"`
	WorkspaceRoot string                    `json:"workspaceRoot" zap:"workspaceRoot"`
	Status        SessionStatus             `json:"status" zap:"status"`
	StartedAt     time.Time                 `json:"startedAt" zap:"startedAt"`
	LastUsed      time.Time                 `json:"lastUsed" zap:"lastUsed"`
	StderrLog     string                    `json:"stderrLog" zap:"stderrLog"`
	Conn          languageserver.Connection `json:"-" zap:"-"`
	Process       executor.Process          `json:"-" zap:"-"`
}

// DocumentIdentity correlates pushed diagnostics with the session and document that triggered them.
type DocumentIdentity struct {
	SessionUUID uuid.UUID
	URI         uri.URI
}

// String implements fmt.Stringer.
func (d DocumentIdentity) String() string {
	return fmt.Sprintf("%s %s", d.SessionUUID, d.URI)
}

// ServerInvocation is the command line used to start a language server.
type ServerInvocation struct {
	Command string   `json:"command" yaml:"command"`
	Args    []string `json:"args" yaml:"args"`
}

// IsZero reports whether no command is set.
func (s ServerInvocation) IsZero() bool {
	return s.Command == ""
}
