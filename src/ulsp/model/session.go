package model

import (
	"time"

	"github.com/gofrs/uuid"
	languageserver "github.com/uber/ulsp-bridge/src/ulsp/gateway/language-server"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/executor"
)

// Session is the repository layer model for a language server session.
type Session struct {
	UUID          uuid.UUID
	LanguageID    string
	ProjectRoot   string
	WorkspaceRoot string
	Status        int
	StartedAt     time.Time
	LastUsed      time.Time
	StderrLog     string
	Conn          languageserver.Connection
	Process       executor.Process
}
