package mapper

import (
	"github.com/uber/ulsp-bridge/src/ulsp/entity"
	"github.com/uber/ulsp-bridge/src/ulsp/model"
)

// SessionToModel maps a Session entity to its model equivalent.
func SessionToModel(f *entity.Session) *model.Session {
	return &model.Session{
		UUID:          f.UUID,
		LanguageID:    f.Key.LanguageID,
		ProjectRoot:   f.Key.ProjectRoot,
		WorkspaceRoot: f.WorkspaceRoot,
		Status:        int(f.Status),
		StartedAt:     f.StartedAt,
		LastUsed:      f.LastUsed,
		StderrLog:     f.StderrLog,
		Conn:          f.Conn,
		Process:       f.Process,
	}
}

// ModelToSession maps a model Session to its entity equivalent.
func ModelToSession(f *model.Session) (*entity.Session, error) {
	return &entity.Session{
		UUID: f.UUID,
		Key: entity.SessionKey{
			LanguageID:  f.LanguageID,
			ProjectRoot: f.ProjectRoot,
		},
		WorkspaceRoot: f.WorkspaceRoot,
		Status:        entity.SessionStatus(f.Status),
		StartedAt:     f.StartedAt,
		LastUsed:      f.LastUsed,
		StderrLog:     f.StderrLog,
		Conn:          f.Conn,
		Process:       f.Process,
	}, nil
}

// SessionKeyToModelKey maps a SessionKey to the key the repository stores it under.
func SessionKeyToModelKey(k entity.SessionKey) string {
	return k.String()
}
