package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestSession(t *testing.T) {
	model := Session{LanguageID: "go", ProjectRoot: "/src"}
	assert.Equal(t, "go", model.LanguageID)
	assert.Nil(t, model.Conn)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
