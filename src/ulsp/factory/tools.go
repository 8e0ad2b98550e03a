package factory

import (
	"fmt"
	"math/rand"

	"github.com/uber/ulsp-bridge/src/ulsp/entity"
)

// PositionToolArguments returns hover/completion arguments for a random position in a TypeScript file.
func PositionToolArguments(projectRoot string) *entity.PositionToolArguments {
	return &entity.PositionToolArguments{
		LanguageID:  "typescript",
		FilePath:    fmt.Sprintf("src/file%d.ts", rand.Intn(1000)),
		Content:     "const greeting: string = 'hello'\n",
		Line:        uint32(rand.Intn(100)),
		Character:   uint32(rand.Intn(100)),
		ProjectRoot: projectRoot,
	}
}

// DocumentToolArguments returns diagnostics arguments for a TypeScript file.
func DocumentToolArguments(projectRoot string) *entity.DocumentToolArguments {
	args := PositionToolArguments(projectRoot).Document()
	return &args
}
