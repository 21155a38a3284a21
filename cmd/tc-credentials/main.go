package main

import (
	"github.com/mazurov/tc-credentials/internal/client/commands"
	"github.com/mazurov/tc-credentials/internal/client/errors"
)

func main() {
	if err := commands.Execute(); err != nil {
		errors.ExitWithError(err)
	}
}
