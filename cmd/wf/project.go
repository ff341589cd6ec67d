package main

import (
	"errors"
	"os"

	weft "github.com/weftlabs/weft"
	"github.com/weftlabs/weft/internal/workspace"
)

// openProject wires the engine for the workspace containing the current
// directory, or exits with a hint when there is none.
func openProject() *weft.Project {
	cwd, err := os.Getwd()
	if err != nil {
		FatalError("%v", err)
	}
	p, err := weft.Open(cwd)
	if err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			FatalErrorWithHint(err.Error(), "run 'wf init --prefix <PREFIX>' in your project root")
		}
		FatalError("%v", err)
	}
	return p
}
