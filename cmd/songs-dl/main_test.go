package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/lfavole/songs-dl/cmd/internal/testcmds"
)

func TestMain(m *testing.M) {
	testcmds.RegisterTransport()

	os.Exit(testscript.RunMain(m, map[string]func() int{
		"songs-dl": func() int { main(); return 0 },
	}))
}

func TestScripts(t *testing.T) {
	t.Parallel()

	testscript.Run(t, testscript.Params{
		Dir:                 "testdata/scripts",
		RequireExplicitExec: true,
	})
}
