package scheduler

import (
	"os"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/Justype/quickslurm/internal/utils"
)

// DefaultShebang starts a login shell so module environments are loaded.
const DefaultShebang = "#!/bin/bash -l"

// RenderInlineScript builds a batch script that runs command under bash strict
// mode, optionally after changing to workdir.
func RenderInlineScript(command []string, shebang, workdir string) string {
	if shebang == "" {
		shebang = DefaultShebang
	}
	lines := []string{shebang, "set -euo pipefail"}
	if workdir != "" {
		lines = append(lines, "cd "+shellquote.Join(workdir))
	}
	lines = append(lines, shellquote.Join(command...))
	return strings.Join(lines, "\n") + "\n"
}

// WriteInlineScript writes content to a new executable temp file in dir
// (the system temp dir when empty) and returns its path.
// The caller removes the file.
func WriteInlineScript(dir, content string) (string, error) {
	f, err := os.CreateTemp(dir, "quickslurm-*.sh")
	if err != nil {
		return "", NewScriptCreationError(dir, err)
	}
	path := f.Name()
	fail := func(err error) (string, error) {
		f.Close()
		os.Remove(path)
		return "", NewScriptCreationError(path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		return fail(err)
	}
	if err := f.Chmod(utils.PermExec); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", NewScriptCreationError(path, err)
	}
	return path, nil
}
