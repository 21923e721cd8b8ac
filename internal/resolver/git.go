// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Nearest tag, commit id when there are no tags, and a dirty marker
var describeArgs = []string{"describe", "--tags", "--always", "--dirty"}

// GitDescriber runs "git describe" as an external process
type GitDescriber struct {
	binary string
}

// NewGitDescriber returns a describer using the given git binary, or "git" from PATH
func NewGitDescriber(binary string) *GitDescriber {
	if binary == "" {
		binary = "git"
	}
	return &GitDescriber{binary: binary}
}

func (g *GitDescriber) Describe(ctx context.Context, dir string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, g.binary, describeArgs...)
	cmd.Dir = dir
	cmd.Env = append(
		os.Environ(),
		// Never wait on a credential or pager prompt
		"GIT_TERMINAL_PROMPT=0",
		"GIT_PAGER=cat",
		"GIT_OPTIONAL_LOCKS=0",
	)
	// Don't hang on pipes held open by a killed process's children
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf(
				"%s %s exited with code %d: %s",
				g.binary,
				strings.Join(describeArgs, " "),
				exitErr.ExitCode(),
				strings.TrimSpace(string(out)),
			)
		}
		return nil, fmt.Errorf("failed to run %s: %w", g.binary, err)
	}
	return out, nil
}
