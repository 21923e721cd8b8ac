// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package version holds the version of fwversion itself, not the firmware it describes.
package version

import (
	"fmt"
)

// These are populated at build time
var Version string
var CommitHash string

func GetVersionString() string {
	commit := CommitHash
	if commit == "" {
		commit = "unknown"
	}
	if Version != "" {
		return fmt.Sprintf("%s (commit %s)", Version, commit)
	}
	return fmt.Sprintf("devel (commit %s)", commit)
}
