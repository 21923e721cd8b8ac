// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package buildenv

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultHeaderGuard = "FWVERSION_H"

// POSIX shell metacharacters, quoting characters and glob characters
const flagSpecialChars = "\\\"'$` \t|&;<>()*?[]{}#~!"

// Flag returns the compiler flag for the definition, with the value escaped for a
// build system that splits flags like a shell. A value of "v1.0.2" (quotes included)
// becomes -DAPP_VERSION=\"v1.0.2\".
func (d Define) Flag() string {
	if d.Value == "" {
		return "-D" + d.Name
	}
	var sb strings.Builder
	sb.WriteString("-D")
	sb.WriteString(d.Name)
	sb.WriteByte('=')
	for _, r := range d.Value {
		if strings.ContainsRune(flagSpecialChars, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// RenderFlags returns all definitions as a single line of compiler flags
func (e *Env) RenderFlags() []byte {
	flags := make([]string, 0, len(e.defines))
	for _, define := range e.defines {
		flags = append(flags, define.Flag())
	}
	return []byte(strings.Join(flags, " ") + "\n")
}

// RenderHeader returns a C header with one #define per definition
func (e *Env) RenderHeader(guard string) []byte {
	if guard == "" {
		guard = defaultHeaderGuard
	}
	var buf bytes.Buffer
	buf.WriteString("// Code generated by fwversion. DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "#ifndef %s\n#define %s\n\n", guard, guard)
	for _, define := range e.defines {
		if define.Value == "" {
			fmt.Fprintf(&buf, "#define %s\n", define.Name)
			continue
		}
		fmt.Fprintf(&buf, "#define %s %s\n", define.Name, define.Value)
	}
	fmt.Fprintf(&buf, "\n#endif // %s\n", guard)
	return buf.Bytes()
}

// HeaderGuard derives an include guard from a header file path
func HeaderGuard(path string) string {
	base := filepath.Base(path)
	if path == "" || base == "." || base == string(filepath.Separator) {
		return defaultHeaderGuard
	}
	guard := strings.Map(
		func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z':
				return r - 'a' + 'A'
			case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
				return r
			default:
				return '_'
			}
		},
		base,
	)
	if guard[0] >= '0' && guard[0] <= '9' {
		guard = "_" + guard
	}
	return guard
}

// WriteFile writes data to path unless the file already holds exactly that data,
// so build systems don't see a fresh timestamp. It reports whether it wrote.
func WriteFile(path string, data []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("error creating output directory: %w", err)
		}
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".fwversion-*")
	if err != nil {
		return false, fmt.Errorf("error creating output file: %w", err)
	}
	tmpName := tmpFile.Name()
	defer os.Remove(tmpName)
	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return false, fmt.Errorf("error writing output file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return false, fmt.Errorf("error writing output file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return false, fmt.Errorf("error writing output file: %w", err)
	}
	// Readers never see a partially written header
	if err := os.Rename(tmpName, path); err != nil {
		return false, fmt.Errorf("error writing output file: %w", err)
	}
	return true, nil
}
