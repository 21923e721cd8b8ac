// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package buildenv models the preprocessor definitions handed to a native build
package buildenv

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Define is a single preprocessor definition. Value is source text, exactly as the
// compiler should see it after substitution. An empty Value defines the bare name.
type Define struct {
	Name  string
	Value string
}

// Env is an ordered set of definitions. Entries are only ever appended.
type Env struct {
	defines []Define
}

func New(defines ...Define) *Env {
	e := &Env{}
	e.defines = append(e.defines, defines...)
	return e
}

// ValidName reports whether name is a valid C identifier
func ValidName(name string) bool {
	return identifierRegexp.MatchString(name)
}

// ParseDefine parses NAME or NAME=VALUE
func ParseDefine(s string) (Define, error) {
	name, value, _ := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ValidName(name) {
		return Define{}, fmt.Errorf("invalid define name: %q", name)
	}
	return Define{Name: name, Value: value}, nil
}

// Append adds a definition after all existing ones
func (e *Env) Append(define Define) error {
	if !ValidName(define.Name) {
		return fmt.Errorf("invalid define name: %q", define.Name)
	}
	e.defines = append(e.defines, define)
	return nil
}

// Defines returns a copy of the definitions in order
func (e *Env) Defines() []Define {
	ret := make([]Define, len(e.defines))
	copy(ret, e.defines)
	return ret
}

func (e *Env) Len() int {
	return len(e.defines)
}

// Publish registers symbol as a C string literal holding version
func Publish(env *Env, symbol string, version string) error {
	return env.Append(
		Define{
			Name:  symbol,
			Value: StringLiteral(version),
		},
	)
}

// StringLiteral quotes s as a C string literal
func StringLiteral(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\n':
			sb.WriteString(`\n`)
		case c < 0x20 || c == 0x7f:
			// Hex escapes would swallow a following hex digit
			fmt.Fprintf(&sb, `\%03o`, c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
