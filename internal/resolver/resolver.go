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
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/blinklabs-io/fwversion/internal/logging"
)

const (
	// Fallback is published whenever the describe query can't be satisfied.
	// Firmware matches on this exact value to detect an unknown version.
	Fallback = "v0.0.0-unknown"

	StatusLabel = "Building Firmware Version:"

	DefaultTimeout = 10 * time.Second
)

// ErrResolution is the single failure class of a describe query. It never leaves Resolve.
var ErrResolution = errors.New("version resolution failure")

// Describer runs a describe query against the repository containing dir and returns
// its raw output
type Describer interface {
	Describe(ctx context.Context, dir string) ([]byte, error)
}

type DescriberFunc func(ctx context.Context, dir string) ([]byte, error)

func (f DescriberFunc) Describe(ctx context.Context, dir string) ([]byte, error) {
	return f(ctx, dir)
}

type Resolver struct {
	describer Describer
	dir       string
	timeout   time.Duration
	status    io.Writer
	logger    *logging.Logger
}

type ResolverOptionFunc func(*Resolver)

func New(opts ...ResolverOptionFunc) *Resolver {
	r := &Resolver{
		describer: NewGitDescriber(""),
		timeout:   DefaultTimeout,
		status:    os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithDescriber specifies the describe backend
func WithDescriber(describer Describer) ResolverOptionFunc {
	return func(r *Resolver) {
		r.describer = describer
	}
}

// WithDir specifies the directory to describe. An empty dir means the working directory
func WithDir(dir string) ResolverOptionFunc {
	return func(r *Resolver) {
		r.dir = dir
	}
}

// WithTimeout bounds the describe query
func WithTimeout(timeout time.Duration) ResolverOptionFunc {
	return func(r *Resolver) {
		r.timeout = timeout
	}
}

// WithStatusWriter specifies where the status line is written
func WithStatusWriter(w io.Writer) ResolverOptionFunc {
	return func(r *Resolver) {
		r.status = w
	}
}

// WithLogger specifies the logger used for diagnostics
func WithLogger(logger *logging.Logger) ResolverOptionFunc {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// Resolve returns the version for the current build. It always returns a usable
// string, falling back to Fallback when the describe query fails for any reason.
func (r *Resolver) Resolve(ctx context.Context) string {
	logger := r.getLogger()
	version, err := r.Describe(ctx)
	if err != nil {
		logger.Warnf("%s, using %s", err, Fallback)
		version = Fallback
	} else {
		logger.Debugf("resolved version %q", version)
	}
	if r.status != nil {
		fmt.Fprintf(r.status, "%s %s\n", StatusLabel, version)
	}
	return version
}

type describeResult struct {
	out []byte
	err error
}

// Describe runs the describe query and normalizes its output. It returns once the
// timeout expires even if the describer ignores its context. All errors wrap
// ErrResolution.
func (r *Resolver) Describe(ctx context.Context) (string, error) {
	if r.describer == nil {
		return "", fmt.Errorf("%w: no describer configured", ErrResolution)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	// Buffered so an abandoned describer can still deliver its result and exit
	resultChan := make(chan describeResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resultChan <- describeResult{
					err: fmt.Errorf("describe panicked: %v", rec),
				}
			}
		}()
		out, err := r.describer.Describe(ctx, r.dir)
		resultChan <- describeResult{out: out, err: err}
	}()
	var result describeResult
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrResolution, ctx.Err())
	case result = <-resultChan:
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("%w: %w", ErrResolution, ctxErr)
	}
	if result.err != nil {
		return "", fmt.Errorf("%w: %w", ErrResolution, result.err)
	}
	return normalize(result.out)
}

func normalize(out []byte) (string, error) {
	if !utf8.Valid(out) {
		return "", fmt.Errorf("%w: output is not valid UTF-8", ErrResolution)
	}
	ret := strings.TrimSpace(string(out))
	if ret == "" {
		return "", fmt.Errorf("%w: empty output", ErrResolution)
	}
	return ret, nil
}

func (r *Resolver) getLogger() *logging.Logger {
	if r.logger != nil {
		return r.logger
	}
	return logging.GetLogger()
}
