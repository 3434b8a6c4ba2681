// Package vssopts holds the functional-options configuration surface for
// opening a volume: the read-only mode flag, the cooperative abort token,
// diagnostic verbosity, the narrow-text codepage used only for formatting,
// and the byte offset of the volume header within its source. Modeled on
// the With* functional-option idiom of rstms-iso-kit/pkg/options.
package vssopts

import (
	"sync/atomic"

	"github.com/deploymenttheory/go-vshadow/pkg/vsslog"
)

// AbortToken is an asynchronously settable cooperative cancellation flag
// that long-running loaders poll between block reads.
type AbortToken struct {
	flag atomic.Bool
}

// NewAbortToken returns a fresh, unset AbortToken.
func NewAbortToken() *AbortToken {
	return &AbortToken{}
}

// Abort sets the flag. Safe to call from any goroutine at any time.
func (t *AbortToken) Abort() {
	if t == nil {
		return
	}
	t.flag.Store(true)
}

// Aborted reports whether Abort has been called.
func (t *AbortToken) Aborted() bool {
	if t == nil {
		return false
	}
	return t.flag.Load()
}

// Options is the resolved configuration for an open Volume.
type Options struct {
	ReadOnly           bool
	AbortToken         *AbortToken
	VerboseDiagnostics bool
	NarrowTextCodepage int
	VolumeOffset       int64
	Logger             *vsslog.Logger
}

// Option mutates Options during Open.
type Option func(*Options)

// Default returns the baseline Options: read-only, no abort token, no
// diagnostics, codepage 0 (unset), zero volume offset.
func Default() Options {
	return Options{
		ReadOnly: true,
		Logger:   vsslog.Discard(),
	}
}

// WithAbortToken installs a cancellation token the caller can later signal
// to abort an in-progress catalog or store load.
func WithAbortToken(t *AbortToken) Option {
	return func(o *Options) {
		o.AbortToken = t
	}
}

// WithVerboseDiagnostics sets Options.VerboseDiagnostics. No package in
// this module reads the field; how much the configured Logger emits is
// decided by its own backend.
func WithVerboseDiagnostics(verbose bool) Option {
	return func(o *Options) {
		o.VerboseDiagnostics = verbose
	}
}

// WithNarrowTextCodepage sets Options.NarrowTextCodepage. No package in
// this module reads the field; diagnostic text is formatted without
// reference to it.
func WithNarrowTextCodepage(codepage int) Option {
	return func(o *Options) {
		o.NarrowTextCodepage = codepage
	}
}

// WithVolumeOffset sets the byte offset of the volume header within the
// byte source, for the case where the VSS-bearing volume is embedded
// inside a larger image.
func WithVolumeOffset(offset int64) Option {
	return func(o *Options) {
		o.VolumeOffset = offset
	}
}

// WithLogger installs the diagnostic sink.
func WithLogger(l *vsslog.Logger) Option {
	return func(o *Options) {
		if l == nil {
			l = vsslog.Discard()
		}
		o.Logger = l
	}
}

// Apply builds an Options value from the default plus the given options.
func Apply(opts ...Option) Options {
	o := Default()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
