package vssopts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbortTokenNilSafe(t *testing.T) {
	var tok *AbortToken
	assert.False(t, tok.Aborted())
	assert.NotPanics(t, tok.Abort)
}

func TestAbortToken(t *testing.T) {
	tok := NewAbortToken()
	assert.False(t, tok.Aborted())
	tok.Abort()
	assert.True(t, tok.Aborted())
}

func TestApplyDefaults(t *testing.T) {
	o := Apply()
	assert.True(t, o.ReadOnly)
	assert.Nil(t, o.AbortToken)
	assert.False(t, o.VerboseDiagnostics)
	assert.Equal(t, int64(0), o.VolumeOffset)
}

func TestApplyWithOptions(t *testing.T) {
	tok := NewAbortToken()
	o := Apply(
		WithAbortToken(tok),
		WithVerboseDiagnostics(true),
		WithVolumeOffset(1024),
		WithNarrowTextCodepage(1252),
	)
	assert.Same(t, tok, o.AbortToken)
	assert.True(t, o.VerboseDiagnostics)
	assert.Equal(t, int64(1024), o.VolumeOffset)
	assert.Equal(t, 1252, o.NarrowTextCodepage)
}

func TestWithLoggerNilFallsBackToDiscard(t *testing.T) {
	o := Apply(WithLogger(nil))
	assert.NotNil(t, o.Logger)
}
