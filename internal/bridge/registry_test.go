package bridge

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomz197/sieve/internal/tilt"
)

func TestRegistryPairAndLookup(t *testing.T) {
	reg := NewRegistry()
	f := tilt.NewFuser(tilt.DefaultParams())

	code, err := reg.Pair(Target{Fuser: f})
	require.NoError(t, err)
	assert.Len(t, code, CodeLength)
	for _, ch := range code {
		assert.True(t, strings.ContainsRune(codeChars, ch), "unexpected %q", ch)
	}

	got, err := reg.Lookup(" " + strings.ToLower(code) + " ")
	require.NoError(t, err)
	assert.Same(t, f, got.Fuser)
	assert.Equal(t, 1, reg.Len())

	reg.Unpair(code)
	_, err = reg.Lookup(code)
	assert.ErrorIs(t, err, ErrUnknownCode)
	assert.Zero(t, reg.Len())
}

func TestRegistryCodesAreUnique(t *testing.T) {
	reg := NewRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := reg.Pair(Target{Fuser: tilt.NewFuser(tilt.DefaultParams())})
		require.NoError(t, err)
		require.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestRegistryRetriesOnCollision(t *testing.T) {
	reg := NewRegistry()
	// Zero bytes always produce "AAAAAA".
	reg.random = bytes.NewReader(make([]byte, 64))

	f := tilt.NewFuser(tilt.DefaultParams())
	code, err := reg.Pair(Target{Fuser: f})
	require.NoError(t, err)
	assert.Equal(t, "AAAAAA", code)

	_, err = reg.Pair(Target{Fuser: f})
	assert.Error(t, err)
}

func TestRegistryRejectsNilFuser(t *testing.T) {
	_, err := NewRegistry().Pair(Target{})
	assert.Error(t, err)
}

func TestGenerateCodeReaderError(t *testing.T) {
	_, err := generateCode(errReader{}, CodeLength)
	assert.Error(t, err)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("boom") }
