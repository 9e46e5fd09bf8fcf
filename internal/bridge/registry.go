package bridge

import (
	"crypto/rand"
	"io"
	"math/big"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/tomz197/sieve/internal/tilt"
)

// ErrUnknownCode is returned for codes that are not paired with a session.
var ErrUnknownCode = errors.New("unknown pairing code")

// CodeLength is the number of characters in a pairing code.
const CodeLength = 6

// codeChars leaves out characters that are easy to confuse (0/O, 1/I).
const codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const maxCodeAttempts = 16

// Target is what a pairing code leads to: the session's tilt fuser and a
// callback for notices the player must see.
type Target struct {
	Fuser  *tilt.Fuser
	Notice func(error)
}

// Registry maps pairing codes to targets. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	targets map[string]Target
	random  io.Reader
}

// NewRegistry returns an empty registry drawing codes from crypto/rand.
func NewRegistry() *Registry {
	return &Registry{
		targets: make(map[string]Target),
		random:  rand.Reader,
	}
}

// Pair registers t under a fresh code and returns the code.
func (r *Registry) Pair(t Target) (string, error) {
	if t.Fuser == nil {
		return "", errors.New("pair: nil fuser")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := generateCode(r.random, CodeLength)
		if err != nil {
			return "", errors.Wrap(err, "pair")
		}
		if _, exists := r.targets[code]; exists {
			continue
		}
		r.targets[code] = t
		return code, nil
	}
	return "", errors.New("pair: no free code")
}

// Unpair forgets code. Unknown codes are ignored.
func (r *Registry) Unpair(code string) {
	r.mu.Lock()
	delete(r.targets, NormalizeCode(code))
	r.mu.Unlock()
}

// Lookup returns the target paired with code.
func (r *Registry) Lookup(code string) (Target, error) {
	code = NormalizeCode(code)
	r.mu.RLock()
	t, ok := r.targets[code]
	r.mu.RUnlock()
	if !ok {
		return Target{}, errors.Wrapf(ErrUnknownCode, "%q", code)
	}
	return t, nil
}

// Len returns the number of paired sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets)
}

// NormalizeCode makes user-typed codes comparable.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func generateCode(random io.Reader, n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, err := rand.Int(random, max)
		if err != nil {
			return "", err
		}
		b[i] = codeChars[idx.Int64()]
	}
	return string(b), nil
}
