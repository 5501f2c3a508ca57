// Package keyring manages rotating pools of API credentials.
package keyring

import (
	"errors"
	"strings"
	"sync"
)

// ErrNoKeys is returned when a ring has no credentials configured.
var ErrNoKeys = errors.New("keyring: no API keys configured")

// Ring holds an ordered set of API credentials and a rotation cursor.
// The cursor is shared by every caller of the ring: a rotation triggered
// while serving one request changes the credential every later caller
// reads. Rotation exists to move the whole process off a throttled key,
// not to isolate retries per request.
type Ring struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// New creates a ring from a list of credentials. Blank entries and
// duplicates are dropped. An empty ring is valid to construct; Current
// reports ErrNoKeys so callers fail fast instead of issuing doomed calls.
func New(keys []string) *Ring {
	seen := make(map[string]struct{}, len(keys))
	filtered := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		filtered = append(filtered, k)
	}
	return &Ring{keys: filtered}
}

// Current returns the credential at the cursor.
func (r *Ring) Current() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.keys) == 0 {
		return "", ErrNoKeys
	}
	return r.keys[r.cursor], nil
}

// Rotate advances the cursor to the next credential, wrapping around.
// Rotating an empty or single-key ring is a no-op.
func (r *Ring) Rotate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.keys) == 0 {
		return
	}
	r.cursor = (r.cursor + 1) % len(r.keys)
}

// Size returns the number of configured credentials. Callers use it to
// bound retry loops.
func (r *Ring) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}
