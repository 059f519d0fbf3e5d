package genai

import (
	"strings"
	"sync"
)

// KeyRing caches the selected API key together with a validity flag. A key
// reported expired by the service is invalidated and must be selected again.
type KeyRing struct {
	mu    sync.RWMutex
	key   string
	valid bool
}

// NewKeyRing returns a ring holding key. An empty key leaves the ring without
// a credential.
func NewKeyRing(key string) *KeyRing {
	k := &KeyRing{}
	k.Select(key)
	return k
}

// Select stores key and marks it valid.
func (k *KeyRing) Select(key string) {
	key = strings.TrimSpace(key)
	k.mu.Lock()
	defer k.mu.Unlock()
	k.key = key
	k.valid = key != ""
}

// Key returns the key when one is selected and still valid.
func (k *KeyRing) Key() (string, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.key, k.valid
}

// Valid reports whether a usable key is selected.
func (k *KeyRing) Valid() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.valid
}

// Invalidate clears the validity flag so that the key must be re-selected.
func (k *KeyRing) Invalidate() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.valid = false
}
