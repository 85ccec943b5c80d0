package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// canonicalInputs serializes inputs deterministically for use as part of a
// cache key. encoding/json already emits map[string]any keys in sorted
// order, which gives equal logical inputs byte-equal encodings without a
// hand-rolled field-concatenation scheme; this is the single serialization
// used for both lookup and comparison, as the contract requires.
func canonicalInputs(inputs map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(inputs); err != nil {
		return nil, fmt.Errorf("canonicalizing cache inputs: %w", err)
	}
	return buf.Bytes(), nil
}

// Key is the pair that addresses a cache entry, plus the canonical encoding
// of its input side, which backends use directly as a lookup key.
type Key struct {
	Fingerprint string
	Canonical   []byte
}

// BuildKey canonicalizes inputs and pairs it with fingerprint.
func BuildKey(fingerprint string, inputs map[string]any) (Key, error) {
	canon, err := canonicalInputs(inputs)
	if err != nil {
		return Key{}, err
	}
	return Key{Fingerprint: fingerprint, Canonical: canon}, nil
}

// digest returns the sha256 hex digest of the key, used by backends that
// want a fixed-width lookup token (e.g. the in-memory shard map) rather
// than the raw canonical bytes. The sqlite backend does not use it; it
// stores the fingerprint and canonical bytes directly. sha256 is used so
// that the digest can serve as key identity; a non-cryptographic hash is
// reserved for shard selection only, never for key identity.
func (k Key) digest() string {
	h := sha256.New()
	h.Write([]byte(k.Fingerprint))
	h.Write([]byte{0})
	h.Write(k.Canonical)
	return hex.EncodeToString(h.Sum(nil))
}
