// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"sync"
)

// hasherPool keeps SHA-256 instances around so that hashing a whole
// collection on every write does not allocate a new digest per record.
var hasherPool = sync.Pool{
	New: func() any {
		return sha256.New()
	},
}

// ContentHash computes a deterministic SHA-256 digest of v and returns it
// hex-encoded.
//
// The value is first brought to a canonical form: it is serialised to JSON,
// decoded back into generic maps and serialised again. encoding/json writes
// map keys in lexicographic order at every depth, so two records that differ
// only in field insertion order (or that were built from structs with a
// different field order) produce the same digest.
//
// Returns an error if v cannot be represented as JSON.
func ContentHash(v any) (string, error) {
	canonical, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(Hash(canonical)), nil
}

// Canonicalize returns the canonical JSON encoding of v used by
// [ContentHash]. Numbers keep their original textual representation.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value for hashing: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err = dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("decode value for hashing: %w", err)
	}

	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err = enc.Encode(generic); err != nil {
		return nil, fmt.Errorf("encode canonical value: %w", err)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Hash computes a SHA-256 digest of data using a hasher from the pool.
func Hash(data []byte) []byte {
	h := hasherPool.Get().(hash.Hash)
	h.Reset()

	h.Write(data)
	sum := h.Sum(nil)

	h.Reset()
	hasherPool.Put(h)

	return sum
}
