// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package crypto

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// CipherPrefix names the algorithm in the first ciphertext segment.
const CipherPrefix = "aes256gcm"

const (
	segmentSeparator = ":"
	segmentCount     = 4
	tagSize          = 16
)

type aesGCMFieldCipher struct{}

// NewFieldCipher returns the AES-256-GCM [FieldCipher].
//
// Output layout is "aes256gcm:<iv>:<tag>:<ciphertext>" with each binary
// part in standard base64. The base64 alphabet has no ':' so the layout is
// unambiguous.
func NewFieldCipher() FieldCipher {
	return aesGCMFieldCipher{}
}

func (aesGCMFieldCipher) Encrypt(plaintext string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	iv, err := randomBytes(gcm.NonceSize())
	if err != nil {
		return "", err
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	enc := base64.StdEncoding
	return strings.Join([]string{
		CipherPrefix,
		enc.EncodeToString(iv),
		enc.EncodeToString(tag),
		enc.EncodeToString(ciphertext),
	}, segmentSeparator), nil
}

func (aesGCMFieldCipher) Decrypt(value string, key []byte) (string, error) {
	parts := strings.Split(value, segmentSeparator)
	if len(parts) != segmentCount {
		return "", fmt.Errorf("expected %d segments, got %d: %w", segmentCount, len(parts), ErrMalformedCiphertext)
	}
	if parts[0] != CipherPrefix {
		return "", fmt.Errorf("%q: %w", parts[0], ErrUnsupportedCipher)
	}

	enc := base64.StdEncoding
	iv, err := enc.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode iv: %w", ErrMalformedCiphertext)
	}
	tag, err := enc.DecodeString(parts[2])
	if err != nil || len(tag) != tagSize {
		return "", fmt.Errorf("decode tag: %w", ErrMalformedCiphertext)
	}
	ciphertext, err := enc.DecodeString(parts[3])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", ErrMalformedCiphertext)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	if len(iv) != gcm.NonceSize() {
		return "", fmt.Errorf("iv has %d bytes: %w", len(iv), ErrMalformedCiphertext)
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}

	return string(plaintext), nil
}

// IsEncrypted only checks the shape: exactly four ':'-separated segments.
// A plaintext value that happens to have that shape will be handed to
// Decrypt and fail there.
func (aesGCMFieldCipher) IsEncrypted(value string) bool {
	return strings.Count(value, segmentSeparator) == segmentCount-1
}
