// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klpod221/kerminal-sub001/models"
)

func TestHash_MatchesSHA256(t *testing.T) {
	data := []byte("test-data")

	want := sha256.Sum256(data)
	assert.Equal(t, want[:], Hash(data))
	// pooled hashers must be reset between uses
	assert.Equal(t, want[:], Hash(data))
}

func TestContentHash_IndependentOfKeyOrder(t *testing.T) {
	a := models.Record{}
	a["id"] = "p1"
	a["host"] = "10.0.0.1"
	a["port"] = 22
	a["auth"] = map[string]any{"user": "root", "password": "s3cret"}

	b := models.Record{}
	b["auth"] = map[string]any{"password": "s3cret", "user": "root"}
	b["port"] = 22
	b["host"] = "10.0.0.1"
	b["id"] = "p1"

	ha, err := ContentHash(a)
	require.NoError(t, err)
	hb, err := ContentHash(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)
}

func TestContentHash_StructAndMapAgree(t *testing.T) {
	type profile struct {
		Port int    `json:"port"`
		Host string `json:"host"`
		ID   string `json:"id"`
	}

	hs, err := ContentHash(profile{Port: 22, Host: "h", ID: "x"})
	require.NoError(t, err)
	hm, err := ContentHash(map[string]any{"id": "x", "host": "h", "port": 22})
	require.NoError(t, err)

	assert.Equal(t, hs, hm)
}

func TestContentHash_DifferentContent(t *testing.T) {
	h1, err := ContentHash(models.Record{"id": "x", "host": "a"})
	require.NoError(t, err)
	h2, err := ContentHash(models.Record{"id": "x", "host": "b"})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestContentHash_KnownValue(t *testing.T) {
	got, err := ContentHash(map[string]any{"b": 1, "a": "<x>"})
	require.NoError(t, err)

	sum := sha256.Sum256([]byte(`{"a":"<x>","b":1}`))
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
}

func TestContentHash_Unmarshalable(t *testing.T) {
	_, err := ContentHash(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}
