// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

// Package client implements the sync client runtime.
//
// It wires the client services and the background workers into a single
// process lifecycle: an initial sync pass, periodic passes and tombstone
// cleanup until the context is cancelled.
package client
