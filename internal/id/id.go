// Package id generates identifiers for trace sessions.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// TracePrefix prefixes the identifier of one traced program run.
const TracePrefix = "trace"

const randomBytes = 6

// Generate creates a unique identifier with the given prefix.
// Format: <prefix>_<12 hex chars> (e.g., "trace_0a1b2c3d4e5f").
func Generate(prefix string) string {
	b := make([]byte, randomBytes)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based ID if crypto/rand fails (extremely unlikely)
		return fmt.Sprintf("%s_%012x", prefix, time.Now().UnixNano()&0xffffffffffff)
	}
	return prefix + "_" + hex.EncodeToString(b)
}

// NewTrace returns a fresh trace identifier.
func NewTrace() string {
	return Generate(TracePrefix)
}
