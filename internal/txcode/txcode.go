// Package txcode generates human-facing transaction reference codes for
// display and reconciliation. Codes look like TXN-5F3A0C91D2-1693526400123:
// a fixed prefix, a random token, and a millisecond timestamp. Uniqueness
// is enforced by the transaction store; an insert collision fails the
// enclosing unit of work and the caller may retry with a fresh code.
package txcode

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	prefix     = "TXN"
	tokenBytes = 5 // 10 hex characters
)

// Generator produces transaction reference codes.
type Generator struct {
	now func() time.Time
}

// New creates a Generator using the system clock.
func New() *Generator {
	return &Generator{now: time.Now}
}

// Generate returns a fresh reference code.
func (g *Generator) Generate() string {
	buf := make([]byte, tokenBytes)
	// rand.Read on crypto/rand never fails on supported platforms.
	_, _ = rand.Read(buf)
	token := strings.ToUpper(hex.EncodeToString(buf))
	return fmt.Sprintf("%s-%s-%d", prefix, token, g.now().UnixMilli())
}
