package txcode

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_Format(t *testing.T) {
	g := New()
	code := g.Generate()

	re := regexp.MustCompile(`^TXN-[0-9A-F]{10}-\d+$`)
	assert.Regexp(t, re, code)
}

func TestGenerate_TimestampFromClock(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g := &Generator{now: func() time.Time { return fixed }}

	code := g.Generate()
	parts := strings.Split(code, "-")
	assert.Len(t, parts, 3)

	millis, err := strconv.ParseInt(parts[2], 10, 64)
	assert.NoError(t, err)
	assert.Equal(t, fixed.UnixMilli(), millis)
}

func TestGenerate_Distinct(t *testing.T) {
	g := New()
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		code := g.Generate()
		_, dup := seen[code]
		assert.False(t, dup, "duplicate code %s", code)
		seen[code] = struct{}{}
	}
}
