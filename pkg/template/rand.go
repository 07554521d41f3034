package template

import (
	"bytes"
	mathrand "math/rand/v2"
	"strconv"

	"github.com/google/uuid"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// source draws from the context's seeded generator, or from the global
// math/rand/v2 source when there is none.
type source struct {
	rng *mathrand.Rand
}

func sourceOf(ctx *Context) source {
	if ctx == nil {
		return source{}
	}
	return source{rng: ctx.Rand}
}

func (s source) intN(n int) int {
	if s.rng != nil {
		return s.rng.IntN(n)
	}
	return mathrand.IntN(n)
}

// intRange renders a value in [lo, hi]. An empty range renders as "".
func (s source) intRange(lo, hi int) string {
	if lo > hi {
		return ""
	}
	return strconv.Itoa(lo + s.intN(hi-lo+1))
}

func (s source) alnum(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[s.intN(len(alphanumeric))]
	}
	return string(b)
}

// uuid renders a version 4 UUID; seeded generators yield repeatable ones.
func (s source) uuid() string {
	if s.rng == nil {
		return uuid.NewString()
	}
	var seed [16]byte
	for i := range seed {
		seed[i] = byte(s.rng.IntN(256))
	}
	return uuid.Must(uuid.NewRandomFromReader(bytes.NewReader(seed[:]))).String()
}
