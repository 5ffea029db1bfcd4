package random

import (
	"math/rand"
	"time"
)

// String returns a random string with the n as its length.
func String(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(Int(65, 90))
	}

	return string(b)
}

// Int returns a random integer in [min,max).
func Int(min, max int) int {
	return min + rand.Intn(max-min)
}

func init() {
	//nolint:staticcheck
	rand.Seed(time.Now().UTC().UnixNano())
}
