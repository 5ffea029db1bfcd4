package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSha256Hex(t *testing.T) {
	expected := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	assert.Equal(t, expected, Sha256Hex("hello"))
}

func TestSha256HexConcatenation(t *testing.T) {
	// Splitting the input must not change the digest.
	assert.Equal(t, Sha256Hex("hello"), Sha256Hex("he", "l", "lo"))
	assert.Equal(t, Sha256Hex(""), Sha256Hex())
}
