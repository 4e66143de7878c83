package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordDeterministicWithSalt(t *testing.T) {
	first, err := HashPassword("pw1", "")
	require.NoError(t, err)
	assert.Len(t, first.Salt, 32)
	assert.Len(t, first.Hash, 64)

	again, err := HashPassword("pw1", first.Salt)
	require.NoError(t, err)
	assert.Equal(t, first.Hash, again.Hash)

	other, err := HashPassword("pw1", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.Salt, other.Salt)
}

func TestHashPasswordBadSalt(t *testing.T) {
	_, err := HashPassword("pw", "zz")
	assert.Error(t, err)
}

func TestVerifyHashed(t *testing.T) {
	cred, err := HashPassword("correct horse", "")
	require.NoError(t, err)

	stored := ParseCredential(cred.String())
	assert.False(t, stored.IsLegacy())

	ok, rehash := VerifyPassword("correct horse", stored)
	assert.True(t, ok)
	assert.False(t, rehash)

	ok, rehash = VerifyPassword("wrong", stored)
	assert.False(t, ok)
	assert.False(t, rehash)
}

func TestVerifyLegacyPlaintext(t *testing.T) {
	stored := ParseCredential("hunter2")
	require.True(t, stored.IsLegacy())

	ok, rehash := VerifyPassword("hunter2", stored)
	assert.True(t, ok)
	assert.True(t, rehash)

	ok, rehash = VerifyPassword("hunter3", stored)
	assert.False(t, ok)
	assert.False(t, rehash)
}

func TestVerifyCorruptStoredValue(t *testing.T) {
	ok, _ := VerifyPassword("x", ParseCredential("not-hex:abcd"))
	assert.False(t, ok)

	ok, _ = VerifyPassword("", ParseCredential(""))
	assert.False(t, ok)
}

func TestCredentialString(t *testing.T) {
	c := Credential{Salt: "aa", Hash: "bb"}
	assert.Equal(t, "aa:bb", c.String())
	assert.True(t, strings.Contains(c.String(), ":"))
	assert.Equal(t, "plain", Credential{Legacy: "plain"}.String())
}
