package secretbox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestSealOpen(t *testing.T) {
	box, err := New(testKey())
	require.NoError(t, err)

	sealed, err := box.Seal(`{"items":[]}`)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "items")

	plain, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, plain)
}

func TestOpen_RejectsTampered(t *testing.T) {
	box, err := New(testKey())
	require.NoError(t, err)

	_, err = box.Open("not base64!")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = box.Open(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	sealed, err := box.Seal("hello")
	require.NoError(t, err)
	raw, _ := base64.StdEncoding.DecodeString(sealed)
	raw[len(raw)-1] ^= 0xff
	_, err = box.Open(base64.StdEncoding.EncodeToString(raw))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestNew_KeyValidation(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.ErrorContains(t, err, "32 bytes")
}
