package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_EncodeIsCollisionFree(t *testing.T) {
	// a naive "id_timestamp" join maps both of these to "a_b_c"
	k1 := NewKey("a_b", "c")
	k2 := NewKey("a", "b_c")
	assert.NotEqual(t, k1.Encode(), k2.Encode())

	// separators and newlines inside fields stay on one line
	k3 := NewKey("id\twith\ttabs", "2026-01-01 10:00:00\n")
	assert.NotContains(t, k3.Encode(), "\n")

	for _, k := range []Key{k1, k2, k3, NewKey("", ""), NewKey("100%", "a+b c")} {
		decoded, err := DecodeKey(k.Encode())
		require.NoError(t, err)
		assert.Equal(t, k, decoded)
	}
}

func TestDecodeKey_RejectsLegacyAndGarbage(t *testing.T) {
	for _, line := range []string{"12345_2026-01-01", "a\tb\tc", "%zz\tx"} {
		_, err := DecodeKey(line)
		assert.ErrorIs(t, err, ErrMalformedKey, line)
	}
}
