package vecblob

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	vec := []float32{0.1, -2.5, 3e8, 0}

	blob, err := Serialize(vec)
	require.NoError(t, err)
	require.Len(t, blob, len(vec)*4)

	got, err := Deserialize(blob)
	require.NoError(t, err)
	require.Equal(t, vec, got)
}

func TestEmptyVector(t *testing.T) {
	blob, err := Serialize(nil)
	require.NoError(t, err)
	require.Nil(t, blob)

	got, err := Deserialize(nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestCorruptBlob(t *testing.T) {
	_, err := Deserialize([]byte{1, 2, 3})
	require.Error(t, err)
}
