package pow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAndValidateRoundTrip(t *testing.T) {
	for k := 1; k <= 5; k++ {
		proof, err := Compute(context.Background(), "node-under-test", k)
		require.NoError(t, err)
		assert.True(t, Validate("node-under-test", proof, k), "k=%d", k)
	}
}

func TestValidateRejectsWrongNodeID(t *testing.T) {
	proof, err := Compute(context.Background(), "node-a", 2)
	require.NoError(t, err)
	assert.False(t, Validate("node-b", proof, 2))
}

func TestValidateRejectsTamperedNonce(t *testing.T) {
	proof, err := Compute(context.Background(), "node-a", 2)
	require.NoError(t, err)
	proof.Nonce++
	assert.False(t, Validate("node-a", proof, 2))
}

func TestValidateRejectsInsufficientDifficulty(t *testing.T) {
	proof, err := Compute(context.Background(), "node-a", 2)
	require.NoError(t, err)
	assert.False(t, Validate("node-a", proof, 10))
}

func TestComputeRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Compute(ctx, "node-a", 30)
	assert.Error(t, err)
}

func TestInputUsesColonSeparator(t *testing.T) {
	assert.Equal(t, []byte("abc:42"), input("abc", 42))
}
