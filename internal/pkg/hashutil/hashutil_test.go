package hashutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentHashStable(t *testing.T) {
	a := ContentHash("<p>hello</p>")
	b := ContentHash("<p>hello</p>")
	require.Equal(t, a, b)
	require.Len(t, a, 64)
	require.NotEqual(t, a, ContentHash("<p>hello!</p>"))
}

func TestVerifyContentHash(t *testing.T) {
	hash := ContentHash("body")
	require.True(t, VerifyContentHash("body", hash))
	require.False(t, VerifyContentHash("other", hash))
}
