package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimatorTokenizer_EmptyText(t *testing.T) {
	t.Parallel()

	n, err := NewEstimatorTokenizer().CountTokens("")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestEstimatorTokenizer_ShortTextAtLeastOne(t *testing.T) {
	t.Parallel()

	n, err := NewEstimatorTokenizer().CountTokens("hi")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestEstimatorTokenizer_ScalesWithLength(t *testing.T) {
	t.Parallel()

	tok := NewEstimatorTokenizer()
	short, err := tok.CountTokens(strings.Repeat("word ", 10))
	require.NoError(t, err)
	long, err := tok.CountTokens(strings.Repeat("word ", 100))
	require.NoError(t, err)
	require.Greater(t, long, short*5)
}

func TestEstimatorTokenizer_CJKWeighsHeavier(t *testing.T) {
	t.Parallel()

	tok := NewEstimatorTokenizer()
	ascii, err := tok.CountTokens(strings.Repeat("a", 30))
	require.NoError(t, err)
	cjk, err := tok.CountTokens(strings.Repeat("语", 30))
	require.NoError(t, err)
	require.Greater(t, cjk, ascii)
}

func TestNewTiktokenTokenizer_ModelMapping(t *testing.T) {
	t.Parallel()

	require.Equal(t, "o200k_base", NewTiktokenTokenizer("gpt-4o").encoding)
	require.Equal(t, "o200k_base", NewTiktokenTokenizer("gpt-4o-2024-08-06").encoding)
	require.Equal(t, "cl100k_base", NewTiktokenTokenizer("gpt-3.5-turbo").encoding)
	require.Equal(t, "cl100k_base", NewTiktokenTokenizer("totally-unknown").encoding)
}
