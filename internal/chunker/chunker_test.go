package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	s := New()
	assert.Equal(t, DefaultMaxChars, s.MaxChars())
}

func TestNew_WithMaxChars(t *testing.T) {
	s := New(WithMaxChars(100))
	assert.Equal(t, 100, s.MaxChars())

	// Non-positive values are ignored
	s = New(WithMaxChars(-5))
	assert.Equal(t, DefaultMaxChars, s.MaxChars())
}

func TestSplit_Empty(t *testing.T) {
	s := New()
	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("   \n\t  "))
}

func TestSplit_SingleSentence(t *testing.T) {
	s := New()
	chunks := s.Split("EAAS is a platform.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "EAAS is a platform.", chunks[0])
}

func TestSplit_NoTerminator(t *testing.T) {
	s := New()
	chunks := s.Split("a fragment without punctuation")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a fragment without punctuation", chunks[0])
}

func TestSplit_BudgetBoundary(t *testing.T) {
	// Two sentences just under the budget stay in one chunk; a third
	// sentence pushing past the budget starts a second chunk.
	first := strings.Repeat("a", 40) + "."
	second := strings.Repeat("b", 40) + "."
	third := strings.Repeat("c", 40) + "."

	s := New(WithMaxChars(len(first) + 1 + len(second)))

	chunks := s.Split(first + " " + second)
	require.Len(t, chunks, 1)

	chunks = s.Split(first + " " + second + " " + third)
	require.Len(t, chunks, 2)
	assert.Equal(t, first+" "+second, chunks[0])
	assert.Equal(t, third, chunks[1])
}

func TestSplit_NoSentenceSplitAcrossChunks(t *testing.T) {
	s := New(WithMaxChars(50))
	text := "First sentence here. Second sentence is a bit longer. Third one."
	chunks := s.Split(text)
	require.True(t, len(chunks) >= 2)
	for _, c := range chunks {
		// Every chunk ends on a sentence boundary.
		assert.True(t, strings.HasSuffix(c, "."), "chunk %q must end a sentence", c)
	}
}

func TestSplit_OversizedSentence(t *testing.T) {
	s := New(WithMaxChars(10))
	long := strings.Repeat("x", 25) + "."
	chunks := s.Split(long)
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("x", 10), chunks[0])
	assert.Equal(t, strings.Repeat("x", 10), chunks[1])
	assert.Equal(t, strings.Repeat("x", 5)+".", chunks[2])
}

func TestSplit_OversizedSentenceUTF8(t *testing.T) {
	s := New(WithMaxChars(4))
	chunks := s.Split("ééééé")
	// 2 bytes per rune; two runes fit per chunk.
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.True(t, len(c) <= 4)
	}
}

func TestSplit_AbbreviationTerminators(t *testing.T) {
	s := New()
	chunks := s.Split(`He said "stop!" Then left.`)
	require.NotEmpty(t, chunks)
}
