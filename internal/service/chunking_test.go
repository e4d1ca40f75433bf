package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reconstruct(chunks []string, overlap int) string {
	var sb strings.Builder
	for i, c := range chunks {
		if i == 0 {
			sb.WriteString(c)
			continue
		}
		sb.WriteString(string([]rune(c)[overlap:]))
	}
	return sb.String()
}

func TestSplitIntoChunks_SixHundredCharacters(t *testing.T) {
	text := strings.Repeat("abcdefghij", 60)

	chunks, err := SplitIntoChunks(text, 512, 50)

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 512)
	assert.Len(t, chunks[1], 600-462)
	assert.Equal(t, text[462:512], chunks[1][:50])
	assert.Equal(t, text, reconstruct(chunks, 50))
}

func TestSplitIntoChunks_Empty(t *testing.T) {
	chunks, err := SplitIntoChunks("", 512, 50)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitIntoChunks_ShorterThanWindow(t *testing.T) {
	chunks, err := SplitIntoChunks("short text", 512, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"short text"}, chunks)
}

func TestSplitIntoChunks_ExactWindow(t *testing.T) {
	text := strings.Repeat("x", 512)
	chunks, err := SplitIntoChunks(text, 512, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{text}, chunks)
}

func TestSplitIntoChunks_CountsCharactersNotBytes(t *testing.T) {
	text := strings.Repeat("ä", 15)

	chunks, err := SplitIntoChunks(text, 10, 2)

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("ä", 10), chunks[0])
	assert.Equal(t, strings.Repeat("ä", 7), chunks[1])
	assert.Equal(t, text, reconstruct(chunks, 2))
}

func TestSplitIntoChunks_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap above size", 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := SplitIntoChunks("some text", tt.size, tt.overlap)
			assert.Nil(t, chunks)
			assert.ErrorIs(t, err, ErrInvalidChunkConfig)
		})
	}
}

func TestSplitIntoChunks_ReconstructsForManyConfigs(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 37)
	n := len([]rune(text))

	for size := 1; size <= 64; size += 7 {
		for overlap := 0; overlap < size; overlap += 3 {
			chunks, err := SplitIntoChunks(text, size, overlap)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)
			assert.Equal(t, text, reconstruct(chunks, overlap), "size=%d overlap=%d", size, overlap)

			for i, c := range chunks {
				l := len([]rune(c))
				if i < len(chunks)-1 {
					assert.Equal(t, size, l)
				} else {
					assert.LessOrEqual(t, l, size)
					assert.Greater(t, l, 0)
				}
			}
			assert.LessOrEqual(t, (len(chunks)-1)*(size-overlap), n)
		}
	}
}
