package service

import (
	"errors"
	"fmt"
)

// ErrInvalidChunkConfig is returned when the window would never advance.
var ErrInvalidChunkConfig = errors.New("chunk size must be positive and overlap must be in [0, chunk size)")

// SplitIntoChunks cuts text into windows of chunkSize characters where each
// window starts chunkSize-overlap characters after the previous one. The last
// window ends at the end of the text and may be shorter. Empty text yields no
// chunks. Stripping the first overlap characters from every chunk after the
// first and concatenating reproduces text exactly.
func SplitIntoChunks(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunkConfig, chunkSize, overlap)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := chunkSize - overlap
	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; ; start += step {
		end := min(start+chunkSize, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}
