package printer

import "fmt"

// Chunk splits data into consecutive slices of at most max bytes. The
// slices share data's backing array. Empty input yields no chunks.
func Chunk(data []byte, max int) ([][]byte, error) {
	if max <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", max)
	}
	if len(data) == 0 {
		return nil, nil
	}
	chunks := make([][]byte, 0, (len(data)+max-1)/max)
	for start := 0; start < len(data); start += max {
		end := start + max
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[start:end:end])
	}
	return chunks, nil
}
