package utils

// SplitText splits a long string into chunks of approximately chunkSize
// characters with an overlap to preserve context at chunk boundaries.
// Character based; agronomy docs are plain prose so no tokenizer is
// involved.
func SplitText(text string, chunkSize int, overlap int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // overlap >= chunkSize would never advance
	}

	var chunks []string
	runes := []rune(text)
	totalLen := len(runes)

	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == totalLen {
			break
		}
	}

	return chunks
}
