package mirror

// chunkLookback is how far back from the limit a cut searches for a
// newline or space before giving up and cutting hard.
const chunkLookback = 256

// ChunkText splits s into ordered pieces of at most limit runes whose
// concatenation is exactly s. Cuts prefer the last newline or space near
// the limit so words survive; text with no boundary in reach gets a hard
// cut at the limit. Empty input produces no chunks.
func ChunkText(s string, limit int) []string {
	if s == "" || limit <= 0 {
		return nil
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return []string{s}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + limit
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		cut := end
		lo := end - chunkLookback
		if lo <= start {
			lo = start + 1
		}
		for i := end - 1; i >= lo; i-- {
			if runes[i] == '\n' || runes[i] == ' ' {
				cut = i + 1 // the boundary stays in the left piece
				break
			}
		}
		chunks = append(chunks, string(runes[start:cut]))
		start = cut
	}
	return chunks
}
