package podcast

// DefaultMaxLinesPerChunk bounds how many dialogue lines a single synthesis
// request carries.
const DefaultMaxLinesPerChunk = 6

// ChunkScript splits a script's dialogue lines into ordered sub-scripts of at
// most maxLines lines each. Every chunk shares the parent's metadata and holds
// a contiguous, non-overlapping slice of lines; concatenating the chunks'
// lines in order reproduces the original sequence exactly. A script with no
// lines yields no chunks.
func ChunkScript(s Script, maxLines int) []Script {
	if maxLines <= 0 {
		maxLines = DefaultMaxLinesPerChunk
	}
	if len(s.Lines) == 0 {
		return nil
	}

	chunks := make([]Script, 0, (len(s.Lines)+maxLines-1)/maxLines)
	for start := 0; start < len(s.Lines); start += maxLines {
		end := start + maxLines
		if end > len(s.Lines) {
			end = len(s.Lines)
		}
		chunk := s
		chunk.Lines = s.Lines[start:end]
		chunks = append(chunks, chunk)
	}
	return chunks
}
