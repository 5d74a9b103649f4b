package translate

import "unicode/utf8"

// DefaultChunkSize is the per-request character budget. Empirically chosen
// for OpenWebUI-class endpoints; override via config.
const DefaultChunkSize = 2000

// Split partitions text into ordered chunks of at most budget characters.
// Chunks are contiguous slices of the input, so concatenating them reproduces
// the original text exactly. Cut points prefer paragraph breaks, then line
// breaks, then sentence ends, then word boundaries; a hard character cut is
// the last resort. The same input and budget always yield the same chunks.
func Split(text string, budget int) []string {
	if budget <= 0 {
		budget = DefaultChunkSize
	}
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= budget {
		return []string{text}
	}

	var chunks []string
	rest := text
	for utf8.RuneCountInString(rest) > budget {
		window := byteOffset(rest, budget)
		cut := findCut(rest, window)
		chunks = append(chunks, rest[:cut])
		rest = rest[cut:]
	}
	if rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

// byteOffset returns the byte index of the n-th rune, or len(s) if s has
// fewer than n runes.
func byteOffset(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}

// findCut picks the cut point within s[:window], never at zero.
func findCut(s string, window int) int {
	head := s[:window]

	// Paragraph break
	if idx := lastIndexString(head, "\n\n"); idx > 0 {
		return idx + 2
	}

	// Line break
	for i := window - 1; i > 0; i-- {
		if head[i] == '\n' {
			return i + 1
		}
	}

	// Sentence end: terminal punctuation followed by a space
	for i := window - 1; i > 0; i-- {
		if head[i] == ' ' && isSentenceEnd(head[i-1]) {
			return i + 1
		}
	}

	// Word boundary, so identifier-like tokens stay intact
	for i := window - 1; i > 0; i-- {
		if head[i] == ' ' {
			return i + 1
		}
	}

	// Hard cut; window sits on a rune boundary by construction
	return window
}

func lastIndexString(s, sep string) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		if s[i:i+len(sep)] == sep {
			return i
		}
	}
	return -1
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}
