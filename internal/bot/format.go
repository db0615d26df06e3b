package bot

import (
	"strings"
	"unicode/utf8"
)

// Discord rejects message content longer than this.
const maxMessageLength = 2000

// chunkLines packs lines into messages of at most limit characters. The
// header starts the first message; open and close wrap every message, which
// lets callers keep each chunk inside its own code block. A line too long to
// fit is cut at a rune boundary.
func chunkLines(header string, lines []string, open, close string, limit int) []string {
	budget := limit - len(open) - len(close)
	var chunks []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, open+cur.String()+close)
			cur.Reset()
		}
	}

	if header != "" {
		cur.WriteString(header)
	}
	for _, line := range lines {
		if len(line) > budget {
			cut := budget
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			line = line[:cut]
		}
		needed := len(line)
		if cur.Len() > 0 {
			needed++
		}
		if cur.Len()+needed > budget {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
	}
	flush()
	return chunks
}
