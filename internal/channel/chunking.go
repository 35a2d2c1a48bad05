package channel

import (
	"strings"
	"unicode/utf8"

	"github.com/gemgram/gemgram/pkg/message"
)

// ChunkConfig controls how outbound text is split when it exceeds a
// platform's maximum message length.
type ChunkConfig struct {
	// MaxLength is the maximum number of bytes per chunk.
	// A value <= 0 means no splitting.
	MaxLength int

	// PreserveBlocks avoids splitting inside fenced code blocks (``` ... ```).
	// When true, a code block that fits within MaxLength is kept intact even
	// if it would otherwise be split at a line boundary.
	PreserveBlocks bool
}

// SplitMessage splits an outbound reply into multiple replies that each
// respect cfg.MaxLength. Chat, reply target, and hints are carried onto
// every chunk. If the text already fits, a single-element slice is returned.
func SplitMessage(msg message.Outbound, cfg ChunkConfig) []message.Outbound {
	if cfg.MaxLength <= 0 || len(msg.Text) <= cfg.MaxLength {
		return []message.Outbound{msg}
	}

	chunks := splitText(msg.Text, cfg)

	result := make([]message.Outbound, 0, len(chunks))
	for _, chunk := range chunks {
		out := msg
		out.Text = chunk
		result = append(result, out)
	}
	return result
}

// splitText breaks text into chunks that never exceed MaxLength. Lines are
// kept whole when possible; a line longer than the limit is split at rune
// boundaries.
func splitText(text string, cfg ChunkConfig) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
			current.Reset()
		}
	}

	// place appends a segment known to fit in an empty chunk, flushing
	// first when the current chunk has no room left for it.
	place := func(seg string) {
		if current.Len()+len(seg)+1 > cfg.MaxLength {
			flush()
		}
		current.WriteString(seg)
		current.WriteByte('\n')
	}

	for _, seg := range segments(text, cfg.PreserveBlocks) {
		if len(seg)+1 <= cfg.MaxLength {
			place(seg)
			continue
		}

		// The segment can never fit in one chunk. Break a code block into
		// its lines, then force-split any line that is still too long.
		for _, line := range strings.Split(seg, "\n") {
			if len(line)+1 <= cfg.MaxLength {
				place(line)
				continue
			}
			flush()
			chunks = append(chunks, forceSplit(line, cfg.MaxLength)...)
		}
	}
	flush()

	return chunks
}

// segments splits text into lines. With preserve set, a fenced code block
// (``` ... ```) folds into a single segment so it travels as one unit; an
// unterminated block runs to the end of the text.
func segments(text string, preserve bool) []string {
	lines := strings.Split(text, "\n")
	if !preserve {
		return lines
	}

	var segs []string
	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
			segs = append(segs, lines[i])
			continue
		}
		end := len(lines) - 1
		for j := i + 1; j < len(lines); j++ {
			if strings.HasPrefix(strings.TrimSpace(lines[j]), "```") {
				end = j
				break
			}
		}
		segs = append(segs, strings.Join(lines[i:end+1], "\n"))
		i = end
	}
	return segs
}

// forceSplit breaks a single long line into chunks of at most maxLen bytes
// without splitting inside a UTF-8 sequence.
func forceSplit(line string, maxLen int) []string {
	var parts []string
	var current strings.Builder

	for _, r := range line {
		if current.Len()+utf8.RuneLen(r) > maxLen && current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}
