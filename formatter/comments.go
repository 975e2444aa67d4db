package formatter

import "strings"

// CommentType represents the type of comment in a beancount file.
type CommentType int

const (
	// StandaloneComment appears on its own line before a directive
	StandaloneComment CommentType = iota
	// SectionComment is a standalone comment followed by a blank line (section header)
	SectionComment
)

// CommentBlock represents a comment in the source file.
type CommentBlock struct {
	Line    int
	Content string
	Type    CommentType
}

// BlankLine represents a blank line in the source file.
type BlankLine struct {
	Line int
}

// LineContent represents content that can appear before a directive.
type LineContent interface {
	lineNumber() int
}

func (c CommentBlock) lineNumber() int { return c.Line }
func (b BlankLine) lineNumber() int    { return b.Line }

// extractLineContent scans the source and indexes comment and blank lines by
// their 1-based line number.
func extractLineContent(source []byte, comments, blanks bool) map[int]LineContent {
	out := make(map[int]LineContent)
	if len(source) == 0 {
		return out
	}

	lines := strings.Split(string(source), "\n")
	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			if blanks {
				out[lineNum] = BlankLine{Line: lineNum}
			}
		case strings.HasPrefix(trimmed, ";"), isOrgHeader(line):
			if comments {
				out[lineNum] = CommentBlock{Line: lineNum, Content: trimmed, Type: commentType(i, lines)}
			}
		}
	}

	return out
}

func isOrgHeader(line string) bool {
	return strings.HasPrefix(line, "*") || strings.HasPrefix(line, "#")
}

func commentType(index int, lines []string) CommentType {
	if index+1 < len(lines) && strings.TrimSpace(lines[index+1]) == "" {
		return SectionComment
	}
	return StandaloneComment
}

// writePreceding writes comments and blank lines found strictly between
// lastLine and currentLine, collapsing runs of blank lines.
func writePreceding(buf *strings.Builder, content map[int]LineContent, lastLine, currentLine int) {
	prevBlank := lastLine == 0
	for line := lastLine + 1; line < currentLine; line++ {
		switch c := content[line].(type) {
		case CommentBlock:
			buf.WriteString(c.Content)
			buf.WriteByte('\n')
			prevBlank = false
		case BlankLine:
			if !prevBlank {
				buf.WriteByte('\n')
			}
			prevBlank = true
		}
	}
}
