package languages

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/skelly-dev/atlas/internal/parser"
)

const maxMarkdownSections = 10

var markdownHeader = regexp.MustCompile(`^(#{1,3})\s+(.+?)\s*#*\s*$`)

// MarkdownParser records the section outline of documentation files. It
// defines no symbols.
type MarkdownParser struct{}

// NewMarkdownParser creates a new Markdown parser
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

func (m *MarkdownParser) Language() string {
	return "markdown"
}

func (m *MarkdownParser) Extensions() []string {
	return []string{".md", ".markdown"}
}

func (m *MarkdownParser) Parse(filename string, content []byte) (*parser.FileSymbols, error) {
	result := &parser.FileSymbols{
		Path:     filename,
		Language: "markdown",
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	inFence := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		match := markdownHeader.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		result.Sections = append(result.Sections, match[1]+" "+match[2])
		if len(result.Sections) >= maxMarkdownSections {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
