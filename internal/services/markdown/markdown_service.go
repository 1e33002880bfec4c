package markdown

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
)

const wordWrap = 120

// Markdown is a document built incrementally
type Markdown struct {
	content strings.Builder
}

func New() *Markdown {
	return &Markdown{}
}

// AddHeading adds a heading with the specified level (1-6)
func (m *Markdown) AddHeading(text string, level int) *Markdown {
	if level < 1 || level > 6 {
		level = 1
	}
	fmt.Fprintf(&m.content, "%s %s\n\n", strings.Repeat("#", level), text)
	return m
}

func (m *Markdown) AddParagraph(text string) *Markdown {
	fmt.Fprintf(&m.content, "%s\n\n", text)
	return m
}

// AddTable adds a table. Rows shorter than headers are padded with empty cells.
func (m *Markdown) AddTable(headers []string, data [][]string) *Markdown {
	if len(headers) == 0 {
		return m
	}

	m.content.WriteString("| " + strings.Join(headers, " | ") + " |\n")

	separators := make([]string, len(headers))
	for i := range headers {
		separators[i] = "---"
	}
	m.content.WriteString("| " + strings.Join(separators, " | ") + " |\n")

	for _, row := range data {
		padded := make([]string, len(headers))
		copy(padded, row)
		m.content.WriteString("| " + strings.Join(padded, " | ") + " |\n")
	}

	m.content.WriteString("\n")
	return m
}

// AddCodeBlock adds a fenced code block with optional language
func (m *Markdown) AddCodeBlock(code string, language string) *Markdown {
	fmt.Fprintf(&m.content, "```%s\n%s\n```\n\n", language, code)
	return m
}

func (m *Markdown) AddList(items []string) *Markdown {
	for _, item := range items {
		fmt.Fprintf(&m.content, "- %s\n", item)
	}
	m.content.WriteString("\n")
	return m
}

func (m *Markdown) AddOrderedList(items []string) *Markdown {
	for i, item := range items {
		fmt.Fprintf(&m.content, "%d. %s\n", i+1, item)
	}
	m.content.WriteString("\n")
	return m
}

func (m *Markdown) String() string {
	return m.content.String()
}

// Bytes returns the raw markdown, ready to be written to a file
func (m *Markdown) Bytes() []byte {
	return []byte(m.content.String())
}

// Render returns the markdown rendered for a terminal
func (m *Markdown) Render() (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create glamour renderer: %w", err)
	}

	out, err := renderer.Render(m.content.String())
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}

	return out, nil
}

// Print writes the rendered markdown to w, falling back to the raw markdown
// when rendering fails.
func (m *Markdown) Print(w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	out, err := m.Render()
	if err != nil {
		out = m.content.String()
	}

	if _, err := io.WriteString(w, out+"\n"); err != nil {
		return fmt.Errorf("failed to write markdown: %w", err)
	}
	return nil
}
