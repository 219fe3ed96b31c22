package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"wamsg/internal/app"
	"wamsg/internal/template"
)

var (
	appOptionsNone = app.Options{}
	nowFunc        = time.Now
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	messageStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

const previewWidth = 48

// renderList draws the template table. Ids are shortened to 8 characters;
// Resolve accepts any unique prefix of 4 or more.
func renderList(items []template.Template, now time.Time) string {
	if len(items) == 0 {
		return dimStyle.Render("No templates yet. Create one with: wamsg template create --name N --message M")
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "NAME", "MESSAGE", "CHARS", "UPDATED").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, it := range items {
		t.Row(shortID(it.ID), it.Name, preview(it.Message, previewWidth), fmt.Sprint(it.Chars()), humanize.RelTime(it.UpdatedAt, now, "ago", "from now"))
	}
	return t.Render()
}

func renderTemplate(t template.Template, now time.Time) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(t.Name))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("id %s · %s characters · created %s · updated %s",
		t.ID,
		humanize.Comma(int64(t.Chars())),
		humanize.RelTime(t.CreatedAt, now, "ago", "from now"),
		humanize.RelTime(t.UpdatedAt, now, "ago", "from now"),
	)))
	b.WriteString("\n")
	b.WriteString(messageStyle.Render(t.Message))
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// preview flattens newlines and truncates to width runes.
func preview(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// readInput reads path, or all of stdin when path is "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
