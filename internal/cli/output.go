package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/geocoder89/notehub/internal/client"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

const previewLength = 40

var (
	faint = color.New(color.Faint).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
)

func success(msg string) string {
	return color.New(color.FgGreen).Sprint("✓ ") + msg
}

// renderNotes prints notes as a table, JSON or YAML.
func renderNotes(w io.Writer, format string, notes []client.Note) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(notes)
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(notes); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Title", "Tags", "Updated", "Content"})

	for _, n := range notes {
		t.AppendRow(table.Row{
			n.ID,
			n.Title,
			strings.Join(n.Tags, ", "),
			n.UpdatedAt.Local().Format("2006-01-02 15:04"),
			preview(n.Content),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d notes", len(notes))})

	t.Render()
	return nil
}

// renderNote prints one note; with markdown set the body goes through glamour.
func renderNote(w io.Writer, format string, n client.Note, markdown bool) error {
	if format != "table" && format != "" {
		return renderNotes(w, format, []client.Note{n})
	}

	body := n.Content
	if markdown {
		body = renderMarkdown(body)
	}

	_, err := fmt.Fprintf(w, "%s\n%s %s\n%s %s\n%s %s\n\n%s\n",
		bold(fmt.Sprintf("#%d %s", n.ID, n.Title)),
		faint("tags:"), cyan(strings.Join(n.Tags, ", ")),
		faint("created:"), faint(n.CreatedAt.Local().Format("2006-01-02 15:04:05")),
		faint("updated:"), faint(n.UpdatedAt.Local().Format("2006-01-02 15:04:05")),
		strings.TrimRight(body, "\n"))
	return err
}

// renderMarkdown falls back to the raw text when glamour cannot render it.
func renderMarkdown(content string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content
	}

	out, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return out
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= previewLength {
		return s
	}
	return string(r[:previewLength-1]) + "…"
}
