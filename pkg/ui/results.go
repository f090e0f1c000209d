package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"ttscraper/pkg/models"
)

var postHeaders = []string{"#", "ID", "VIEWS", "LIKES", "COMMENTS", "SAVES", "SHARES", "READ", "NOTE"}

// RenderResult formats a profile result as a summary block followed by a per-post table
func RenderResult(result models.ProfileResult) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("@" + result.Handle))
	b.WriteString("  ")
	b.WriteString(renderStatus(result.Status))
	b.WriteString("\n\n")
	b.WriteString(renderTotals(result.Totals()))

	if len(result.Posts) == 0 {
		b.WriteString("\n")
		b.WriteString(cellStyle.Render("no posts"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString(renderPosts(result.Posts))
	b.WriteString("\n")
	return b.String()
}

// PrintResult writes RenderResult(result) to w
func PrintResult(w io.Writer, result models.ProfileResult) error {
	_, err := io.WriteString(w, RenderResult(result))
	return err
}

func renderStatus(status models.RunStatus) string {
	if status == models.StatusComplete {
		return successStyle.Render(string(status))
	}
	return failureStyle.Render(string(status))
}

func renderTotals(t models.AggregateTotals) string {
	pairs := []struct {
		label string
		value int64
	}{
		{"Followers", t.Followers},
		{"Views", t.Views},
		{"Likes", t.Likes},
		{"Comments", t.Comments},
		{"Saves", t.Saves},
		{"Shares", t.Shares},
	}

	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		lines = append(lines, fmt.Sprintf("%s %s",
			statsLabelStyle.Width(10).Render(p.label),
			statsValueStyle.Render(strconv.FormatInt(p.value, 10))))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
}

func renderPosts(posts []models.PostMetrics) string {
	rows := make([][]string, 0, len(posts))
	for i, p := range posts {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			p.ID,
			strconv.FormatInt(p.Views, 10),
			strconv.FormatInt(p.Likes, 10),
			strconv.FormatInt(p.Comments, 10),
			strconv.FormatInt(p.Saves, 10),
			strconv.FormatInt(p.Shares, 10),
			strconv.Itoa(len(p.CommentList)),
			p.ExtractionError,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(postHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == len(postHeaders)-1:
				return errorCellStyle
			case col >= 2:
				return numberCellStyle
			default:
				return cellStyle
			}
		})

	return t.String()
}
