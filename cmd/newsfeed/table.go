package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"newsfeed/internal/models"

	"github.com/mattn/go-runewidth"
)

const (
	titleWidth  = 60
	sourceWidth = 18
	timeLayout  = "2006-01-02 15:04"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// articleRows режет заголовок и источник по ширине на экране, а не по байтам.
func articleRows(items []models.Article) [][]string {
	rows := [][]string{{"#", "PUBLISHED", "SOURCE", "TITLE"}}
	for i, a := range items {
		published := "-"
		if !a.PublishedAt.IsZero() {
			published = a.PublishedAt.Local().Format(timeLayout)
		}
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			published,
			runewidth.Truncate(a.Source, sourceWidth, "…"),
			runewidth.Truncate(a.Title, titleWidth, "…"),
		})
	}
	return rows
}

// formatTable выравнивает столбцы по отображаемой ширине.
func formatTable(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var sb strings.Builder
		for i, cell := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			if i == len(row)-1 {
				sb.WriteString(cell)
				continue
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		lines = append(lines, sb.String())
	}
	return lines
}

func printArticles(w io.Writer, items []models.Article) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No articles.")
		return
	}
	for _, line := range formatTable(articleRows(items)) {
		fmt.Fprintln(w, line)
	}
}

func printPagination(w io.Writer, p models.PaginationResponse) {
	more := ""
	if p.HasMore {
		more = ", more available"
	}
	fmt.Fprintf(w, "\nPage %d of %d (%d articles%s)\n", p.CurrentPage, p.TotalPages, p.TotalItems, more)
}
