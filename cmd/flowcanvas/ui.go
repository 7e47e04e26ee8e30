package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/editor"
)

var (
	brand  = color.New(color.FgHiCyan, color.Bold)
	subtle = color.New(color.FgHiBlack)
	warn   = color.New(color.FgYellow)
	good   = color.New(color.FgGreen)
	bad    = color.New(color.FgRed)
)

func heading(w io.Writer, title string) {
	brand.Fprintln(w, title)
}

func okIcon(ok bool) string {
	if ok {
		return good.Sprint("✓")
	}
	return bad.Sprint("✗")
}

// table prints rows aligned under headers.
func table(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	head, sep := "  ", "  "
	for i, h := range headers {
		head += fmt.Sprintf("%-*s  ", widths[i], h)
		sep += strings.Repeat("─", widths[i]) + "  "
	}
	subtle.Fprintln(w, strings.TrimRight(head, " "))
	subtle.Fprintln(w, strings.TrimRight(sep, " "))

	for _, row := range rows {
		line := "  "
		for i, cell := range row {
			if i < len(widths) {
				line += fmt.Sprintf("%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func printMessage(w io.Writer, m editor.Message) {
	switch m.Level {
	case editor.LevelError:
		fmt.Fprintln(w, bad.Sprint("✗ ")+m.Text)
	case editor.LevelWarning:
		fmt.Fprintln(w, warn.Sprint("⚠ ")+m.Text)
	default:
		fmt.Fprintln(w, subtle.Sprint("• ")+m.Text)
	}
}
