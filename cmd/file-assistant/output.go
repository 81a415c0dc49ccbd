package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"file-assistant/internal/walker"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Bold(true)

	dryRunStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Faint(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

func printLine(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+" -"), valueStyle.Render(fmt.Sprint(value)))
}

func printCount(w io.Writer, r *walker.CountReport) {
	printLine(w, "Number of lines", r.TotalLines)
	hint := fmt.Sprintf("%d files, %d skipped directories", len(r.Files), r.SkippedDirs)
	if n := len(r.Errors); n > 0 {
		hint += fmt.Sprintf(", %d unreadable", n)
	}
	fmt.Fprintln(w, hintStyle.Render(hint))
}

func printRemove(w io.Writer, r *walker.RemoveReport) {
	if r.DryRun {
		fmt.Fprintln(w, dryRunStyle.Render("[DRY RUN] nothing was deleted"))
		for _, d := range r.Directories {
			fmt.Fprintln(w, hintStyle.Render(fmt.Sprintf("  would remove %s (%s)", d.Path, formatBytes(d.Size))))
		}
	}
	printLine(w, "Removed directories", r.Removed)
	if !r.DryRun && r.BytesFreed > 0 {
		fmt.Fprintln(w, hintStyle.Render("freed "+formatBytes(r.BytesFreed)))
	}
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
