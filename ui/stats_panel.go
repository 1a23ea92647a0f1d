package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// RunStats summarizes one extraction run
type RunStats struct {
	Programs    int
	WithDetails int
	Failed      int
	Skipped     int
	OutputFile  string
	StartTime   time.Time
	Failures    []string
}

// StatsPanel renders RunStats as a bordered panel
type StatsPanel struct {
	stats      RunStats
	width      int
	labelStyle lipgloss.Style
	valueStyle lipgloss.Style
}

func NewStatsPanel(stats RunStats) *StatsPanel {
	return &StatsPanel{
		stats: stats,
		width: 60,
		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Bold(true),
		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
	}
}

func (s *StatsPanel) SetWidth(width int) {
	s.width = width
}

func (s *StatsPanel) View() string {
	visited := s.stats.WithDetails + s.stats.Failed
	successRate := 0.0
	if visited > 0 {
		successRate = float64(s.stats.WithDetails) / float64(visited) * 100
	}

	stats := []struct {
		label string
		value string
	}{
		{"Programs", fmt.Sprintf("%d", s.stats.Programs)},
		{"Detail pages", fmt.Sprintf("%.1f%% (%d/%d)", successRate, s.stats.WithDetails, visited)},
		{"Without link", fmt.Sprintf("%d", s.stats.Skipped)},
		{"Output", s.stats.OutputFile},
		{"Elapsed Time", s.formatElapsedTime()},
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("Modulux Extraction") + "\n\n")
	for _, stat := range stats {
		content.WriteString(fmt.Sprintf("%-14s %s\n",
			s.labelStyle.Render(stat.label+":"),
			s.valueStyle.Render(stat.value)))
	}

	if len(s.stats.Failures) > 0 {
		content.WriteString("\n" + errorStyle.Render("Failed detail pages:") + "\n")
		for _, f := range s.stats.Failures {
			content.WriteString(infoStyle.Render("• "+f) + "\n")
		}
	}

	return borderStyle.Width(s.width).Render(strings.TrimRight(content.String(), "\n"))
}

func (s *StatsPanel) formatElapsedTime() string {
	if s.stats.StartTime.IsZero() {
		return "00:00:00"
	}
	elapsed := time.Since(s.stats.StartTime)
	return fmt.Sprintf("%02d:%02d:%02d",
		int(elapsed.Hours()),
		int(elapsed.Minutes())%60,
		int(elapsed.Seconds())%60,
	)
}
