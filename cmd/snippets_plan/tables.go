// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	cellStyle   = lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
	headerStyle = cellStyle.Bold(true).Align(lipgloss.Center)
	keyStyle    = cellStyle.Faint(true).Align(lipgloss.Right)
	warnStyle   = cellStyle.Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"})
)

// section is one titled table of the plan report.
//
// Rows for which highlight returns true are rendered with warnStyle: disabled configurations and broadcast
// operands.
type section struct {
	title     string
	headers   []string
	rows      [][]string
	highlight func(row []string) bool
}

// add appends a row of cells.
func (s *section) add(cells ...string) {
	s.rows = append(s.rows, cells)
}

// render returns the title followed by the table.
func (s *section) render() string {
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(s.headers...).
		Rows(s.rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return headerStyle
			case s.highlight != nil && s.highlight(s.rows[row]):
				return warnStyle
			case col == 0:
				return keyStyle
			}
			return cellStyle
		})
	return titleStyle.Render(s.title) + "\n" + table.Render()
}

// formatInts formats a list of offsets or dimensions compactly.
func formatInts[T int | int64](values []T) string {
	parts := make([]string, len(values))
	for ii, v := range values {
		parts[ii] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
