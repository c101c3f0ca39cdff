package ui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/sandevgo/airbot/internal/core"
)

var (
	// TitleStyle ANSI 6 (cyan) reads well on light and dark terminals.
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)

	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	// DescStyle is dimmed gray.
	DescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	FlagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// RouteBadge renders the route of a turn, e.g. "[sensor 0.42s]".
func RouteBadge(route core.Route, seconds float64) string {
	style := DescStyle
	switch route {
	case core.RouteSensor, core.RouteSensorDetail:
		style = UsageStyle
	case core.RouteSensorNoData:
		style = FlagStyle
	case core.RouteSensorError, core.RouteGeneralError, core.RouteError:
		style = ErrorStyle
	}
	return style.Render("[" + string(route) + " " + strconv.FormatFloat(seconds, 'f', 2, 64) + "s]")
}
