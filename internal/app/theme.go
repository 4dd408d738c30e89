package app

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	scopeStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	scopeActiveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("239")).Bold(true).Padding(0, 1)
	bucketHeaderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	groupStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true)
	itemStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	urlStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236"))
	markStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	emptyStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	helpOverlayStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("69")).Padding(0, 1)
	statusInfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("29")).Bold(true).Padding(0, 1)
	statusWarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("136")).Bold(true).Padding(0, 1)
	statusErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Bold(true).Padding(0, 1)
	statusMutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)
