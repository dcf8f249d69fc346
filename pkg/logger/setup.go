package logger

import (
	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
)

// SetupLogger installs the process default logger from CLI or config values.
func SetupLogger(level string, json, source bool) {
	Init(&Config{
		Level:      ParseLevel(level),
		JSON:       json,
		AddSource:  source,
		TimeFormat: "15:04:05",
	})
}

func levelStyles() *charmlog.Styles {
	styles := charmlog.DefaultStyles()
	badge := func(label, color string) lipgloss.Style {
		return lipgloss.NewStyle().SetString(label).Bold(true).Foreground(lipgloss.Color(color))
	}
	styles.Levels[charmlog.DebugLevel] = badge("DEBU", "63")
	styles.Levels[charmlog.InfoLevel] = badge("INFO", "86")
	styles.Levels[charmlog.WarnLevel] = badge("WARN", "192")
	styles.Levels[charmlog.ErrorLevel] = badge("ERRO", "204")
	for _, key := range []string{"err", "error"} {
		styles.Keys[key] = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
		styles.Values[key] = lipgloss.NewStyle().Bold(true)
	}
	for _, key := range []string{"provider", "attempt_id"} {
		styles.Keys[key] = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	}
	return styles
}
