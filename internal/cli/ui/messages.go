package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// MessageOptions configures FormatMessage
type MessageOptions struct {
	Level       Level
	Context     string
	Problem     string
	Suggestions []string
	Hints       []string
	NoColor     bool
}

// FormatMessage builds a multi-line message:
//
//	✗ UNKNOWN COMMAND: rotes
//
//	   Did you mean: routes?
//
//	   → List commands: help
func FormatMessage(opts MessageOptions) string {
	var b strings.Builder

	var head *color.Color
	var symbol string
	switch opts.Level {
	case LevelWarning:
		head, symbol = paint(opts.NoColor, color.FgYellow, color.Bold), "!"
	case LevelInfo:
		head, symbol = paint(opts.NoColor, color.FgBlue, color.Bold), "i"
	default:
		head, symbol = paint(opts.NoColor, color.FgRed, color.Bold), "✗"
	}
	yellow := paint(opts.NoColor, color.FgYellow)
	blue := paint(opts.NoColor, color.FgBlue)

	if opts.Context != "" {
		head.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		head.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.Hints) > 0 {
		b.WriteString("\n")
		for _, h := range opts.Hints {
			blue.Fprintf(&b, "   → %s\n", h)
		}
	}

	return b.String()
}

// UnknownCommand formats the reply to a command line nobody handles
func UnknownCommand(name string, known []string, noColor bool) string {
	return FormatMessage(MessageOptions{
		Level:       LevelError,
		Context:     "unknown command",
		Problem:     name,
		Suggestions: Suggest(name, known, nil),
		Hints:       []string{"List commands: help"},
		NoColor:     noColor,
	})
}

// ConfigError formats a configuration failure
func ConfigError(err error, noColor bool) string {
	return FormatMessage(MessageOptions{
		Level:   LevelError,
		Context: "configuration error",
		Problem: err.Error(),
		Hints: []string{
			"Check the .env file in the working directory",
			"Get help: ubiquits --help",
		},
		NoColor: noColor,
	})
}

// Warning formats a warning
func Warning(message string, noColor bool) string {
	return FormatMessage(MessageOptions{Level: LevelWarning, Problem: message, NoColor: noColor})
}

// FormatSuccess formats a success line
func FormatSuccess(message string, noColor bool) string {
	green := paint(noColor, color.FgGreen, color.Bold)
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success line
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// WriteError writes err as an error message
func WriteError(w io.Writer, err error, noColor bool) {
	fmt.Fprint(w, FormatMessage(MessageOptions{Level: LevelError, Problem: err.Error(), NoColor: noColor}))
}
