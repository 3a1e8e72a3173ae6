// healthbot/utils/color/color.go
package color

import (
	"github.com/fatih/color"
)

var (
	promptColor    = color.New(color.FgCyan, color.Bold)
	infoColor      = color.New(color.FgGreen)
	warningColor   = color.New(color.FgYellow, color.Bold)
	errorColor     = color.New(color.FgRed, color.Bold)
	assistantColor = color.New(color.FgHiYellow)
	userColor      = color.New(color.FgHiBlue)
	mutedColor     = color.New(color.FgHiBlack)
	boldStyle      = color.New(color.Bold)
	italicStyle    = color.New(color.Italic)
	boldItalic     = color.New(color.Bold, color.Italic)
	activeColor    = color.New(color.FgHiGreen, color.Bold)
)

// Disable turns off escape codes, e.g. when stdout is not a terminal.
func Disable() {
	color.NoColor = true
}

func ColorPrompt(s string) string {
	return promptColor.Sprint(s)
}

func ColorInfo(s string) string {
	return infoColor.Sprint(s)
}

func ColorWarning(s string) string {
	return warningColor.Sprint(s)
}

func ColorError(s string) string {
	return errorColor.Sprint(s)
}

func ColorAssistant(s string) string {
	return assistantColor.Sprint(s)
}

func ColorUser(s string) string {
	return userColor.Sprint(s)
}

func ColorMuted(s string) string {
	return mutedColor.Sprint(s)
}

func ColorActive(s string) string {
	return activeColor.Sprint(s)
}

func Bold(s string) string {
	return boldStyle.Sprint(s)
}

func Italic(s string) string {
	return italicStyle.Sprint(s)
}

func BoldItalic(s string) string {
	return boldItalic.Sprint(s)
}
