// ducksearch/utils/color/color.go
package color

import (
	"github.com/fatih/color"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	titleColor   = color.New(color.FgHiWhite, color.Bold)
	urlColor     = color.New(color.FgBlue, color.Underline)
	infoColor    = color.New(color.FgGreen)
	labelColor   = color.New(color.FgHiBlack)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
)

func ColorHeader(s string) string {
	return headerColor.Sprint(s)
}

func ColorTitle(s string) string {
	return titleColor.Sprint(s)
}

func ColorURL(s string) string {
	return urlColor.Sprint(s)
}

func ColorInfo(s string) string {
	return infoColor.Sprint(s)
}

func ColorLabel(s string) string {
	return labelColor.Sprint(s)
}

func ColorWarning(s string) string {
	return warningColor.Sprint(s)
}

func ColorError(s string) string {
	return errorColor.Sprint(s)
}

// Disable turns colors off, e.g. when output is not a terminal.
func Disable() {
	color.NoColor = true
}
