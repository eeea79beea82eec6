package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
)

var (
	reset = "\033[0m"
	bold  = "\033[1m"

	fgGray   = "\033[90m"
	fgGreen  = "\033[32m"
	fgYellow = "\033[33m"
	fgBlue   = "\033[34m"
	fgRed    = "\033[31m"

	symCheck = "✔"
	symCross = "✖"
)

var (
	forceColor   bool
	disableColor bool
)

// SetColorForcing overrides terminal detection. disable wins over force.
func SetColorForcing(force, disable bool) {
	forceColor = force
	disableColor = disable
}

// colorEnabled honours NO_COLOR and friends through termenv.
func colorEnabled() bool {
	if disableColor {
		return false
	}
	if forceColor {
		return true
	}
	return termenv.NewOutput(os.Stdout).EnvColorProfile() != termenv.Ascii
}

// C wraps s in the given escape sequence when color is enabled.
func C(color, s string) string {
	if color == "" || !colorEnabled() {
		return s
	}
	return color + s + reset
}

func OK(w io.Writer, msg string)   { fmt.Fprintln(w, C(current.Success, symCheck+" "+msg)) }
func Fail(w io.Writer, msg string) { fmt.Fprintln(w, C(current.Error, symCross+" "+msg)) }
