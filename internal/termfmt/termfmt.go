// This helper library has been graciously donated by @shabbyrobe; i'll leave the rest of the
// preamble intact:

// Not-at-all novel terminal style copypasta, originally from
// https://raw.githubusercontent.com/shabbyrobe/golib/master/termfmt/termfmt.go
// Provided under an MIT license.
//
// Trimmed down to what the run summary needs: bold, the 16 basic colours, and a switch to turn
// styling off when the output isn't a terminal.
package termfmt

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode"
)

type Escape interface {
	Wrap(out string) string
}

func With(escs ...Escape) Style { return (Style{}).With(escs...) }
func Bold() Style               { return (Style{}).Bold() }
func Fg(c Color) Style          { return (Style{}).Fg(c) }

// Style is a fmt.Formatter: fmt.Printf("%-10s", termfmt.Bold().V(name)) pads the name, then
// styles it.
type Style struct {
	escapes []Escape
	v       any
}

var _ fmt.Formatter = Style{}

func (c Style) With(escs ...Escape) Style {
	c.escapes = append(append([]Escape(nil), c.escapes...), escs...)
	return c
}

func (c Style) Bold() Style        { return c.With(BoldEscape{}) }
func (c Style) Fg(col Color) Style { return c.With(col) }

func (c Style) V(v any) Style {
	c.v = v
	return c
}

func (c Style) Format(f fmt.State, verb rune) {
	v := printable(fmt.Sprintf(buildValueFormat(f, verb), c.v))
	if enabled.Load() {
		for i := len(c.escapes) - 1; i >= 0; i-- {
			v = c.escapes[i].Wrap(v)
		}
	}
	f.Write([]byte(v))
}

func buildValueFormat(f fmt.State, verb rune) string {
	s := "%"
	for _, flag := range " +-0#" {
		if f.Flag(int(flag)) {
			s += string(flag)
		}
	}
	if width, ok := f.Width(); ok {
		s += strconv.Itoa(width)
	}
	if prec, ok := f.Precision(); ok {
		s += "." + strconv.Itoa(prec)
	}
	return s + string(verb)
}

type BoldEscape struct{}

func (b BoldEscape) Wrap(v string) string { return fmt.Sprintf("\x1b[1m%s\x1b[0m", v) }

// Color is one of the 16 colours every terminal agrees on.
type Color uint8

const (
	DefaultColor Color = iota

	Black
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	LightGrey

	DarkGrey
	LightRed
	LightGreen
	LightYellow
	LightBlue
	LightMagenta
	LightCyan
	White
)

func (c Color) Wrap(out string) string {
	cv := 39
	if c != DefaultColor {
		// Our enum starts at one, adjust so it starts at 0.  The lower 8 colours run from 30 to
		// 37, the upper 8 from 90 to 97.
		cv = int(c) - 1 + 30
		if c >= DarkGrey {
			cv = int(c) - int(DarkGrey) + 90
		}
	}
	return fmt.Sprintf("\x1b[%dm"+"%s"+"\x1b[0m", cv, out)
}

var enabled atomic.Bool

func init() {
	enabled.Store(true)
}

// SetEnabled switches styling on or off for every Style.
func SetEnabled(on bool) { enabled.Store(on) }

// Auto enables styling only if w is a terminal and NO_COLOR isn't set.
func Auto(w io.Writer) {
	SetEnabled(isTerminal(w) && os.Getenv("NO_COLOR") == "")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func mapPrintable(r rune) rune {
	if unicode.IsGraphic(r) {
		return r
	}
	return -1
}

func printable(v string) string {
	return strings.Map(mapPrintable, v)
}
