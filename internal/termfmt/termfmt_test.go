package termfmt_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toothbrush/site-mirror/internal/termfmt"
)

func TestStyles(t *testing.T) {
	termfmt.SetEnabled(true)

	assert.Equal(t, "\x1b[1mhome\x1b[0m", fmt.Sprintf("%s", termfmt.Bold().V("home")))
	assert.Equal(t, "\x1b[31m3\x1b[0m", fmt.Sprintf("%d", termfmt.Fg(termfmt.Red).V(3)))
	assert.Equal(t, "\x1b[93mx\x1b[0m", fmt.Sprintf("%s", termfmt.Fg(termfmt.LightYellow).V("x")))
	assert.Equal(t, "\x1b[1m\x1b[32mok\x1b[0m\x1b[0m", fmt.Sprintf("%s", termfmt.Bold().Fg(termfmt.Green).V("ok")))
}

func TestWidthAppliesBeforeStyling(t *testing.T) {
	termfmt.SetEnabled(true)
	assert.Equal(t, "\x1b[1mab  \x1b[0m", fmt.Sprintf("%-4s", termfmt.Bold().V("ab")))
}

func TestDisabledAndUnprintable(t *testing.T) {
	termfmt.SetEnabled(false)
	defer termfmt.SetEnabled(true)

	assert.Equal(t, "plain", fmt.Sprintf("%s", termfmt.Bold().V("plain")))
	assert.Equal(t, "nobell", fmt.Sprintf("%s", termfmt.Fg(termfmt.Red).V("no\abell")))
}

func TestStylesDoNotShareEscapes(t *testing.T) {
	termfmt.SetEnabled(true)
	base := termfmt.Bold()
	red := base.Fg(termfmt.Red)
	blue := base.Fg(termfmt.Blue)
	assert.Equal(t, "\x1b[1m\x1b[31mr\x1b[0m\x1b[0m", fmt.Sprintf("%s", red.V("r")))
	assert.Equal(t, "\x1b[1m\x1b[34mb\x1b[0m\x1b[0m", fmt.Sprintf("%s", blue.V("b")))
}
