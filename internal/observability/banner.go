package observability

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

const (
	colorReset    = "\033[0m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
)

const banner = `
                            ______
   ____ ___  _________    / __/ /___ _      __
  / __ ` + "`" + `__ \/ ___/ __ \  / /_/ / __ \ | /| / /
 / / / / / / /__/ /_/ / / __/ / /_/ / |/ |/ /
/_/ /_/ /_/\___/ .___/ /_/ /_/\____/|__/|__/
              /_/
`

// termMu serialises banner and log output on the terminal.
var termMu sync.Mutex

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

type termWriter struct {
	out io.Writer
}

func (tw termWriter) Write(p []byte) (n int, err error) {
	termMu.Lock()
	defer termMu.Unlock()
	return tw.out.Write(p)
}

// NewTermWriter returns an io.Writer suitable for log.SetOutput().
func NewTermWriter() io.Writer {
	return termWriter{out: os.Stderr}
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// PrintBanner centres the logo and a subtitle line on out.
func PrintBanner(out io.Writer, subtitle string) {
	width := termWidth()
	lines := strings.Split(banner, "\n")
	if subtitle != "" {
		lines = append(lines, ">> "+subtitle+" <<", "")
	}

	termMu.Lock()
	defer termMu.Unlock()
	for i, l := range lines {
		padding := (width - len([]rune(l))) / 2
		if padding < 0 {
			padding = 0
		}
		color := colorNeonCyan
		if subtitle != "" && i == len(lines)-2 {
			color = colorNeonMag
		}
		fmt.Fprintf(out, "%s%s%s\n", strings.Repeat(" ", padding), color+l, colorReset)
	}
}
