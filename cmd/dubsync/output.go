package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// progressPrinter redraws a single percentage line on terminals and stays
// silent otherwise.
type progressPrinter struct {
	out     io.Writer
	label   string
	enabled bool
	last    int
}

func newProgressPrinter(out io.Writer, label string) *progressPrinter {
	return &progressPrinter{out: out, label: label, enabled: isTerminal(out), last: -1}
}

func (p *progressPrinter) update(fraction float64) {
	if !p.enabled {
		return
	}
	pct := int(math.Round(math.Min(math.Max(fraction, 0), 1) * 100))
	if pct == p.last {
		return
	}
	p.last = pct
	fmt.Fprintf(p.out, "\r%s %3d%%", p.label, pct)
}

func (p *progressPrinter) done() {
	if p.enabled && p.last >= 0 {
		fmt.Fprintln(p.out)
	}
}

func formatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	millis := int(math.Round((seconds - float64(total)) * 1000))
	if millis == 1000 {
		total++
		millis = 0
	}
	return fmt.Sprintf("%02d:%02d.%03d", total/60, total%60, millis)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// lockedWriter serialises writes from the player, scheduler and control
// goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
