// Package logging provides the process-wide structured logger used by
// every subsystem of repcore. It wraps logrus instead of hand-rolling
// level filtering and ANSI colouring, while keeping the teacher's
// banner/section presentation for startup output.
package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

var root = newRoot()

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
	l.SetLevel(logrus.InfoLevel)
	l.SetOutput(os.Stdout)
	return l
}

// SetLevel sets the minimum log level by name ("debug", "info", "warn", "error").
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	root.SetLevel(lvl)
}

// For returns a subsystem-scoped entry, e.g. For("transport").WithField("addr", addr).Info(...)
func For(subsystem string) *logrus.Entry {
	return root.WithField("subsystem", subsystem)
}

const (
	colorReset  = "\033[0m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
)

// Section prints a section header to stdout, bypassing structured logging —
// this is operator-facing chrome, not a log record.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Printf("\n%s╔%s╗%s\n", colorCyan, border, colorReset)
	fmt.Printf("%s║%s %-57s %s║%s\n", colorCyan, colorReset, title, colorCyan, colorReset)
	fmt.Printf("%s╚%s╝%s\n\n", colorCyan, border, colorReset)
}

// Banner prints the application banner.
func Banner(title, version string) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   ██████╗ ███████╗██████╗  ██████╗ ██████╗ ██████╗ ███████╗║
║   ██╔══██╗██╔════╝██╔══██╗██╔════╝██╔═══██╗██╔══██╗██╔════╝║
║   ██████╔╝█████╗  ██████╔╝██║     ██║   ██║██████╔╝█████╗  ║
║   ██╔══██╗██╔══╝  ██╔═══╝ ██║     ██║   ██║██╔══██╗██╔══╝  ║
║   ██║  ██║███████╗██║     ╚██████╗╚██████╔╝██║  ██║███████╗║
║   ╚═╝  ╚═╝╚══════╝╚═╝      ╚═════╝ ╚═════╝ ╚═╝  ╚═╝╚══════╝║
║                                                           ║
║              %s%-37s%s║
║                    %sVersion %-7s%s                      ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, colorCyan, title, colorReset, colorGreen, version, colorReset)
}
