// Package console implements a line-editing admin console for a
// running server process: status, kick, broadcast and players
// commands. The console is deliberately non-authoritative — it only
// calls exported methods on whatever Hooks implementation it is given,
// never reaching into World/Scene internals directly.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"

	"repcore/pkg/logging"
)

// Hooks is the minimal surface an admin console needs from the running
// server. A concrete server wires its World/Scene/transport state
// behind these methods; this package never imports those packages.
type Hooks interface {
	// Status returns a short human-readable summary line.
	Status() string
	// Players lists currently connected peers by address.
	Players() []string
	// Kick disconnects the named peer, returning an error if unknown.
	Kick(addr string) error
	// Broadcast sends a message to every connected peer.
	Broadcast(message string)
}

// Console is a liner-backed REPL, grounded on
// sandia-minimega-minimega/pkg/miniclient/client.go's Conn.Attach:
// a liner.State with tab completion and ^C-abort handling, a prompt
// loop reading lines until EOF, blank lines skipped.
type Console struct {
	hooks  Hooks
	out    io.Writer
	prompt string
	log    *logrus.Entry
}

// New builds a Console bound to hooks, writing output to out.
func New(hooks Hooks, out io.Writer, prompt string) *Console {
	if prompt == "" {
		prompt = "repcore> "
	}
	return &Console{hooks: hooks, out: out, prompt: prompt, log: logging.For("console")}
}

// Run drives the REPL until the input stream reaches EOF or the
// "quit" command is entered. It does not stop the server process.
func (c *Console) Run() {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(c.complete)

	for {
		input, err := line.Prompt(c.prompt)
		if err == liner.ErrPromptAborted {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			c.log.WithField("error", err).Error("console read failed")
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if c.dispatch(input) {
			return
		}
	}
}

func (c *Console) complete(partial string) []string {
	names := []string{"status", "players", "kick", "broadcast", "quit"}
	var out []string
	for _, n := range names {
		if strings.HasPrefix(n, partial) {
			out = append(out, n)
		}
	}
	return out
}

// dispatch runs one command line and reports whether the console
// should stop.
func (c *Console) dispatch(line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "quit", "exit":
		return true
	case "status":
		fmt.Fprintln(c.out, c.hooks.Status())
	case "players":
		for _, addr := range c.hooks.Players() {
			fmt.Fprintln(c.out, addr)
		}
	case "kick":
		if len(args) != 1 {
			fmt.Fprintln(c.out, "usage: kick <addr>")
			return false
		}
		if err := c.hooks.Kick(args[0]); err != nil {
			fmt.Fprintln(c.out, "kick failed:", err)
		}
	case "broadcast":
		c.hooks.Broadcast(strings.Join(args, " "))
	default:
		fmt.Fprintf(c.out, "unknown command %q\n", cmd)
	}
	return false
}
