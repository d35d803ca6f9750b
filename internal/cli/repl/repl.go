package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ErrUnknownCommand is returned by an Executor for a command it does not
// know. The shell answers it with suggestions.
var ErrUnknownCommand = errors.New("unknown command")

// Executor runs one shell command. args[0] is the command name.
type Executor func(ctx context.Context, args []string) error

// Config configures a REPL.
type Config struct {
	// In is shared with anything else that reads the operator's input,
	// such as credential prompts.
	In     *bufio.Reader
	Out    io.Writer
	Prompt string
	// HistoryFile persists history across sessions. Empty keeps history
	// in memory only.
	HistoryFile string
	// Commands lists the command names offered as suggestions.
	Commands []string
	Exec     Executor
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	in        *bufio.Reader
	out       io.Writer
	prompt    string
	exec      Executor
	completer *Completer
	history   *History
}

// New creates a new REPL.
func New(cfg Config) *REPL {
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = "tunnelmgr> "
	}
	return &REPL{
		in:        cfg.In,
		out:       cfg.Out,
		prompt:    prompt,
		exec:      cfg.Exec,
		completer: NewCompleter(cfg.Commands),
		history:   NewHistory(cfg.HistoryFile),
	}
}

// History returns the shell's history.
func (r *REPL) History() *History { return r.history }

// Run reads and executes lines until exit, quit, end of input or ctx
// cancellation. Command errors are printed and the loop continues.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.history.Load(); err != nil {
		fmt.Fprintf(r.out, "warning: history not loaded: %v\n", err)
	}
	defer func() {
		if err := r.history.Save(); err != nil {
			fmt.Fprintf(r.out, "warning: history not saved: %v\n", err)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.out, r.prompt)

		line, err := r.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.history.Add(line)

		if stop := r.handle(ctx, line); stop {
			return nil
		}
	}
}

// handle runs one line and reports whether the shell should exit.
func (r *REPL) handle(ctx context.Context, line string) bool {
	args, err := shellquote.Split(line)
	if err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "exit", "quit":
		return true
	case "history":
		for i, e := range r.history.Entries() {
			fmt.Fprintf(r.out, "%4d  %s\n", i+1, e)
		}
		return false
	}

	err = r.exec(ctx, args)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnknownCommand):
		fmt.Fprintf(r.out, "unknown command %q", args[0])
		if s := r.completer.Suggest(args[0]); len(s) > 0 {
			fmt.Fprintf(r.out, ", did you mean: %s?", strings.Join(s, ", "))
		}
		fmt.Fprintln(r.out)
	default:
		fmt.Fprintf(r.out, "error: %v\n", err)
	}
	return false
}
