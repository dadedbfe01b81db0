package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// consolePrompter asks close confirmations on the controlling terminal. It
// is used when no TUI owns the terminal.
type consolePrompter struct {
	in         io.Reader
	out        io.Writer
	isTerminal func() bool

	mu       sync.Mutex // one question at a time
	scanOnce sync.Once
	lines    chan string
}

func newConsolePrompter(in *os.File, out io.Writer) *consolePrompter {
	return &consolePrompter{
		in:  in,
		out: out,
		isTerminal: func() bool {
			return term.IsTerminal(int(in.Fd()))
		},
	}
}

// Ask prints the question and waits for a y/n answer. Without a terminal
// nobody can answer, so it declines.
func (p *consolePrompter) Ask(ctx context.Context, label, title, message string) (bool, error) {
	if !p.isTerminal() {
		log.Printf("[prompt] No terminal to confirm closing %q, keeping it open", label)
		return false, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	lines := p.readLines()
	for {
		fmt.Fprintf(p.out, "%s: %s [y/N] ", title, message)
		select {
		case <-ctx.Done():
			fmt.Fprintln(p.out)
			return false, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return false, io.EOF
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "y", "yes":
				return true, nil
			case "", "n", "no":
				return false, nil
			}
		}
	}
}

// readLines starts the single reader goroutine. A line typed while no
// question is pending is delivered to the next question.
func (p *consolePrompter) readLines() <-chan string {
	p.scanOnce.Do(func() {
		p.lines = make(chan string)
		go func() {
			defer close(p.lines)
			sc := bufio.NewScanner(p.in)
			for sc.Scan() {
				p.lines <- sc.Text()
			}
		}()
	})
	return p.lines
}
