package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
)

func newTestPrompter(in io.Reader, tty bool) (*consolePrompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &consolePrompter{
		in:         in,
		out:        out,
		isTerminal: func() bool { return tty },
	}, out
}

func TestConsolePrompterAnswers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "y\n", true},
		{"yes word", "Yes\n", true},
		{"no", "n\n", false},
		{"empty line declines", "\n", false},
		{"reasks on garbage", "maybe\ny\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, out := newTestPrompter(strings.NewReader(tt.input), true)

			got, err := p.Ask(context.Background(), "main", "Harbor", "Close?")
			if err != nil {
				t.Fatalf("Ask() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Ask() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(out.String(), "Harbor: Close? [y/N]") {
				t.Errorf("prompt not printed, got %q", out.String())
			}
		})
	}
}

func TestConsolePrompterWithoutTerminal(t *testing.T) {
	p, out := newTestPrompter(strings.NewReader("y\n"), false)

	got, err := p.Ask(context.Background(), "main", "Harbor", "Close?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got {
		t.Error("Ask() = true without a terminal, want false")
	}
	if out.Len() != 0 {
		t.Errorf("prompt printed without a terminal: %q", out.String())
	}
}

func TestConsolePrompterEOF(t *testing.T) {
	p, _ := newTestPrompter(strings.NewReader(""), true)

	got, err := p.Ask(context.Background(), "main", "Harbor", "Close?")
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Ask() error = %v, want io.EOF", err)
	}
	if got {
		t.Error("Ask() = true at EOF")
	}
}

func TestConsolePrompterCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	p, _ := newTestPrompter(pr, true)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	got, err := p.Ask(ctx, "main", "Harbor", "Close?")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Ask() error = %v, want deadline exceeded", err)
	}
	if got {
		t.Error("Ask() = true after cancellation")
	}
}

func TestConsolePrompterOnPseudoTerminal(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty not available: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	out := &bytes.Buffer{}
	p := newConsolePrompter(tty, out)

	go func() { _, _ = ptmx.Write([]byte("y\n")) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := p.Ask(ctx, "main", "Harbor", "Close?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !got {
		t.Error("Ask() = false, want true")
	}
}

func TestConsolePrompterOnPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	p := newConsolePrompter(r, &bytes.Buffer{})
	got, err := p.Ask(context.Background(), "main", "Harbor", "Close?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got {
		t.Error("Ask() = true on a pipe, want false")
	}
}
