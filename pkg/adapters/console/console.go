// Package console provides an interactive terminal messenger: a
// read-eval-print loop that feeds lines from stdin through the pipeline and
// prints the responses.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/ketram/parley/pkg/domain"
	"github.com/ketram/parley/pkg/ports"
)

// Messenger implements ports.Messenger over a line-oriented text stream.
// One console session drives one dialog context.
type Messenger struct {
	reader *bufio.Reader
	writer io.Writer
	ctxID  string
	render func(string) (string, error)
}

type Option func(*Messenger)

// WithIO overrides the input and output streams, mainly for tests.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(m *Messenger) {
		m.reader = bufio.NewReader(r)
		m.writer = w
	}
}

// WithContextID pins the session to an existing dialog context.
func WithContextID(id string) Option {
	return func(m *Messenger) { m.ctxID = id }
}

// New creates a console messenger on stdin/stdout. When stdout is a
// terminal, responses are rendered as markdown.
func New(opts ...Option) *Messenger {
	m := &Messenger{
		reader: bufio.NewReader(os.Stdin),
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.writer == os.Stdout && term.IsTerminal(int(os.Stdout.Fd())) {
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle()); err == nil {
			m.render = r.Render
		}
	}
	return m
}

// Connect runs the chat loop until the input closes, the user quits or ctx
// is cancelled.
func (m *Messenger) Connect(ctx context.Context, handler ports.TurnHandler) error {
	if m.ctxID == "" {
		m.ctxID = uuid.NewString()
	}

	out := termenv.NewOutput(m.writer)
	prompt := out.String("> ").Bold().String()
	fmt.Fprintln(m.writer, "Chat session started. Type /quit to leave.")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(m.writer, prompt)

		line, err := m.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(m.writer)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		text := strings.TrimSpace(line)
		switch text {
		case "":
			continue
		case "/quit", "/exit":
			fmt.Fprintln(m.writer, "Bye.")
			return nil
		}

		dc, err := handler(ctx, domain.NewMessage(text), m.ctxID, nil)
		if err != nil {
			fmt.Fprintf(m.writer, "error: %v\n", err)
			continue
		}
		m.print(dc)
	}
}

func (m *Messenger) print(dc *domain.Context) {
	resp, ok := dc.LastResponse()
	if !ok || resp.Text == "" {
		fmt.Fprintln(m.writer, "(no response)")
		return
	}
	output := resp.Text
	if m.render != nil {
		if rendered, err := m.render(output); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(m.writer, strings.TrimSpace(output))
}
