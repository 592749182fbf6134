// Package human is the boundary where the agent waits on the person at the keyboard.
package human

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// ErrNoInput is returned when the input stream ends before an answer is read.
var ErrNoInput = errors.New("no more input")

// Prompter blocks until a human answers. Waits have no timeout.
type Prompter interface {
	// Confirm shows message and waits for the human to acknowledge it.
	Confirm(ctx context.Context, message string) error
	// Choose asks the human to pick one of options and returns the chosen option.
	Choose(ctx context.Context, message string, options []string) (string, error)
	// Ask asks a free-form question and returns the trimmed answer.
	Ask(ctx context.Context, question string) (string, error)
}

// Console prompts on a terminal.
type Console struct {
	in    *bufio.Reader
	out   io.Writer
	mu    sync.Mutex
	start sync.Once
	lines chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewConsole creates a Console reading answers from in and writing prompts to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out, lines: make(chan lineResult)}
}

// Confirm prints message and waits for Enter.
func (c *Console) Confirm(ctx context.Context, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "%s\nPress Enter to continue...", message)
	_, err := c.readLine(ctx)
	return err
}

// Choose prints the numbered options and reads until a valid number or option
// name is entered.
func (c *Console) Choose(ctx context.Context, message string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("choose: no options for %q", message)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		fmt.Fprintln(c.out, message)
		for i, opt := range options {
			fmt.Fprintf(c.out, "  %d) %s\n", i+1, opt)
		}
		fmt.Fprint(c.out, "> ")

		line, err := c.readLine(ctx)
		if err != nil {
			return "", err
		}
		if choice, ok := matchOption(line, options); ok {
			return choice, nil
		}
		fmt.Fprintf(c.out, "Invalid choice %q\n", line)
	}
}

// Ask prints question and returns the answer line.
func (c *Console) Ask(ctx context.Context, question string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "%s: ", question)
	return c.readLine(ctx)
}

// readLine waits for the next input line or for ctx to end. A single reader
// goroutine owns the input, so a line typed after a cancelled wait is handed
// to the next prompt instead of being lost.
func (c *Console) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.start.Do(func() { go c.readLoop() })

	select {
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return "", ctx.Err()
	case r, ok := <-c.lines:
		if !ok {
			return "", ErrNoInput
		}
		return r.line, r.err
	}
}

func (c *Console) readLoop() {
	defer close(c.lines)
	for {
		line, err := c.in.ReadString('\n')
		switch {
		case err == nil:
			c.lines <- lineResult{line: strings.TrimSpace(line)}
		case errors.Is(err, io.EOF):
			if line != "" {
				c.lines <- lineResult{line: strings.TrimSpace(line)}
			}
			return
		default:
			c.lines <- lineResult{err: fmt.Errorf("failed to read input: %w", err)}
			return
		}
	}
}

// matchOption accepts a 1-based index or a case-insensitive option name.
func matchOption(answer string, options []string) (string, bool) {
	answer = strings.TrimSpace(answer)
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], true
		}
		return "", false
	}
	for _, opt := range options {
		if strings.EqualFold(answer, opt) {
			return opt, true
		}
	}
	return "", false
}
