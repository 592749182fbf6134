package human

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole_Confirm(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("\n"), &out)

	require.NoError(t, c.Confirm(context.Background(), "Solve the CAPTCHA in the browser."))
	assert.Contains(t, out.String(), "Solve the CAPTCHA in the browser.")
	assert.Contains(t, out.String(), "Press Enter")
}

func TestConsole_ChooseRetriesInvalidInput(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("maybe\n9\n2\n"), &out)

	choice, err := c.Choose(context.Background(), "Link failed", []string{"retry", "skip", "quit"})
	require.NoError(t, err)
	assert.Equal(t, "skip", choice)
	assert.Equal(t, 2, strings.Count(out.String(), "Invalid choice"))
}

func TestConsole_ChooseByName(t *testing.T) {
	c := NewConsole(strings.NewReader("QUIT\n"), &bytes.Buffer{})

	choice, err := c.Choose(context.Background(), "Link failed", []string{"retry", "skip", "quit"})
	require.NoError(t, err)
	assert.Equal(t, "quit", choice)
}

func TestConsole_ChooseNoOptions(t *testing.T) {
	c := NewConsole(strings.NewReader("1\n"), &bytes.Buffer{})
	_, err := c.Choose(context.Background(), "empty", nil)
	assert.Error(t, err)
}

func TestConsole_Ask(t *testing.T) {
	c := NewConsole(strings.NewReader("  Alex Lee  \nlast line without newline"), &bytes.Buffer{})

	answer, err := c.Ask(context.Background(), "Name")
	require.NoError(t, err)
	assert.Equal(t, "Alex Lee", answer)

	answer, err = c.Ask(context.Background(), "School")
	require.NoError(t, err)
	assert.Equal(t, "last line without newline", answer)

	_, err = c.Ask(context.Background(), "GPA")
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestConsole_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewConsole(strings.NewReader("x\n"), &bytes.Buffer{})

	_, err := c.Ask(ctx, "Name")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScripted(t *testing.T) {
	s := NewScripted("Alex Lee", "retry", "bogus")
	ctx := context.Background()

	require.NoError(t, s.Confirm(ctx, "log in please"))

	answer, err := s.Ask(ctx, "Name")
	require.NoError(t, err)
	assert.Equal(t, "Alex Lee", answer)

	choice, err := s.Choose(ctx, "failed", []string{"retry", "skip", "quit"})
	require.NoError(t, err)
	assert.Equal(t, "retry", choice)

	_, err = s.Choose(ctx, "failed", []string{"retry", "skip", "quit"})
	assert.Error(t, err)

	_, err = s.Ask(ctx, "School")
	assert.ErrorIs(t, err, ErrNoInput)

	assert.Equal(t, []string{"log in please", "Name", "failed", "failed", "School"}, s.Messages)
}

func TestConsole_ConfirmCancelled(t *testing.T) {
	in, w := io.Pipe()
	defer w.Close()
	c := NewConsole(in, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Confirm(ctx, "Log in, then press Enter.") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Confirm did not return after cancellation")
	}
}

func TestConsole_LineAfterCancelGoesToNextPrompt(t *testing.T) {
	in, w := io.Pipe()
	defer w.Close()
	c := NewConsole(in, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Ask(ctx, "Name")
	require.ErrorIs(t, err, context.Canceled)

	waitCtx, stop := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer stop()
	_, err = c.Ask(waitCtx, "Name")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	go func() { _, _ = io.WriteString(w, "Alex Lee\n") }()
	answer, err := c.Ask(context.Background(), "Name")
	require.NoError(t, err)
	assert.Equal(t, "Alex Lee", answer)
}
