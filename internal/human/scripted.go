package human

import (
	"context"
	"fmt"
	"sync"
)

// Scripted answers prompts from a fixed queue. It is used for batch runs and tests.
type Scripted struct {
	mu       sync.Mutex
	answers  []string
	Messages []string // every message or question shown, in order
}

// NewScripted creates a Scripted prompter that returns answers in order.
func NewScripted(answers ...string) *Scripted {
	return &Scripted{answers: answers}
}

// Confirm records message. It never consumes an answer.
func (s *Scripted) Confirm(_ context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, message)
	return nil
}

// Choose pops the next answer and checks it against options.
func (s *Scripted) Choose(_ context.Context, message string, options []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, message)

	answer, err := s.next()
	if err != nil {
		return "", err
	}
	choice, ok := matchOption(answer, options)
	if !ok {
		return "", fmt.Errorf("scripted answer %q is not one of %v", answer, options)
	}
	return choice, nil
}

// Ask pops the next answer.
func (s *Scripted) Ask(_ context.Context, question string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, question)
	return s.next()
}

func (s *Scripted) next() (string, error) {
	if len(s.answers) == 0 {
		return "", ErrNoInput
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}
