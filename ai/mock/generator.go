package mock

import (
	"context"
	"sync"
)

type GenerateCall struct {
	Instruction string
	Question    string
}

// Generator records every generation request so tests can assert on the
// composed instruction, or that no model call was made at all.
type Generator struct {
	// Err, when set, is returned by every call.
	Err error

	// Respond, when set, computes the reply from the instruction and
	// question. Defaults to a fixed canned answer.
	Respond func(instruction, question string) string

	mu    sync.Mutex
	calls []GenerateCall
}

func (g *Generator) Generate(ctx context.Context, instruction string, question string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, GenerateCall{
		Instruction: instruction,
		Question:    question,
	})
	g.mu.Unlock()

	if g.Err != nil {
		return "", g.Err
	}

	if g.Respond != nil {
		return g.Respond(instruction, question), nil
	}

	return "This is a mock answer.", nil
}

// Calls returns a copy of the recorded generation requests.
func (g *Generator) Calls() []GenerateCall {
	g.mu.Lock()
	defer g.mu.Unlock()

	calls := make([]GenerateCall, len(g.calls))
	copy(calls, g.calls)

	return calls
}
