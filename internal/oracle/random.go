package oracle

import (
	"context"
	"math/rand/v2"
)

// Random is a local policy that picks uniformly among legal choices. It is
// the default when no LLM endpoint is configured, and handy in tests.
type Random struct{}

var cannedLines = []string{
	"Someone here is lying, I can feel it.",
	"I was asleep all night, I swear.",
	"Let's look at who has been too quiet.",
	"I don't trust the loudest voice in the room.",
	"We should think about last night before we vote.",
}

func (Random) Decide(_ context.Context, req Request) (Response, error) {
	switch req.Kind {
	case KindChat:
		return Response{Message: cannedLines[rand.IntN(len(cannedLines))]}, nil
	default:
		if len(req.Targets) == 0 {
			return Response{Abstain: true}, nil
		}
		return Response{TargetID: req.Targets[rand.IntN(len(req.Targets))].ID}, nil
	}
}
