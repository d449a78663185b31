package encourager

import "context"

var lines = []string{
	"Keep going, one chapter at a time.",
	"Every day you show up is a day won.",
	"Small steps, whole Bible. You've got this.",
	"Consistency beats intensity. See you tomorrow.",
	"A few pages today, a changed year tomorrow.",
	"Don't break the chain!",
	"You're further along than you were yesterday.",
}

// Simple rotates through a fixed set of encouragement lines. It is the
// fallback when no language model is configured and never fails.
type Simple struct{}

func NewSimple() *Simple {
	return &Simple{}
}

func (s *Simple) Encouragement(_ context.Context, day int, _ string) (string, error) {
	if day < 0 {
		day = -day
	}
	return lines[day%len(lines)], nil
}
