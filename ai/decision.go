package ai

import (
	"errors"
	"fmt"
)

var ErrDecisionDepth = errors.New("ai: decision tree exceeded step limit")

// DefaultDecisionSteps bounds Evaluate so a cyclic tree cannot spin forever.
const DefaultDecisionSteps = 64

// Decision is a decision tree node. It returns the next node to evaluate, or
// nil when the walk is finished.
type Decision interface {
	Decide() Decision
}

// BoolDecision branches on Test.
type BoolDecision struct {
	Test  func() bool
	True  Decision
	False Decision
}

func (b *BoolDecision) Decide() Decision {
	if b.Test != nil && b.Test() {
		return b.True
	}
	return b.False
}

// ActionDecision is a leaf that runs Do.
type ActionDecision struct {
	Do func()
}

func (a *ActionDecision) Decide() Decision {
	if a.Do != nil {
		a.Do()
	}
	return nil
}

// LogDecision is a leaf that logs Message.
type LogDecision struct {
	Message string
}

func (l *LogDecision) Decide() Decision {
	logger.Info(l.Message)
	return nil
}

// Evaluate walks from root until a node returns nil and reports how many
// nodes were visited. maxSteps <= 0 uses DefaultDecisionSteps.
func Evaluate(root Decision, maxSteps int) (int, error) {
	if maxSteps <= 0 {
		maxSteps = DefaultDecisionSteps
	}
	steps := 0
	for cur := root; cur != nil; {
		if steps == maxSteps {
			return steps, fmt.Errorf("%w (%d)", ErrDecisionDepth, maxSteps)
		}
		steps++
		cur = cur.Decide()
	}
	return steps, nil
}
