package tools

import (
	"context"
	"sync"
)

// Decision is the user's answer at the confirmation gate.
type Decision int

const (
	// DecisionApplyOnce approves this invocation only.
	DecisionApplyOnce Decision = iota
	// DecisionRejectOnce declines this invocation only.
	DecisionRejectOnce
	// DecisionAlwaysAllow approves and persists an allow rule for the
	// exact subject.
	DecisionAlwaysAllow
	// DecisionAlwaysDeny declines and persists a deny rule for the exact
	// subject.
	DecisionAlwaysDeny
	// DecisionAlwaysAllowPattern approves and persists an allow rule for
	// the subject's generalized pattern, covering sibling invocations.
	DecisionAlwaysAllowPattern
	// DecisionAlwaysDenyPattern declines and persists a deny rule for the
	// subject's generalized pattern.
	DecisionAlwaysDenyPattern
)

func (d Decision) approved() bool {
	return d == DecisionApplyOnce || d == DecisionAlwaysAllow || d == DecisionAlwaysAllowPattern
}

// ConfirmRequest is what the user is asked to approve.
type ConfirmRequest struct {
	ToolName   string
	ToolCallID string
	// Subject is the string permission rules match against; "always"
	// decisions persist a rule for it.
	Subject string
	// Proposal is the renderable description of the pending effect.
	Proposal string
}

// ConfirmFunc obtains a decision for a pending side effect. Implementations
// must honor ctx: when the context is cancelled the wait resolves as an
// implicit rejection so the loop can reach a terminal state rather than
// hang. There is no timeout by default; a human may take arbitrarily long.
type ConfirmFunc func(ctx context.Context, req ConfirmRequest) Decision

// Confirmation is a one-shot rendezvous between the gateway goroutine and
// the user's input: the first call to Decide wins, later calls are ignored,
// and Cancel resolves the wait as a rejection.
type Confirmation struct {
	once sync.Once
	ch   chan Decision
}

func NewConfirmation() *Confirmation {
	return &Confirmation{ch: make(chan Decision, 1)}
}

// Decide resolves the rendezvous. Only the first decision takes effect.
func (c *Confirmation) Decide(d Decision) {
	c.once.Do(func() {
		c.ch <- d
		close(c.ch)
	})
}

// Cancel resolves the rendezvous as an implicit rejection.
func (c *Confirmation) Cancel() {
	c.Decide(DecisionRejectOnce)
}

// Wait blocks until a decision arrives or ctx is cancelled. Cancellation
// yields DecisionRejectOnce.
func (c *Confirmation) Wait(ctx context.Context) Decision {
	select {
	case d := <-c.ch:
		return d
	case <-ctx.Done():
		return DecisionRejectOnce
	}
}
