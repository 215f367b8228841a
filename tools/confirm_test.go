package tools

import (
	"context"
	"testing"
	"time"
)

func TestConfirmationFirstDecisionWins(t *testing.T) {
	c := NewConfirmation()
	c.Decide(DecisionApplyOnce)
	c.Decide(DecisionAlwaysDeny) // ignored
	c.Cancel()                   // ignored

	if got := c.Wait(context.Background()); got != DecisionApplyOnce {
		t.Errorf("got %v, want apply-once", got)
	}
}

func TestConfirmationCancelResolvesAsReject(t *testing.T) {
	c := NewConfirmation()
	go func() {
		time.Sleep(5 * time.Millisecond)
		c.Cancel()
	}()

	if got := c.Wait(context.Background()); got != DecisionRejectOnce {
		t.Errorf("got %v, want reject-once", got)
	}
}

func TestConfirmationContextCancellation(t *testing.T) {
	c := NewConfirmation()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := c.Wait(ctx); got != DecisionRejectOnce {
		t.Errorf("got %v, want reject-once on cancelled context", got)
	}
}
