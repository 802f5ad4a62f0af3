package model

import "fmt"

// TransitionPolicy decides which status changes the lifecycle allows.
type TransitionPolicy int

const (
	// PolicyPermissive allows every transition between known statuses.
	PolicyPermissive TransitionPolicy = iota
	// PolicyStrict makes stopped terminal, forbids returning to created and
	// forbids pausing a channel that was never started.
	PolicyStrict
)

// String returns the policy name.
func (p TransitionPolicy) String() string {
	switch p {
	case PolicyPermissive:
		return "permissive"
	case PolicyStrict:
		return "strict"
	}
	return fmt.Sprintf("TransitionPolicy(%d)", int(p))
}

// TransitionError reports a status change the policy rejected.
type TransitionError struct {
	From ChannelStatus
	To   ChannelStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// Check returns a *TransitionError if moving from one status to another is
// not allowed. Same-status transitions are always allowed.
func (p TransitionPolicy) Check(from, to ChannelStatus) error {
	if !to.IsValid() {
		return &TransitionError{From: from, To: to}
	}
	if from == to || p != PolicyStrict {
		return nil
	}
	switch {
	case from == StatusStopped,
		to == StatusCreated,
		from == StatusCreated && to == StatusPaused:
		return &TransitionError{From: from, To: to}
	}
	return nil
}
