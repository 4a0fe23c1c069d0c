package relay

import "fmt"

// Status is the delivery state of a stored record.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusLeased    Status = "LEASED"
	StatusDelivered Status = "DELIVERED"
	StatusDead      Status = "DEAD"
)

// ParseStatus converts a stored status string, rejecting unknown values.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown record status %q", raw)
	}
	return s, nil
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusLeased, StatusDelivered, StatusDead:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusDead
}

// CanTransitionTo reports whether next is a legal successor of s.
// LEASED -> LEASED is the takeover of an expired lease by another worker.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusLeased
	case StatusLeased:
		switch next {
		case StatusLeased, StatusPending, StatusDelivered, StatusDead:
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
