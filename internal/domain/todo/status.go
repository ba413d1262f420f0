package todo

// Status is the workflow state of a todo.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists every status in workflow order.
func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusDone}
}

// IsValid reports whether s is one of Statuses.
func (s Status) IsValid() bool {
	return isOneOf(s, Statuses())
}

// IsTerminal reports whether no further work is expected.
func (s Status) IsTerminal() bool {
	return s == StatusDone
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}
