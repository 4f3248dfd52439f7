package calendar

// ActionKind tags a destructive action waiting for confirmation.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionDeleteEvent
	ActionDeleteCategory
)

func (k ActionKind) String() string {
	switch k {
	case ActionDeleteEvent:
		return "delete-event"
	case ActionDeleteCategory:
		return "delete-category"
	default:
		return "none"
	}
}

// PendingAction names the action and its target. Only the field matching
// Kind is meaningful.
type PendingAction struct {
	Kind       ActionKind
	EventID    int64
	CategoryID string
}

// Confirmation is the two-step gate in front of destructive actions. It
// only stores the request; the owner decides what confirming means.
type Confirmation struct {
	message string
	action  PendingAction
}

// Request replaces any pending action with a new one.
func (c *Confirmation) Request(message string, action PendingAction) {
	c.message = message
	c.action = action
}

// Confirm clears the gate and hands back the pending action, if any.
func (c *Confirmation) Confirm() (PendingAction, bool) {
	action := c.action
	c.Cancel()
	return action, action.Kind != ActionNone
}

func (c *Confirmation) Cancel() {
	c.message = ""
	c.action = PendingAction{}
}

func (c *Confirmation) Visible() bool { return c.action.Kind != ActionNone }

func (c *Confirmation) Message() string { return c.message }

func (c *Confirmation) Pending() PendingAction { return c.action }
