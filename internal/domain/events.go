package domain

// InboundEvent is the canonical, channel-agnostic form of one inbound
// provider message or comment, produced by the webhook normalizer.
type InboundEvent struct {
	SourceID    string  // provider identity of the sender (wa_id or IG-scoped id)
	SourceType  Channel // channel the event arrived on
	MessageType string  // MessageTypeDM or MessageTypeComment
	Name        string  // display name, "" when unknown
	Text        string
	MetaMsgID   string // provider message or comment id
	CommentID   string // comment events only
	PostID      string // comment events only, optional
}

// IsComment reports whether the event follows the per-comment threading policy.
func (e InboundEvent) IsComment() bool { return e.MessageType == MessageTypeComment }

// Valid reports whether the event carries enough to be persisted: a known
// channel, a sender identity, text, and (for comments) a comment id.
func (e InboundEvent) Valid() bool {
	if !e.SourceType.Valid() || e.SourceID == "" || e.Text == "" {
		return false
	}
	switch e.MessageType {
	case MessageTypeDM:
		return true
	case MessageTypeComment:
		return e.CommentID != ""
	}
	return false
}
