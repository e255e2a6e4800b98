package webhook

import (
	"iter"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-helpdesk-webhook/internal/domain"
)

// MediaPlaceholder is stored as text for messages that carry only media.
const MediaPlaceholder = "[Multimedia]"

// Drop reasons reported to the DropFunc.
const (
	DropEcho             = "echo"
	DropMissingSource    = "missing_source"
	DropMissingText      = "missing_text"
	DropMissingCommentID = "missing_comment_id"
	DropUnsupported      = "unsupported_object"
	DropMalformed        = "malformed"
)

// DropFunc is told why an element of the payload produced no event.
type DropFunc func(reason string)

// Events returns the inbound events carried by p, in payload order: for each
// entry, its messaging items first, then its changes. Elements that cannot
// yield a valid event are skipped and reported to onDrop (which may be nil);
// an element that does not decode is reported as DropMalformed and never
// affects its siblings.
//
// The sequence is lazy; stopping the range stops decoding.
func Events(p *Payload, onDrop DropFunc) iter.Seq[domain.InboundEvent] {
	drop := func(reason string) {
		if onDrop != nil {
			onDrop(reason)
		}
	}
	return func(yield func(domain.InboundEvent) bool) {
		if p == nil {
			return
		}
		switch p.Object {
		case ObjectInstagram:
			for _, raw := range p.Entry {
				var e Entry
				if !decodeElement(raw, &e) {
					drop(DropMalformed)
					continue
				}
				for _, rawMsg := range e.Messaging {
					var m Messaging
					if !decodeElement(rawMsg, &m) {
						drop(DropMalformed)
						continue
					}
					ev, reason, ok := fromMessaging(m)
					if !ok {
						if reason != "" {
							drop(reason)
						}
						continue
					}
					if !yield(ev) {
						return
					}
				}
				for _, rawChange := range e.Changes {
					var ch Change
					if !decodeElement(rawChange, &ch) {
						drop(DropMalformed)
						continue
					}
					if ch.Field != FieldComments {
						continue
					}
					ev, reason := fromComment(ch.Value)
					if reason != "" {
						drop(reason)
						continue
					}
					if !yield(ev) {
						return
					}
				}
			}
		case ObjectWhatsApp:
			for _, raw := range p.Entry {
				var e Entry
				if !decodeElement(raw, &e) {
					drop(DropMalformed)
					continue
				}
				for _, rawChange := range e.Changes {
					var ch Change
					if !decodeElement(rawChange, &ch) {
						drop(DropMalformed)
						continue
					}
					for _, rawMsg := range ch.Value.Messages {
						var msg WAMessage
						if !decodeElement(rawMsg, &msg) {
							drop(DropMalformed)
							continue
						}
						ev, reason := fromWhatsApp(ch.Value.Contacts, msg)
						if reason != "" {
							drop(reason)
							continue
						}
						if !yield(ev) {
							return
						}
					}
				}
			}
		default:
			drop(DropUnsupported)
		}
	}
}

// fromMessaging maps an Instagram messaging item. Items without a message
// (reads, reactions, deliveries) are skipped without a drop reason.
func fromMessaging(m Messaging) (domain.InboundEvent, string, bool) {
	if m.Message == nil {
		return domain.InboundEvent{}, "", false
	}
	if m.Message.IsEcho {
		return domain.InboundEvent{}, DropEcho, false
	}
	text := m.Message.Text
	if blank(text) && len(m.Message.Attachments) > 0 {
		text = MediaPlaceholder
	}
	ev := domain.InboundEvent{
		SourceID:    strings.TrimSpace(m.Sender.ID),
		SourceType:  domain.ChannelInstagram,
		MessageType: domain.MessageTypeDM,
		Text:        cleanText(text),
		MetaMsgID:   m.Message.Mid,
	}
	if reason := validate(ev); reason != "" {
		return domain.InboundEvent{}, reason, false
	}
	return ev, "", true
}

func fromComment(v ChangeValue) (domain.InboundEvent, string) {
	ev := domain.InboundEvent{
		SourceType:  domain.ChannelInstagram,
		MessageType: domain.MessageTypeComment,
		Text:        cleanText(v.Text),
		MetaMsgID:   v.ID,
		CommentID:   strings.TrimSpace(v.ID),
	}
	if v.From != nil {
		ev.SourceID = strings.TrimSpace(v.From.ID)
		ev.Name = cleanName(v.From.Username)
	}
	if v.Media != nil {
		ev.PostID = v.Media.ID
	}
	return ev, validate(ev)
}

func fromWhatsApp(contacts []Contact, msg WAMessage) (domain.InboundEvent, string) {
	ev := domain.InboundEvent{
		SourceID:    strings.TrimSpace(msg.From),
		SourceType:  domain.ChannelWhatsApp,
		MessageType: domain.MessageTypeDM,
		Text:        cleanText(waText(msg)),
		MetaMsgID:   msg.ID,
	}
	if c, ok := pickContact(contacts, msg.From); ok {
		if id := strings.TrimSpace(c.WaID); id != "" {
			ev.SourceID = id
		}
		ev.Name = cleanName(c.Profile.Name)
	}
	return ev, validate(ev)
}

// pickContact prefers the contact whose wa_id matches the sender, then the
// first contact.
func pickContact(contacts []Contact, from string) (Contact, bool) {
	if len(contacts) == 0 {
		return Contact{}, false
	}
	for _, c := range contacts {
		if from != "" && c.WaID == from {
			return c, true
		}
	}
	return contacts[0], true
}

func waText(msg WAMessage) string {
	switch {
	case msg.Text != nil && !blank(msg.Text.Body):
		return msg.Text.Body
	case msg.Button != nil && !blank(msg.Button.Text):
		return msg.Button.Text
	case msg.Interactive != nil && msg.Interactive.ButtonReply != nil && !blank(msg.Interactive.ButtonReply.Title):
		return msg.Interactive.ButtonReply.Title
	case msg.Interactive != nil && msg.Interactive.ListReply != nil && !blank(msg.Interactive.ListReply.Title):
		return msg.Interactive.ListReply.Title
	case msg.Type != "" && msg.Type != "text":
		return MediaPlaceholder
	}
	return ""
}

func validate(ev domain.InboundEvent) string {
	switch {
	case ev.SourceID == "":
		return DropMissingSource
	case blank(ev.Text):
		return DropMissingText
	case ev.IsComment() && ev.CommentID == "":
		return DropMissingCommentID
	case !ev.Valid():
		return DropMissingText
	}
	return ""
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// cleanText composes the text to NFC without otherwise altering it.
func cleanText(s string) string {
	if blank(s) {
		return ""
	}
	return norm.NFC.String(s)
}

// cleanName trims and composes a display name; "" means unknown.
func cleanName(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
