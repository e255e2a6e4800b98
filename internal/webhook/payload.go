// Package webhook decodes Meta webhook deliveries (Instagram and WhatsApp
// Business) and normalizes them into domain.InboundEvent values.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Top-level object values sent by the provider.
const (
	ObjectInstagram = "instagram"
	ObjectWhatsApp  = "whatsapp_business_account"
)

// FieldComments is the change field carrying Instagram comments.
const FieldComments = "comments"

// ErrEmptyBody is returned by Parse for a zero-length body.
var ErrEmptyBody = errors.New("empty webhook body")

// Payload is the envelope posted to the webhook endpoint. Entries stay raw
// until Events decodes them one by one, so a malformed entry only costs its
// own events.
type Payload struct {
	Object string            `json:"object"`
	Entry  []json.RawMessage `json:"entry"`
}

// Entry is one element of Payload.Entry. Instagram DMs arrive under
// Messaging; comments and WhatsApp messages arrive under Changes. Both are
// decoded per element.
type Entry struct {
	Messaging []json.RawMessage `json:"messaging"`
	Changes   []json.RawMessage `json:"changes"`
}

// Party is a sender reference.
type Party struct {
	ID string `json:"id"`
}

// Messaging is an Instagram messaging event.
type Messaging struct {
	Sender  Party          `json:"sender"`
	Message *DirectMessage `json:"message"`
}

// DirectMessage is the message body of an Instagram messaging event. Only
// the presence of attachments matters, so they are not decoded further.
type DirectMessage struct {
	Mid         string            `json:"mid"`
	Text        string            `json:"text"`
	IsEcho      bool              `json:"is_echo"`
	Attachments []json.RawMessage `json:"attachments"`
}

// Change is one element of Entry.Changes.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue holds the fields of both change shapes this service reads:
// Instagram comments (ID, Text, From, Media) and WhatsApp messages
// (Contacts, Messages). Unused fields stay zero. WhatsApp messages are
// decoded per element.
type ChangeValue struct {
	// Instagram comment
	ID    string         `json:"id"`
	Text  string         `json:"text"`
	From  *CommentAuthor `json:"from"`
	Media *Media         `json:"media"`

	// WhatsApp
	Contacts []Contact         `json:"contacts"`
	Messages []json.RawMessage `json:"messages"`
}

// CommentAuthor identifies the author of an Instagram comment.
type CommentAuthor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Media references the post a comment belongs to.
type Media struct {
	ID string `json:"id"`
}

// Contact is a WhatsApp contact block.
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// WAMessage is a WhatsApp inbound message.
type WAMessage struct {
	ID   string `json:"id"`
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Button *struct {
		Text string `json:"text"`
	} `json:"button"`
	Interactive *struct {
		ButtonReply *struct {
			Title string `json:"title"`
		} `json:"button_reply"`
		ListReply *struct {
			Title string `json:"title"`
		} `json:"list_reply"`
	} `json:"interactive"`
}

// Parse decodes the envelope of a raw webhook body. It fails only when the
// body is not JSON or the envelope itself has the wrong shape; entry
// contents are checked later, per element, by Events.
func Parse(body []byte) (*Payload, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	return &p, nil
}

// decodeElement decodes one raw payload element into v, reporting success.
func decodeElement(raw json.RawMessage, v any) bool {
	return json.Unmarshal(raw, v) == nil
}
