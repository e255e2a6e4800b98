// Package domain defines the persistence models for customers, conversations,
// and messages received from the Meta messaging channels. These types are
// mapped with GORM and form the core data layer of the helpdesk webhook.
package domain

import "time"

// Channel identifies the provider channel a customer or conversation came from.
type Channel string

const (
	ChannelInstagram Channel = "instagram"
	ChannelWhatsApp  Channel = "whatsapp"
)

// Valid reports whether c is a supported channel.
func (c Channel) Valid() bool {
	return c == ChannelInstagram || c == ChannelWhatsApp
}

// IdentityColumn returns the customers column holding this channel's
// identity, or "" for unsupported channels.
func (c Channel) IdentityColumn() string {
	switch c {
	case ChannelWhatsApp:
		return "wa_id"
	case ChannelInstagram:
		return "ig_id"
	}
	return ""
}

// Threading policies.
const (
	MessageTypeDM      = "dm"
	MessageTypeComment = "comment"
)

// Conversation statuses. Only StatusOpen is ever written here; other values
// are set by external moderation.
const (
	StatusOpen = "open"
)

// Message directions.
const (
	DirectionIncoming = "incoming"
)

// DefaultCustomerName is stored when the provider does not supply a display name.
const DefaultCustomerName = "Cliente Nuevo"

// Customer is the identity anchor of one end user on one channel.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Name: display name captured on first contact; never refreshed.
//   - WaID / IgID: exactly one is set, matching the channel of first contact.
//   - CreatedAt: server timestamp, set once.
//
// Lookups are by equality on WaID or IgID. The columns are indexed but not
// unique: concurrent first contacts may create duplicates.
type Customer struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null;default:'Cliente Nuevo'"`
	WaID      *string   `json:"wa_id"      gorm:"type:varchar(64);index:idx_customers_wa_id"`
	IgID      *string   `json:"ig_id"      gorm:"type:varchar(64);index:idx_customers_ig_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Customer.
func (Customer) TableName() string { return "customers" }

// Conversation is a thread between one customer and the operators, scoped to
// a channel and a threading policy (one per comment, or one open DM thread
// per customer).
type Conversation struct {
	ID              string    `json:"id"                gorm:"type:char(36);primaryKey"`
	CustomerID      string    `json:"customer_id"       gorm:"type:char(36);not null;index:idx_conv_customer_status,priority:1"`
	Status          string    `json:"status"            gorm:"type:varchar(32);not null;default:'open';index:idx_conv_customer_status,priority:2"`
	ChannelSource   Channel   `json:"channel_source"    gorm:"type:varchar(16);not null;check:channel_source IN ('instagram','whatsapp')"`
	MessageType     string    `json:"message_type"      gorm:"type:varchar(16);not null;check:message_type IN ('dm','comment')"`
	CommentID       *string   `json:"comment_id"        gorm:"type:varchar(128);index:idx_conv_comment"`
	PostID          *string   `json:"post_id,omitempty" gorm:"type:varchar(128)"`
	AssignedAgentID *string   `json:"assigned_agent_id" gorm:"type:varchar(64)"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"        gorm:"index"`

	// Customer owns the conversation; customers are never deleted.
	Customer Customer `json:"-" gorm:"foreignKey:CustomerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message is one append-only unit of communication within a conversation.
// MetaMsgID keeps the provider's message or comment id for audit; it is not
// a uniqueness key.
type Message struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string    `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1"`
	CustomerID     string    `json:"customer_id"     gorm:"type:char(36);not null;index"`
	Type           string    `json:"type"            gorm:"type:varchar(16);not null;check:type IN ('incoming','outgoing')"`
	Text           string    `json:"text"            gorm:"type:text"`
	Timestamp      time.Time `json:"timestamp"       gorm:"not null;index:idx_conv_msgs,priority:2"`
	MetaMsgID      string    `json:"meta_msg_id"     gorm:"type:varchar(255);index"`
	CommentID      *string   `json:"comment_id"      gorm:"type:varchar(128)"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
