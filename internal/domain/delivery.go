package domain

import "time"

// Delivery records that an inbound provider message was already persisted,
// keyed by (channel, meta_msg_id). It backs the optional de-duplication hook
// and is only written when that hook is enabled; rows expire after ExpiresAt.
//
// Operator replies sent with an Idempotency-Key are stored in the same table
// under channel ReplyKeyScope, with the key in MetaMsgID.
type Delivery struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	Channel   string    `gorm:"type:varchar(16);not null;uniqueIndex:ux_delivery_channel_msg,priority:1"`
	MetaMsgID string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_delivery_channel_msg,priority:2"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// ReplyKeyScope is the Delivery channel used for operator reply keys.
const ReplyKeyScope = "reply"

// TableName implements the GORM tabler interface.
func (Delivery) TableName() string { return "deliveries" }
