package repository

import (
	"context"

	"hobbyhive-chat/internal/domain"
)

// MessageRepository 定义了消息日志的持久化操作。
// 消息日志是追加型的：没有更新或删除单条消息的入口。
type MessageRepository interface {
	// Save 持久化一条已分配好序号的消息。
	// (room_id, seq) 唯一索引冲突返回 ErrDuplicateEntry，
	// room_id 指向不存在的房间返回 ErrForeignKey。
	Save(ctx context.Context, msg *domain.Message) error

	// ListByRoom 按序号升序（最旧在前）返回房间的历史消息。
	// limit <= 0 表示不分页、返回全部。历史读取是可重入的：
	// 对已存在的消息，重复调用总是返回相同的前缀。
	ListByRoom(ctx context.Context, roomID uint, limit, offset int) ([]domain.Message, error)

	// CountByRoom 返回房间内的消息总数（分页元信息用）。
	CountByRoom(ctx context.Context, roomID uint) (int64, error)
}
