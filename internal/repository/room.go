package repository

import (
	"context"

	"hobbyhive-chat/internal/domain"
)

// RoomRepository 定义了聊天房间的存储和检索操作。
type RoomRepository interface {
	// FindByID 根据房间 ID 查找房间。
	// 如果房间不存在，返回 ErrRoomNotFound。
	FindByID(ctx context.Context, id uint) (*domain.ChatRoom, error)

	// FindByEventID 根据活动 ID 查找房间。
	// 如果该活动还没有房间，返回 ErrRoomNotFound。
	FindByEventID(ctx context.Context, eventID uint) (*domain.ChatRoom, error)

	// Create 为活动创建房间。event_id 上的唯一索引保证
	// 并发创建时只有一个调用方成功；落败方会收到
	// ErrDuplicateEntry，应当重新读取并返回已存在的房间。
	Create(ctx context.Context, room *domain.ChatRoom) error
}
