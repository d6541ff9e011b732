package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"hobbyhive-chat/internal/domain"
	"hobbyhive-chat/internal/repository"
)

// GormRoomRepository 是 RoomRepository 接口的 GORM 实现
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository 创建 GormRoomRepository 实例
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

// FindByID 实现根据房间 ID 查找房间
func (r *GormRoomRepository) FindByID(ctx context.Context, id uint) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %d: %w", id, err)
	}
	return &room, nil
}

// FindByEventID 实现根据活动 ID 查找房间
func (r *GormRoomRepository) FindByEventID(ctx context.Context, eventID uint) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by event id %d: %w", eventID, err)
	}
	return &room, nil
}

// Create 实现为活动创建房间。
// event_id 唯一索引冲突映射为 ErrDuplicateEntry，调用方据此
// 重新读取并返回并发创建中胜出的那个房间。
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.ChatRoom) error {
	err := r.db.WithContext(ctx).Create(room).Error
	if err != nil {
		if mapped := mapMySQLError(err); errors.Is(mapped, repository.ErrDuplicateEntry) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create room for event %d: %w", room.EventID, err)
	}
	return nil
}
