package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"hobbyhive-chat/internal/domain"
	"hobbyhive-chat/internal/repository"
)

// GormMessageRepository 是 MessageRepository 接口的 GORM 实现
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository 创建 GormMessageRepository 实例
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

// Save 实现持久化一条消息
func (r *GormMessageRepository) Save(ctx context.Context, msg *domain.Message) error {
	err := r.db.WithContext(ctx).Create(msg).Error
	if err != nil {
		mapped := mapMySQLError(err)
		if errors.Is(mapped, repository.ErrDuplicateEntry) || errors.Is(mapped, repository.ErrForeignKey) {
			return mapped
		}
		return fmt.Errorf("gorm: save message (room %d, seq %d): %w", msg.RoomID, msg.Seq, err)
	}
	return nil
}

// ListByRoom 实现按序号升序读取房间历史消息。
// 追加型日志决定了这个读取是可重入的：对已创建的消息，
// 相同的参数总是返回相同的结果。
func (r *GormMessageRepository) ListByRoom(ctx context.Context, roomID uint, limit, offset int) ([]domain.Message, error) {
	var messages []domain.Message
	query := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("seq asc")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	err := query.Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list messages for room %d: %w", roomID, err)
	}
	return messages, nil
}

// CountByRoom 实现统计房间消息总数
func (r *GormMessageRepository) CountByRoom(ctx context.Context, roomID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count messages for room %d: %w", roomID, err)
	}
	return count, nil
}
