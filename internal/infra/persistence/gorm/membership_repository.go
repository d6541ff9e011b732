package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"hobbyhive-chat/internal/domain"
	"hobbyhive-chat/internal/repository"
)

// GormMembershipRepository 是 MembershipRepository 接口的 GORM 实现
type GormMembershipRepository struct {
	db *gorm.DB
}

// NewGormMembershipRepository 创建 GormMembershipRepository 实例
func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMembershipRepository")
	}
	return &GormMembershipRepository{db: db}
}

// Add 实现插入成员记录。
// (room_id, user_id) 联合唯一索引冲突映射为 ErrDuplicateEntry，
// 由 Service 层决定视为幂等空操作；外键失败映射为 ErrForeignKey。
func (r *GormMembershipRepository) Add(ctx context.Context, m *domain.Membership) error {
	err := r.db.WithContext(ctx).Create(m).Error
	if err != nil {
		mapped := mapMySQLError(err)
		if errors.Is(mapped, repository.ErrDuplicateEntry) || errors.Is(mapped, repository.ErrForeignKey) {
			return mapped
		}
		return fmt.Errorf("gorm: add membership (room %d, user %d): %w", m.RoomID, m.UserID, err)
	}
	return nil
}

// Remove 实现删除成员记录。
// 没有命中任何行时返回 ErrNotFound，保证删除路径可以安全重试。
func (r *GormMembershipRepository) Remove(ctx context.Context, roomID, userID uint) error {
	result := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&domain.Membership{})
	if result.Error != nil {
		return fmt.Errorf("gorm: remove membership (room %d, user %d): %w", roomID, userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListByRoom 实现按加入时间升序列出房间成员
func (r *GormMembershipRepository) ListByRoom(ctx context.Context, roomID uint) ([]domain.Membership, error) {
	var members []domain.Membership
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at asc, id asc"). // id 做并列时的稳定次序
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list memberships for room %d: %w", roomID, err)
	}
	return members, nil
}

// Exists 实现检查成员记录是否存在
func (r *GormMembershipRepository) Exists(ctx context.Context, roomID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Membership{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count membership (room %d, user %d): %w", roomID, userID, err)
	}
	return count > 0, nil
}

// ListWithoutParticipation 实现定位参与记录已不存在的成员资格。
// 镜像方向只有参与 → 成员，所以这个方向的孤儿总是非法的，
// 可以由对账任务直接补删。
func (r *GormMembershipRepository) ListWithoutParticipation(ctx context.Context, limit int) ([]domain.OrphanMembership, error) {
	if limit <= 0 {
		limit = 100
	}
	var orphans []domain.OrphanMembership
	err := r.db.WithContext(ctx).Raw(`
		SELECT m.room_id AS room_id, r.event_id AS event_id, m.user_id AS user_id
		FROM memberships m
		JOIN chat_rooms r ON r.id = m.room_id
		LEFT JOIN event_participants p ON p.event_id = r.event_id AND p.user_id = m.user_id
		WHERE p.id IS NULL
		LIMIT ?`, limit).Scan(&orphans).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list memberships without participation: %w", err)
	}
	return orphans, nil
}
