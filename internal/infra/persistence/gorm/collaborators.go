package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"hobbyhive-chat/internal/domain"
	"hobbyhive-chat/internal/repository"
)

// 协作方契约的 GORM 实现。托管后端把活动、资料和参与记录
// 与聊天数据放在同一个关系库里，因此协作方在这里直接落到
// 同一个连接上；聊天核心依然只通过 collaborator 包的接口
// 消费它们。

// GormEventDirectory 是 collaborator.EventDirectory 的 GORM 实现
type GormEventDirectory struct {
	db *gorm.DB
}

// NewGormEventDirectory 创建 GormEventDirectory 实例
func NewGormEventDirectory(db *gorm.DB) *GormEventDirectory {
	if db == nil {
		panic("database connection cannot be nil for GormEventDirectory")
	}
	return &GormEventDirectory{db: db}
}

// FindEvent 实现读取活动元数据
func (r *GormEventDirectory) FindEvent(ctx context.Context, eventID uint) (*domain.Event, error) {
	var event domain.Event
	err := r.db.WithContext(ctx).First(&event, eventID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrEventNotFound
		}
		return nil, fmt.Errorf("gorm: find event %d: %w", eventID, err)
	}
	return &event, nil
}

// GormProfileDirectory 是 collaborator.ProfileDirectory 的 GORM 实现
type GormProfileDirectory struct {
	db *gorm.DB
}

// NewGormProfileDirectory 创建 GormProfileDirectory 实例
func NewGormProfileDirectory(db *gorm.DB) *GormProfileDirectory {
	if db == nil {
		panic("database connection cannot be nil for GormProfileDirectory")
	}
	return &GormProfileDirectory{db: db}
}

// DisplayNames 实现批量解析显示名。
// 没有资料记录的用户不会出现在结果里，由调用方兜底。
func (r *GormProfileDirectory) DisplayNames(ctx context.Context, userIDs []uint) (map[uint]string, error) {
	names := make(map[uint]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil // 避免空的 IN 查询
	}
	var profiles []domain.Profile
	err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: resolve display names (%d users): %w", len(userIDs), err)
	}
	for _, p := range profiles {
		names[p.UserID] = p.DisplayName
	}
	return names, nil
}

// GormParticipation 是 collaborator.Participation 的 GORM 实现
type GormParticipation struct {
	db *gorm.DB
}

// NewGormParticipation 创建 GormParticipation 实例
func NewGormParticipation(db *gorm.DB) *GormParticipation {
	if db == nil {
		panic("database connection cannot be nil for GormParticipation")
	}
	return &GormParticipation{db: db}
}

// AddParticipant 实现幂等添加参与记录
func (r *GormParticipation) AddParticipant(ctx context.Context, eventID, userID uint) error {
	p := domain.Participant{EventID: eventID, UserID: userID}
	err := r.db.WithContext(ctx).Create(&p).Error
	if err != nil {
		if mapped := mapMySQLError(err); errors.Is(mapped, repository.ErrDuplicateEntry) {
			return nil // 已经是参与者，幂等
		}
		return fmt.Errorf("gorm: add participant (event %d, user %d): %w", eventID, userID, err)
	}
	return nil
}

// RemoveParticipant 实现删除参与记录。
// 记录不存在时直接成功，补删/重试路径依赖这一点。
func (r *GormParticipation) RemoveParticipant(ctx context.Context, eventID, userID uint) error {
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Delete(&domain.Participant{}).Error
	if err != nil {
		return fmt.Errorf("gorm: remove participant (event %d, user %d): %w", eventID, userID, err)
	}
	return nil
}

// Exists 实现检查参与记录是否存在
func (r *GormParticipation) Exists(ctx context.Context, eventID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Participant{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count participant (event %d, user %d): %w", eventID, userID, err)
	}
	return count > 0, nil
}
