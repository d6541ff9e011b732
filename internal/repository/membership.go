package repository

import (
	"context"

	"hobbyhive-chat/internal/domain"
)

// MembershipRepository 定义了房间成员记录的存储操作。
type MembershipRepository interface {
	// Add 插入一条成员记录。(room_id, user_id) 已存在时返回
	// ErrDuplicateEntry（调用方视为幂等空操作）；room_id 指向
	// 不存在的房间时返回 ErrForeignKey。
	Add(ctx context.Context, m *domain.Membership) error

	// Remove 删除 (roomID, userID) 对应的成员记录。
	// 记录本就不存在时返回 ErrNotFound，由调用方决定是否忽略
	// （leave/remove 的重试路径依赖删除的幂等性）。
	Remove(ctx context.Context, roomID, userID uint) error

	// ListByRoom 按加入时间升序返回房间的全部成员记录。
	ListByRoom(ctx context.Context, roomID uint) ([]domain.Membership, error)

	// Exists 检查 (roomID, userID) 成员记录是否存在。
	Exists(ctx context.Context, roomID, userID uint) (bool, error)

	// ListWithoutParticipation 返回参与记录已经不存在的成员
	// 资格（非法状态，见 domain.OrphanMembership）。对账任务
	// 用它修复两步删除留下的不一致。
	ListWithoutParticipation(ctx context.Context, limit int) ([]domain.OrphanMembership, error)
}
