// Package collaborator 声明了聊天核心所消费的外部协作方契约。
// 活动 CRUD、账号/资料和报名流程都不属于本核心；核心只通过
// 这里的接口读取活动元数据、批量解析显示名，以及在 leave/remove
// 时删除参与记录。
package collaborator

import (
	"context"

	"hobbyhive-chat/internal/domain"
)

// EventDirectory 活动协作方：提供房间头部展示和主办方权限
// 检查所需的活动元数据 {title, imageRef, hostId}。
type EventDirectory interface {
	// FindEvent 根据活动 ID 返回活动元数据。
	// 活动不存在时返回 repository.ErrEventNotFound——活动被
	// 删除后仍可能有迟到的调用，核心必须优雅地容忍。
	FindEvent(ctx context.Context, eventID uint) (*domain.Event, error)
}

// ProfileDirectory 资料协作方：成员面板渲染时批量解析
// userId → displayName。
type ProfileDirectory interface {
	// DisplayNames 批量解析显示名。结果 map 中可能缺少
	// 没有资料记录的用户，由调用方决定兜底显示。
	DisplayNames(ctx context.Context, userIDs []uint) (map[uint]string, error)
}

// Participation 报名协作方：参与记录 (event, user) 的增删。
// 创建通常由外部的"报名活动"流程触发；本核心在 leave/remove
// 的两步删除中调用 RemoveParticipant 作为第二步。
type Participation interface {
	// AddParticipant 幂等地添加参与记录。
	AddParticipant(ctx context.Context, eventID, userID uint) error

	// RemoveParticipant 删除参与记录。记录不存在时不视为错误
	// （补删/重试路径依赖幂等性）。
	RemoveParticipant(ctx context.Context, eventID, userID uint) error

	// Exists 检查参与记录是否存在。
	Exists(ctx context.Context, eventID, userID uint) (bool, error)
}
