package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"hobbyhive-chat/internal/collaborator"
	"hobbyhive-chat/internal/repository"
)

// RemovalService 在没有活跃会话的情况下执行退出/移除：REST 面
// 的 leave 和 kick 走这里。权限检查用的主办方信息即时查询，
// 两步删除与会话共用同一套编排 (performTwoStepRemoval)。
type RemovalService struct {
	roomRepo      repository.RoomRepository
	members       *MembershipService
	events        collaborator.EventDirectory
	participation collaborator.Participation
	repair        RemovalRepairEnqueuer
}

// NewRemovalService 创建 RemovalService 实例。
func NewRemovalService(
	roomRepo repository.RoomRepository,
	members *MembershipService,
	events collaborator.EventDirectory,
	participation collaborator.Participation,
	repair RemovalRepairEnqueuer,
) *RemovalService {
	if roomRepo == nil || members == nil || events == nil || participation == nil {
		panic("all dependencies must be non-nil for RemovalService")
	}
	return &RemovalService{
		roomRepo:      roomRepo,
		members:       members,
		events:        events,
		participation: participation,
		repair:        repair,
	}
}

// Leave 用户自己退出活动聊天。主办方不能退出自己的活动。
// 活动已被删除时没有主办方需要保护，退出照常执行——活动删除
// 后迟到的调用必须被优雅容忍。
func (s *RemovalService) Leave(ctx context.Context, roomID, userID uint) error {
	if userID == 0 {
		return ErrNotAuthenticated
	}

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to look up room for leave")
		return ErrStorageUnavailable
	}

	event, err := s.events.FindEvent(ctx, room.EventID)
	if err != nil && !errors.Is(err, repository.ErrEventNotFound) {
		logrus.WithField("event_id", room.EventID).WithError(err).Error("Failed to look up event for leave")
		return ErrStorageUnavailable
	}
	if event != nil && event.HostID == userID {
		return ErrHostCannotLeave
	}

	return performTwoStepRemoval(ctx, s.members, s.participation, s.repair, roomID, room.EventID, userID)
}

// Remove 主办方把成员移出活动聊天。仅主办方可调用；主办方
// 自己不能被移除。活动不存在时无法验证主办方身份，直接拒绝。
func (s *RemovalService) Remove(ctx context.Context, roomID, actorID, targetUserID uint) error {
	if actorID == 0 {
		return ErrNotAuthenticated
	}

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to look up room for remove")
		return ErrStorageUnavailable
	}

	event, err := s.events.FindEvent(ctx, room.EventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return ErrEventNotFound
		}
		logrus.WithField("event_id", room.EventID).WithError(err).Error("Failed to look up event for remove")
		return ErrStorageUnavailable
	}
	if event.HostID != actorID {
		return ErrNotHost
	}
	if targetUserID == event.HostID {
		return ErrTargetIsHost
	}

	return performTwoStepRemoval(ctx, s.members, s.participation, s.repair, roomID, room.EventID, targetUserID)
}

// performTwoStepRemoval 按固定顺序执行两步删除：先成员记录，
// 后参与记录。会话和 RemovalService 共用这一个实现。
//
// 第一步失败：在触碰参与记录之前中止，没有任何部分状态。
// 第二步失败：返回 PartialRemovalError 指明缺失的那一半，并把
// 参与删除排入后台定点重试；绝不回补已删除的成员记录。
func performTwoStepRemoval(
	ctx context.Context,
	members *MembershipService,
	participation collaborator.Participation,
	repair RemovalRepairEnqueuer,
	roomID, eventID, userID uint,
) error {
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": roomID, "event_id": eventID, "target_user_id": userID,
	})

	if err := members.RemoveMember(ctx, roomID, userID); err != nil {
		logCtx.WithError(err).Warn("Membership removal failed, participation untouched")
		return err
	}

	if err := participation.RemoveParticipant(ctx, eventID, userID); err != nil {
		perr := &PartialRemovalError{
			RoomID:  roomID,
			EventID: eventID,
			UserID:  userID,
			Missing: MissingParticipation,
			Cause:   err,
		}
		logCtx.WithError(err).Error("Participation removal failed after membership removal")
		if repair != nil {
			if qerr := repair.EnqueueParticipationRemoval(ctx, eventID, userID); qerr != nil {
				logCtx.WithError(qerr).Error("Failed to enqueue participation removal retry")
			} else {
				logCtx.Info("Participation removal retry enqueued")
			}
		}
		return perr
	}

	logCtx.Info("Member removed from chat and event participation")
	return nil
}
