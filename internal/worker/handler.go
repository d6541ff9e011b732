package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"hobbyhive-chat/internal/collaborator"
	"hobbyhive-chat/internal/repository"
	"hobbyhive-chat/internal/tasks"
)

// ParticipationRemovalHandler 处理定点补删参与记录的任务：
// 两步删除中失败的第二步在这里重试，直到缺口补齐。
type ParticipationRemovalHandler struct {
	participation collaborator.Participation
}

// NewParticipationRemovalHandler 创建 Handler 实例
func NewParticipationRemovalHandler(participation collaborator.Participation) *ParticipationRemovalHandler {
	return &ParticipationRemovalHandler{participation: participation}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *ParticipationRemovalHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.ParticipationRemovalPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal participation removal payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"task_type": t.Type(),
		"event_id":  payload.EventID,
		"user_id":   payload.UserID,
	})
	logCtx.Info("Retrying participation removal...")

	// RemoveParticipant 幂等：记录已被并发的重试删掉也算成功
	if err := h.participation.RemoveParticipant(ctx, payload.EventID, payload.UserID); err != nil {
		logCtx.WithError(err).Error("Participation removal retry failed")
		return fmt.Errorf("remove participant (event %d, user %d): %w", payload.EventID, payload.UserID, err)
	}

	logCtx.Info("Participation removal gap repaired")
	return nil
}

// MembershipReconcileHandler 处理周期性对账任务：扫描失去了
// 参与记录的成员资格并删除。只处理这一个方向——反方向
// （有参与、无成员）是惰性镜像的合法状态，不能盲目清理。
type MembershipReconcileHandler struct {
	membershipRepo repository.MembershipRepository
}

// NewMembershipReconcileHandler 创建 Handler 实例
func NewMembershipReconcileHandler(membershipRepo repository.MembershipRepository) *MembershipReconcileHandler {
	return &MembershipReconcileHandler{membershipRepo: membershipRepo}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *MembershipReconcileHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	const batchSize = 200
	orphans, err := h.membershipRepo.ListWithoutParticipation(ctx, batchSize)
	if err != nil {
		logCtx.WithError(err).Error("Failed to scan for orphaned memberships")
		return fmt.Errorf("list orphaned memberships: %w", err)
	}
	if len(orphans) == 0 {
		logCtx.Debug("Membership reconcile: nothing to repair")
		return nil
	}

	repaired := 0
	for _, o := range orphans {
		if err := h.membershipRepo.Remove(ctx, o.RoomID, o.UserID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			logCtx.WithFields(logrus.Fields{
				"room_id": o.RoomID, "user_id": o.UserID,
			}).WithError(err).Warn("Failed to remove orphaned membership, will retry next cycle")
			continue
		}
		repaired++
	}
	logCtx.WithFields(logrus.Fields{"found": len(orphans), "repaired": repaired}).
		Info("Membership reconcile cycle complete")
	return nil
}
