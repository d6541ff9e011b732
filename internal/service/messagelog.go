package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"hobbyhive-chat/internal/domain"
	"hobbyhive-chat/internal/repository"
)

// MessageLog 负责房间消息日志：追加、历史读取和实时订阅。
// 日志是追加型的，单房间内由存储层分配的序号构成稳定全序；
// 跨房间没有任何顺序关系。
type MessageLog struct {
	messageRepo repository.MessageRepository
	stateRepo   repository.StateRepository
}

// NewMessageLog 创建 MessageLog 实例。
func NewMessageLog(messageRepo repository.MessageRepository, stateRepo repository.StateRepository) *MessageLog {
	if messageRepo == nil || stateRepo == nil {
		panic("all dependencies must be non-nil for MessageLog")
	}
	return &MessageLog{messageRepo: messageRepo, stateRepo: stateRepo}
}

// Append 追加一条消息并触发实时扇出。
//
// 去掉首尾空白后为空的内容在任何变更之前被拒绝
// (ErrEmptyMessage)。序号由 Redis INCR 分配，持久化成功后
// 发布到房间频道；发布失败只记日志不回滚——订阅者错过的
// 消息可以通过重读历史补齐 (at-least-once best-effort)。
func (s *MessageLog) Append(ctx context.Context, roomID, senderID uint, content string) (*domain.Message, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "sender_id": senderID})

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrEmptyMessage
	}

	seq, err := s.stateRepo.NextMessageSeq(ctx, roomID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to allocate message sequence")
		return nil, ErrStorageUnavailable
	}

	msg := &domain.Message{
		RoomID:   roomID,
		Seq:      seq,
		SenderID: senderID,
		Content:  trimmed,
	}
	if err := s.messageRepo.Save(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			logCtx.Warn("Message append against unknown room")
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Failed to persist message")
		return nil, ErrStorageUnavailable
	}

	if err := s.stateRepo.PublishMessage(ctx, roomID, *msg); err != nil {
		// 扇出失败不撤销已持久化的消息；在线订阅者会错过这一条，
		// 重读历史即可补齐
		logCtx.WithError(err).WithField("seq", msg.Seq).Error("Failed to publish appended message to feed")
	}

	logCtx.WithField("seq", msg.Seq).Debug("Message appended")
	return msg, nil
}

// History 按追加顺序（最旧在前）读取房间历史消息。
// limit <= 0 表示读取全部。
func (s *MessageLog) History(ctx context.Context, roomID uint, limit, offset int) ([]domain.Message, error) {
	messages, err := s.messageRepo.ListByRoom(ctx, roomID, limit, offset)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to load message history")
		return nil, ErrStorageUnavailable
	}
	return messages, nil
}

// Count 返回房间消息总数（分页元信息用）。
func (s *MessageLog) Count(ctx context.Context, roomID uint) (int64, error) {
	count, err := s.messageRepo.CountByRoom(ctx, roomID)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to count messages")
		return 0, ErrStorageUnavailable
	}
	return count, nil
}

// Subscribe 打开房间的实时消息订阅 (live tail)。
// 只投递订阅建立之后追加的消息；订阅因传输断开而终止时，
// Subscription.Err 返回终止原因，是否重连由调用方决定。
func (s *MessageLog) Subscribe(ctx context.Context, roomID uint) (repository.Subscription, error) {
	sub, err := s.stateRepo.SubscribeRoom(ctx, roomID)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to open feed subscription")
		return nil, ErrStorageUnavailable
	}
	return sub, nil
}
