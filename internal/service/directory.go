package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"hobbyhive-chat/internal/collaborator"
	"hobbyhive-chat/internal/domain"
	"hobbyhive-chat/internal/repository"
)

// RoomDirectory 维护活动到聊天房间的 1:1 映射，房间在首次
// 访问时惰性创建。
type RoomDirectory struct {
	roomRepo repository.RoomRepository
	events   collaborator.EventDirectory
}

// NewRoomDirectory 创建 RoomDirectory 实例。
func NewRoomDirectory(roomRepo repository.RoomRepository, events collaborator.EventDirectory) *RoomDirectory {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomDirectory")
	}
	if events == nil {
		panic("EventDirectory cannot be nil for RoomDirectory")
	}
	return &RoomDirectory{roomRepo: roomRepo, events: events}
}

// ResolveOrCreateRoom 返回活动对应的房间 ID，不存在则创建。
//
// 创建路径对同一活动是幂等的：不做 check-then-act，而是依赖
// event_id 上的唯一约束——并发创建时落败方收到唯一约束冲突，
// 重新读取并返回胜出方的房间。N 个并发调用最终得到同一个
// 房间 ID。
func (s *RoomDirectory) ResolveOrCreateRoom(ctx context.Context, eventID uint) (uint, error) {
	logCtx := logrus.WithField("event_id", eventID)

	// 1. 常规路径：房间已存在
	room, err := s.roomRepo.FindByEventID(ctx, eventID)
	if err == nil {
		return room.ID, nil
	}
	if !errors.Is(err, repository.ErrRoomNotFound) {
		logCtx.WithError(err).Error("Failed to look up room by event")
		return 0, ErrStorageUnavailable
	}

	// 2. 活动必须存在才能创建房间
	if _, err := s.events.FindEvent(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			logCtx.Warn("Room requested for nonexistent event")
			return 0, ErrEventNotFound
		}
		logCtx.WithError(err).Error("Failed to validate event before room creation")
		return 0, ErrStorageUnavailable
	}

	// 3. 创建；唯一约束冲突说明有并发创建者胜出，重读即可
	newRoom := &domain.ChatRoom{EventID: eventID}
	if err := s.roomRepo.Create(ctx, newRoom); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.Debug("Lost room creation race, re-reading existing room")
			existing, rerr := s.roomRepo.FindByEventID(ctx, eventID)
			if rerr != nil {
				logCtx.WithError(rerr).Error("Failed to re-read room after creation conflict")
				return 0, ErrStorageUnavailable
			}
			return existing.ID, nil
		}
		logCtx.WithError(err).Error("Failed to create room")
		return 0, ErrStorageUnavailable
	}

	logCtx.WithField("room_id", newRoom.ID).Info("Chat room created for event")
	return newRoom.ID, nil
}
