package service

import (
	"errors"
	"fmt"
)

// 聊天核心的业务错误。校验类错误（ErrEmptyMessage、
// ErrHostCannotLeave、ErrNotHost、ErrTargetIsHost）在任何
// 变更发生之前同步返回——失败时不留下部分状态。
var (
	ErrNotAuthenticated = errors.New("caller is not authenticated")
	ErrEventNotFound    = errors.New("event not found")
	ErrRoomNotFound     = errors.New("chat room not found")
	ErrHostCannotLeave  = errors.New("host cannot leave own event chat")
	ErrNotHost          = errors.New("only the event host may remove members")
	ErrTargetIsHost     = errors.New("cannot remove the event host")
	ErrEmptyMessage     = errors.New("message content is empty")
	ErrSessionClosed    = errors.New("chat session is closed")
	ErrSessionNotReady  = errors.New("chat session has no active room")
	// ErrStorageUnavailable 表示存储/传输层失败。核心自身不做
	// 自动重试，由调用方展示并决定是否重试。
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ErrPartialRemoval 是部分删除不一致的哨兵，供 errors.Is 判断；
// 具体信息在 PartialRemovalError 里。
var ErrPartialRemoval = errors.New("partial removal inconsistency")

// MissingHalf 标记两步删除中失败的那一半。
type MissingHalf string

const (
	// MissingParticipation 成员记录已删除，参与记录删除失败。
	MissingParticipation MissingHalf = "participation"
	// MissingMembership 参与记录已删除，成员记录删除失败
	// （对账修复方向，正常的 leave/remove 不会产生）。
	MissingMembership MissingHalf = "membership"
)

// PartialRemovalError 报告 leave/remove 两步删除的部分失败：
// 指明具体缺失的那一半，使重试或人工对账可以精确定位缺口。
// 核心绝不回滚已成功的一半（不做补偿性重建），因为那会与
// 并发的合法重新报名竞争。
type PartialRemovalError struct {
	RoomID  uint
	EventID uint
	UserID  uint
	Missing MissingHalf
	Cause   error
}

func (e *PartialRemovalError) Error() string {
	return fmt.Sprintf("partial removal: %s removal failed for user %d (room %d, event %d): %v",
		e.Missing, e.UserID, e.RoomID, e.EventID, e.Cause)
}

func (e *PartialRemovalError) Unwrap() error { return e.Cause }

// Is 使 errors.Is(err, ErrPartialRemoval) 成立
func (e *PartialRemovalError) Is(target error) bool { return target == ErrPartialRemoval }
