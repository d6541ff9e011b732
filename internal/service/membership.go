package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"hobbyhive-chat/internal/collaborator"
	"hobbyhive-chat/internal/domain"
	"hobbyhive-chat/internal/repository"
)

// MembershipService 负责房间成员资格的业务逻辑。
// 它只保证自己这一侧（成员记录）的增删；与参与记录的联动
// 删除由 ChatSession 按两步顺序编排。
type MembershipService struct {
	membershipRepo repository.MembershipRepository
	roomRepo       repository.RoomRepository
	profiles       collaborator.ProfileDirectory
}

// NewMembershipService 创建 MembershipService 实例。
func NewMembershipService(
	membershipRepo repository.MembershipRepository,
	roomRepo repository.RoomRepository,
	profiles collaborator.ProfileDirectory,
) *MembershipService {
	if membershipRepo == nil || roomRepo == nil || profiles == nil {
		panic("all dependencies must be non-nil for MembershipService")
	}
	return &MembershipService{
		membershipRepo: membershipRepo,
		roomRepo:       roomRepo,
		profiles:       profiles,
	}
}

// AddMember 把用户加入房间。幂等：已是成员时是空操作而非错误。
// 房间不存在时返回 ErrRoomNotFound（依赖外键约束而非先查后插）。
func (s *MembershipService) AddMember(ctx context.Context, roomID, userID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	err := s.membershipRepo.Add(ctx, &domain.Membership{RoomID: roomID, UserID: userID})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.Debug("User already a member, add is a no-op")
			return nil
		}
		if errors.Is(err, repository.ErrForeignKey) {
			logCtx.Warn("Membership add against unknown room")
			return ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Failed to add membership")
		return ErrStorageUnavailable
	}
	logCtx.Info("Member added to room")
	return nil
}

// RemoveMember 删除房间成员记录。
// 记录本就不存在时视为成功——两步删除的重试路径会重复执行
// 第一步，删除必须幂等。
func (s *MembershipService) RemoveMember(ctx context.Context, roomID, userID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	err := s.membershipRepo.Remove(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logCtx.Debug("Membership already absent, remove is a no-op")
			return nil
		}
		logCtx.WithError(err).Error("Failed to remove membership")
		return ErrStorageUnavailable
	}
	logCtx.Info("Member removed from room")
	return nil
}

// ListMembers 返回房间成员，按加入时间排序，显示名通过 Profile
// 协作方批量解析。房间不存在时返回 ErrRoomNotFound。
func (s *MembershipService) ListMembers(ctx context.Context, roomID uint) ([]domain.Member, error) {
	logCtx := logrus.WithField("room_id", roomID)

	// 先验证房间，区分"空房间"和"不存在的房间"
	if _, err := s.roomRepo.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Failed to validate room for member list")
		return nil, ErrStorageUnavailable
	}

	rows, err := s.membershipRepo.ListByRoom(ctx, roomID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list memberships")
		return nil, ErrStorageUnavailable
	}

	userIDs := make([]uint, 0, len(rows))
	for _, m := range rows {
		userIDs = append(userIDs, m.UserID)
	}
	names, err := s.profiles.DisplayNames(ctx, userIDs)
	if err != nil {
		logCtx.WithError(err).Error("Failed to resolve member display names")
		return nil, ErrStorageUnavailable
	}

	members := make([]domain.Member, 0, len(rows))
	for _, m := range rows {
		name, ok := names[m.UserID]
		if !ok {
			// 没有资料记录的成员兜底显示
			name = fmt.Sprintf("user-%d", m.UserID)
		}
		members = append(members, domain.Member{
			UserID:      m.UserID,
			DisplayName: name,
			JoinedAt:    m.JoinedAt,
		})
	}
	return members, nil
}

// IsMember 检查用户是否是房间成员。
func (s *MembershipService) IsMember(ctx context.Context, roomID, userID uint) (bool, error) {
	ok, err := s.membershipRepo.Exists(ctx, roomID, userID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).
			WithError(err).Error("Failed to check membership")
		return false, ErrStorageUnavailable
	}
	return ok, nil
}
