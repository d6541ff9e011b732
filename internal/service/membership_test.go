package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"hobbyhive-chat/internal/collaborator/mocks"
	"hobbyhive-chat/internal/domain"
	"hobbyhive-chat/internal/repository"
	repomocks "hobbyhive-chat/internal/repository/mocks"
	"hobbyhive-chat/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMembershipService() (*service.MembershipService, *repomocks.MembershipRepository, *repomocks.RoomRepository, *mocks.ProfileDirectory) {
	mockMembershipRepo := new(repomocks.MembershipRepository)
	mockRoomRepo := new(repomocks.RoomRepository)
	mockProfiles := new(mocks.ProfileDirectory)
	svc := service.NewMembershipService(mockMembershipRepo, mockRoomRepo, mockProfiles)
	return svc, mockMembershipRepo, mockRoomRepo, mockProfiles
}

// --- 测试 AddMember 方法 ---

func TestMembershipService_AddMember_Success(t *testing.T) {
	// Arrange
	svc, mockMembershipRepo, _, _ := newMembershipService()
	ctx := context.Background()

	mockMembershipRepo.On("Add", ctx, mock.MatchedBy(func(m *domain.Membership) bool {
		return m.RoomID == 3 && m.UserID == 7
	})).Return(nil).Once()

	// Act
	err := svc.AddMember(ctx, 3, 7)

	// Assert
	assert.NoError(t, err)
	mockMembershipRepo.AssertExpectations(t)
}

func TestMembershipService_AddMember_AlreadyMember_NoOp(t *testing.T) {
	// Arrange: 重复加入是幂等空操作，不是错误
	svc, mockMembershipRepo, _, _ := newMembershipService()
	ctx := context.Background()

	mockMembershipRepo.On("Add", ctx, mock.AnythingOfType("*domain.Membership")).
		Return(repository.ErrDuplicateEntry).Once()

	// Act
	err := svc.AddMember(ctx, 3, 7)

	// Assert
	assert.NoError(t, err, "重复加入应为空操作")
	mockMembershipRepo.AssertExpectations(t)
}

func TestMembershipService_AddMember_UnknownRoom(t *testing.T) {
	// Arrange: 外键约束把未知房间的插入拒绝掉
	svc, mockMembershipRepo, _, _ := newMembershipService()
	ctx := context.Background()

	mockMembershipRepo.On("Add", ctx, mock.AnythingOfType("*domain.Membership")).
		Return(repository.ErrForeignKey).Once()

	// Act
	err := svc.AddMember(ctx, 999, 7)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRoomNotFound))
}

// --- 测试 RemoveMember 方法 ---

func TestMembershipService_RemoveMember_AbsentRow_NoOp(t *testing.T) {
	// Arrange: 删除必须幂等，记录不存在视为成功
	svc, mockMembershipRepo, _, _ := newMembershipService()
	ctx := context.Background()

	mockMembershipRepo.On("Remove", ctx, uint(3), uint(7)).
		Return(repository.ErrNotFound).Once()

	// Act
	err := svc.RemoveMember(ctx, 3, 7)

	// Assert
	assert.NoError(t, err, "删除不存在的记录应视为成功")
	mockMembershipRepo.AssertExpectations(t)
}

// --- 测试 ListMembers 方法 ---

func TestMembershipService_ListMembers_ResolvesDisplayNames(t *testing.T) {
	// Arrange: 两个成员，一个有资料记录，一个走兜底显示名
	svc, mockMembershipRepo, mockRoomRepo, mockProfiles := newMembershipService()
	ctx := context.Background()
	joined := time.Now().Add(-time.Hour)

	mockRoomRepo.On("FindByID", ctx, uint(3)).
		Return(&domain.ChatRoom{ID: 3, EventID: 9}, nil).Once()
	mockMembershipRepo.On("ListByRoom", ctx, uint(3)).
		Return([]domain.Membership{
			{RoomID: 3, UserID: 7, JoinedAt: joined},
			{RoomID: 3, UserID: 8, JoinedAt: joined.Add(time.Minute)},
		}, nil).Once()
	mockProfiles.On("DisplayNames", ctx, []uint{7, 8}).
		Return(map[uint]string{7: "Ada"}, nil).Once()

	// Act
	members, err := svc.ListMembers(ctx, 3)

	// Assert: 顺序保持加入时间序，缺资料的成员有兜底名
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, uint(7), members[0].UserID)
	assert.Equal(t, "Ada", members[0].DisplayName)
	assert.Equal(t, uint(8), members[1].UserID)
	assert.Equal(t, "user-8", members[1].DisplayName)
	mockProfiles.AssertExpectations(t)
}

func TestMembershipService_ListMembers_RoomNotFound(t *testing.T) {
	// Arrange: 区分"空房间"和"不存在的房间"
	svc, mockMembershipRepo, mockRoomRepo, _ := newMembershipService()
	ctx := context.Background()

	mockRoomRepo.On("FindByID", ctx, uint(404)).
		Return(nil, repository.ErrRoomNotFound).Once()

	// Act
	_, err := svc.ListMembers(ctx, 404)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRoomNotFound))
	mockMembershipRepo.AssertNotCalled(t, "ListByRoom", mock.Anything, mock.Anything)
}
