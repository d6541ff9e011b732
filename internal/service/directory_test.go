package service_test // 测试包

import (
	"context"
	"errors"
	"testing"

	"hobbyhive-chat/internal/collaborator/mocks"
	"hobbyhive-chat/internal/domain"
	"hobbyhive-chat/internal/repository"
	repomocks "hobbyhive-chat/internal/repository/mocks"
	"hobbyhive-chat/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- 测试 ResolveOrCreateRoom 方法 ---

func TestRoomDirectory_Resolve_ExistingRoom(t *testing.T) {
	// Arrange: 房间已存在，直接返回，不触碰活动目录
	mockRoomRepo := new(repomocks.RoomRepository)
	mockEvents := new(mocks.EventDirectory)
	directory := service.NewRoomDirectory(mockRoomRepo, mockEvents)
	ctx := context.Background()

	mockRoomRepo.On("FindByEventID", ctx, uint(9)).
		Return(&domain.ChatRoom{ID: 3, EventID: 9}, nil).Once()

	// Act
	roomID, err := directory.ResolveOrCreateRoom(ctx, 9)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, uint(3), roomID)

	// Verify: 不应触发创建路径
	mockRoomRepo.AssertExpectations(t)
	mockRoomRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockEvents.AssertNotCalled(t, "FindEvent", mock.Anything, mock.Anything)
}

func TestRoomDirectory_Resolve_CreatesOnFirstAccess(t *testing.T) {
	// Arrange: 首次访问，房间不存在，活动存在
	mockRoomRepo := new(repomocks.RoomRepository)
	mockEvents := new(mocks.EventDirectory)
	directory := service.NewRoomDirectory(mockRoomRepo, mockEvents)
	ctx := context.Background()

	mockRoomRepo.On("FindByEventID", ctx, uint(9)).
		Return(nil, repository.ErrRoomNotFound).Once()
	mockEvents.On("FindEvent", ctx, uint(9)).
		Return(&domain.Event{ID: 9, Title: "Board game night", HostID: 42}, nil).Once()
	mockRoomRepo.On("Create", ctx, mock.MatchedBy(func(room *domain.ChatRoom) bool {
		return room.EventID == 9
	})).
		Run(func(args mock.Arguments) { // 模拟数据库分配主键
			args.Get(1).(*domain.ChatRoom).ID = 3
		}).
		Return(nil).Once()

	// Act
	roomID, err := directory.ResolveOrCreateRoom(ctx, 9)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, uint(3), roomID)
	mockRoomRepo.AssertExpectations(t)
	mockEvents.AssertExpectations(t)
}

func TestRoomDirectory_Resolve_LosesCreationRace(t *testing.T) {
	// Arrange: 并发创建落败，唯一约束冲突后重读胜出方的房间
	mockRoomRepo := new(repomocks.RoomRepository)
	mockEvents := new(mocks.EventDirectory)
	directory := service.NewRoomDirectory(mockRoomRepo, mockEvents)
	ctx := context.Background()

	mockRoomRepo.On("FindByEventID", ctx, uint(9)).
		Return(nil, repository.ErrRoomNotFound).Once()
	mockEvents.On("FindEvent", ctx, uint(9)).
		Return(&domain.Event{ID: 9, HostID: 42}, nil).Once()
	mockRoomRepo.On("Create", ctx, mock.AnythingOfType("*domain.ChatRoom")).
		Return(repository.ErrDuplicateEntry).Once()
	// 重读返回并发胜出方创建的房间
	mockRoomRepo.On("FindByEventID", ctx, uint(9)).
		Return(&domain.ChatRoom{ID: 7, EventID: 9}, nil).Once()

	// Act
	roomID, err := directory.ResolveOrCreateRoom(ctx, 9)

	// Assert: 落败方拿到的也是同一个房间
	assert.NoError(t, err)
	assert.Equal(t, uint(7), roomID)
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomDirectory_Resolve_EventNotFound(t *testing.T) {
	// Arrange: 活动不存在，不能为其创建房间
	mockRoomRepo := new(repomocks.RoomRepository)
	mockEvents := new(mocks.EventDirectory)
	directory := service.NewRoomDirectory(mockRoomRepo, mockEvents)
	ctx := context.Background()

	mockRoomRepo.On("FindByEventID", ctx, uint(404)).
		Return(nil, repository.ErrRoomNotFound).Once()
	mockEvents.On("FindEvent", ctx, uint(404)).
		Return(nil, repository.ErrEventNotFound).Once()

	// Act
	_, err := directory.ResolveOrCreateRoom(ctx, 404)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrEventNotFound), "错误类型应为 ErrEventNotFound")
	mockRoomRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRoomDirectory_Resolve_LookupFailure(t *testing.T) {
	// Arrange: 存储故障向上映射为 ErrStorageUnavailable
	mockRoomRepo := new(repomocks.RoomRepository)
	mockEvents := new(mocks.EventDirectory)
	directory := service.NewRoomDirectory(mockRoomRepo, mockEvents)
	ctx := context.Background()

	mockRoomRepo.On("FindByEventID", ctx, uint(9)).
		Return(nil, errors.New("connection refused")).Once()

	// Act
	_, err := directory.ResolveOrCreateRoom(ctx, 9)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrStorageUnavailable))
}
