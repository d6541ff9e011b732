package worker_test

import (
	"context"
	"errors"
	"testing"

	"hobbyhive-chat/internal/collaborator/mocks"
	"hobbyhive-chat/internal/domain"
	"hobbyhive-chat/internal/repository"
	repomocks "hobbyhive-chat/internal/repository/mocks"
	"hobbyhive-chat/internal/tasks"
	"hobbyhive-chat/internal/worker"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- 测试 ParticipationRemovalHandler ---

func TestParticipationRemovalHandler_RepairsGap(t *testing.T) {
	// Arrange
	mockParticipation := new(mocks.Participation)
	handler := worker.NewParticipationRemovalHandler(mockParticipation)
	ctx := context.Background()

	payload, err := tasks.NewParticipationRemovalTask(9, 7)
	require.NoError(t, err)
	task := asynq.NewTask(tasks.TypeParticipationRemoval, payload)

	mockParticipation.On("RemoveParticipant", ctx, uint(9), uint(7)).Return(nil).Once()

	// Act
	err = handler.ProcessTask(ctx, task)

	// Assert
	assert.NoError(t, err)
	mockParticipation.AssertExpectations(t)
}

func TestParticipationRemovalHandler_BadPayloadSkipsRetry(t *testing.T) {
	// Arrange: 损坏的 payload 重试也没用，应跳过
	mockParticipation := new(mocks.Participation)
	handler := worker.NewParticipationRemovalHandler(mockParticipation)
	task := asynq.NewTask(tasks.TypeParticipationRemoval, []byte("{not json"))

	// Act
	err := handler.ProcessTask(context.Background(), task)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	mockParticipation.AssertNotCalled(t, "RemoveParticipant", mock.Anything, mock.Anything, mock.Anything)
}

func TestParticipationRemovalHandler_FailureRequeues(t *testing.T) {
	// Arrange: 删除仍然失败，返回错误让 asynq 继续重试
	mockParticipation := new(mocks.Participation)
	handler := worker.NewParticipationRemovalHandler(mockParticipation)
	ctx := context.Background()

	payload, _ := tasks.NewParticipationRemovalTask(9, 7)
	task := asynq.NewTask(tasks.TypeParticipationRemoval, payload)
	mockParticipation.On("RemoveParticipant", ctx, uint(9), uint(7)).
		Return(errors.New("participation service unreachable")).Once()

	// Act
	err := handler.ProcessTask(ctx, task)

	// Assert
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

// --- 测试 MembershipReconcileHandler ---

func TestMembershipReconcileHandler_RemovesOrphanedMemberships(t *testing.T) {
	// Arrange: 两条失去参与记录的成员资格，其中一条已被并发删除
	mockMembershipRepo := new(repomocks.MembershipRepository)
	handler := worker.NewMembershipReconcileHandler(mockMembershipRepo)
	ctx := context.Background()

	payload, _ := tasks.NewMembershipReconcileTask()
	task := asynq.NewTask(tasks.TypeMembershipReconcile, payload)

	mockMembershipRepo.On("ListWithoutParticipation", ctx, 200).
		Return([]domain.OrphanMembership{
			{RoomID: 3, EventID: 9, UserID: 7},
			{RoomID: 4, EventID: 10, UserID: 8},
		}, nil).Once()
	mockMembershipRepo.On("Remove", ctx, uint(3), uint(7)).Return(nil).Once()
	// 并发删除也算修复完成
	mockMembershipRepo.On("Remove", ctx, uint(4), uint(8)).Return(repository.ErrNotFound).Once()

	// Act
	err := handler.ProcessTask(ctx, task)

	// Assert
	assert.NoError(t, err)
	mockMembershipRepo.AssertExpectations(t)
}

func TestMembershipReconcileHandler_NothingToRepair(t *testing.T) {
	// Arrange
	mockMembershipRepo := new(repomocks.MembershipRepository)
	handler := worker.NewMembershipReconcileHandler(mockMembershipRepo)
	ctx := context.Background()

	payload, _ := tasks.NewMembershipReconcileTask()
	task := asynq.NewTask(tasks.TypeMembershipReconcile, payload)
	mockMembershipRepo.On("ListWithoutParticipation", ctx, 200).
		Return([]domain.OrphanMembership{}, nil).Once()

	// Act
	err := handler.ProcessTask(ctx, task)

	// Assert
	assert.NoError(t, err)
	mockMembershipRepo.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything, mock.Anything)
}

func TestMembershipReconcileHandler_ScanFailurePropagates(t *testing.T) {
	// Arrange
	mockMembershipRepo := new(repomocks.MembershipRepository)
	handler := worker.NewMembershipReconcileHandler(mockMembershipRepo)
	ctx := context.Background()

	payload, _ := tasks.NewMembershipReconcileTask()
	task := asynq.NewTask(tasks.TypeMembershipReconcile, payload)
	mockMembershipRepo.On("ListWithoutParticipation", ctx, 200).
		Return(nil, errors.New("driver: bad connection")).Once()

	// Act
	err := handler.ProcessTask(ctx, task)

	// Assert: 返回错误让 asynq 按退避重试
	require.Error(t, err)
}
