package service_test

import (
	"context"
	"errors"
	"sync"
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

// 测试夹具：活动 9 的房间是 3，主办方是 42

type repairMock struct{ mock.Mock }

func (m *repairMock) EnqueueParticipationRemoval(ctx context.Context, eventID, userID uint) error {
	args := m.Called(ctx, eventID, userID)
	return args.Error(0)
}

type sessionFixture struct {
	roomRepo       *repomocks.RoomRepository
	membershipRepo *repomocks.MembershipRepository
	messageRepo    *repomocks.MessageRepository
	stateRepo      *repomocks.StateRepository
	events         *mocks.EventDirectory
	profiles       *mocks.ProfileDirectory
	participation  *mocks.Participation
	repair         *repairMock

	feed chan domain.Message
	sub  *repomocks.Subscription
}

func newSessionFixture() *sessionFixture {
	return &sessionFixture{
		roomRepo:       new(repomocks.RoomRepository),
		membershipRepo: new(repomocks.MembershipRepository),
		messageRepo:    new(repomocks.MessageRepository),
		stateRepo:      new(repomocks.StateRepository),
		events:         new(mocks.EventDirectory),
		profiles:       new(mocks.ProfileDirectory),
		participation:  new(mocks.Participation),
		repair:         new(repairMock),
	}
}

func (f *sessionFixture) deps() service.ChatSessionDeps {
	return service.ChatSessionDeps{
		Directory:     service.NewRoomDirectory(f.roomRepo, f.events),
		Members:       service.NewMembershipService(f.membershipRepo, f.roomRepo, f.profiles),
		Log:           service.NewMessageLog(f.messageRepo, f.stateRepo),
		Events:        f.events,
		Participation: f.participation,
		Repair:        f.repair,
	}
}

// expectOpen 设置一次成功 Open 所需的全部 Mock 预期。
// feedErr 非 nil 时订阅以传输错误终止（Err 返回该错误）。
func (f *sessionFixture) expectOpen(ctx context.Context, userID uint, feedErr error) {
	f.roomRepo.On("FindByEventID", ctx, uint(9)).
		Return(&domain.ChatRoom{ID: 3, EventID: 9}, nil)
	f.messageRepo.On("ListByRoom", ctx, uint(3), 0, 0).
		Return([]domain.Message{{RoomID: 3, Seq: 1, Content: "welcome"}}, nil)
	f.events.On("FindEvent", ctx, uint(9)).
		Return(&domain.Event{ID: 9, Title: "Board game night", HostID: 42}, nil)
	f.participation.On("Exists", ctx, uint(9), userID).Return(true, nil)
	f.membershipRepo.On("Add", ctx, mock.AnythingOfType("*domain.Membership")).Return(nil)

	f.feed = make(chan domain.Message)
	f.sub = new(repomocks.Subscription)
	feed := f.feed
	var once sync.Once
	f.sub.On("Messages").Return((<-chan domain.Message)(feed))
	f.sub.On("Err").Return(feedErr).Maybe()
	f.sub.On("Cancel").Run(func(mock.Arguments) {
		once.Do(func() { close(feed) })
	}).Return().Maybe()
	f.stateRepo.On("SubscribeRoom", ctx, uint(3)).Return(f.sub, nil)
}

func discardMessages(domain.Message) {}

// --- 测试 Open 方法 ---

func TestChatSession_Open_Success(t *testing.T) {
	// Arrange
	f := newSessionFixture()
	ctx := context.Background()
	f.expectOpen(ctx, 7, nil)
	session := service.NewChatSession(7, f.deps(), discardMessages, nil)

	// Act
	err := session.Open(ctx, 9)

	// Assert: 会话就绪，房间上下文和历史已就位
	require.NoError(t, err)
	assert.Equal(t, service.StateReady, session.State())
	room := session.Room()
	assert.Equal(t, uint(3), room.RoomID)
	assert.Equal(t, uint(9), room.EventID)
	assert.Equal(t, "Board game night", room.Title)
	assert.Equal(t, uint(42), room.HostID)
	history := session.History()
	require.Len(t, history, 1)
	assert.Equal(t, uint64(1), history[0].Seq)

	// 惰性镜像：已报名用户首次打开房间时补上成员记录
	f.membershipRepo.AssertCalled(t, "Add", ctx, mock.AnythingOfType("*domain.Membership"))

	session.Close()
}

func TestChatSession_Open_EventNotFound(t *testing.T) {
	// Arrange: 房间和活动都不存在
	f := newSessionFixture()
	ctx := context.Background()
	f.roomRepo.On("FindByEventID", ctx, uint(404)).
		Return(nil, repository.ErrRoomNotFound)
	f.events.On("FindEvent", ctx, uint(404)).
		Return(nil, repository.ErrEventNotFound)
	session := service.NewChatSession(7, f.deps(), discardMessages, nil)

	// Act
	err := session.Open(ctx, 404)

	// Assert: 回到 Idle，没有建立订阅
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrEventNotFound))
	assert.Equal(t, service.StateIdle, session.State())
	f.stateRepo.AssertNotCalled(t, "SubscribeRoom", mock.Anything, mock.Anything)
}

func TestChatSession_Open_LiveMessagesAppendToHistory(t *testing.T) {
	// Arrange
	f := newSessionFixture()
	ctx := context.Background()
	f.expectOpen(ctx, 7, nil)
	received := make(chan domain.Message, 4)
	session := service.NewChatSession(7, f.deps(), func(m domain.Message) { received <- m }, nil)
	require.NoError(t, session.Open(ctx, 9))

	// Act: 订阅投递一条实时消息
	live := domain.Message{RoomID: 3, Seq: 2, SenderID: 8, Content: "hi all"}
	f.feed <- live

	// Assert: 回调收到消息，历史缓存按全序追加
	select {
	case got := <-received:
		assert.Equal(t, uint64(2), got.Seq)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for live message delivery")
	}
	history := session.History()
	require.Len(t, history, 2)
	assert.Equal(t, uint64(1), history[0].Seq)
	assert.Equal(t, uint64(2), history[1].Seq)

	session.Close()
}

func TestChatSession_Open_OutOfOrderDeliveryRestoresSeqOrder(t *testing.T) {
	// Arrange: 并发追加时发布步骤可能乱序完成，订阅先收到
	// 序号大的那条。缓存必须恢复房间内全序，与历史读取一致。
	f := newSessionFixture()
	ctx := context.Background()
	f.expectOpen(ctx, 7, nil)
	received := make(chan domain.Message, 4)
	session := service.NewChatSession(7, f.deps(), func(m domain.Message) { received <- m }, nil)
	require.NoError(t, session.Open(ctx, 9))

	// Act: 序号 3 先到，序号 2 后到，序号 3 再被重复投递一次
	f.feed <- domain.Message{RoomID: 3, Seq: 3, SenderID: 8, Content: "late"}
	f.feed <- domain.Message{RoomID: 3, Seq: 2, SenderID: 9, Content: "early"}
	f.feed <- domain.Message{RoomID: 3, Seq: 3, SenderID: 8, Content: "late"}
	for i := 0; i < 3; i++ {
		select {
		case <-received:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for live message delivery")
		}
	}

	// Assert: 缓存按序号排列且无重复
	history := session.History()
	require.Len(t, history, 3)
	assert.Equal(t, uint64(1), history[0].Seq)
	assert.Equal(t, uint64(2), history[1].Seq)
	assert.Equal(t, uint64(3), history[2].Seq)

	session.Close()
}

func TestChatSession_Open_FeedDropReported(t *testing.T) {
	// Arrange: 订阅以传输错误终止，必须上报而不是悄悄停止
	f := newSessionFixture()
	ctx := context.Background()
	feedErr := errors.New("redis: connection reset")
	f.expectOpen(ctx, 7, feedErr)
	dropped := make(chan error, 1)
	session := service.NewChatSession(7, f.deps(), discardMessages, func(err error) { dropped <- err })
	require.NoError(t, session.Open(ctx, 9))

	// Act: 模拟传输断开（通道关闭且 Err 返回原因）
	close(f.feed)

	// Assert
	select {
	case err := <-dropped:
		assert.Equal(t, feedErr, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for drop notification")
	}
}

// --- 测试 Send 方法 ---

func TestChatSession_Send_RequiresActiveRoom(t *testing.T) {
	// Arrange: 未 Open 的会话
	f := newSessionFixture()
	session := service.NewChatSession(7, f.deps(), discardMessages, nil)

	// Act
	_, err := session.Send(context.Background(), "hello")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrSessionNotReady))
}

func TestChatSession_Send_AppendsToSelectedRoom(t *testing.T) {
	// Arrange
	f := newSessionFixture()
	ctx := context.Background()
	f.expectOpen(ctx, 7, nil)
	session := service.NewChatSession(7, f.deps(), discardMessages, nil)
	require.NoError(t, session.Open(ctx, 9))

	f.stateRepo.On("NextMessageSeq", ctx, uint(3)).Return(uint64(2), nil).Once()
	f.messageRepo.On("Save", ctx, mock.MatchedBy(func(msg *domain.Message) bool {
		return msg.RoomID == 3 && msg.SenderID == 7 && msg.Seq == 2
	})).Return(nil).Once()
	f.stateRepo.On("PublishMessage", ctx, uint(3), mock.AnythingOfType("domain.Message")).Return(nil).Once()

	// Act
	msg, err := session.Send(ctx, "hello")

	// Assert: 发送完成后回到 Ready
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, uint64(2), msg.Seq)
	assert.Equal(t, service.StateReady, session.State())

	session.Close()
}

func TestChatSession_Send_ConcurrentSendsQueueInsteadOfReject(t *testing.T) {
	// Arrange: 第一条消息卡在序号分配上，第二条并发到达。
	// 后到的发送必须排队等待，不能被当作状态错误拒绝。
	f := newSessionFixture()
	ctx := context.Background()
	f.expectOpen(ctx, 7, nil)
	session := service.NewChatSession(7, f.deps(), discardMessages, nil)
	require.NoError(t, session.Open(ctx, 9))

	gate := make(chan struct{})
	f.stateRepo.On("NextMessageSeq", ctx, uint(3)).
		Run(func(mock.Arguments) { <-gate }).Return(uint64(2), nil).Once()
	f.stateRepo.On("NextMessageSeq", ctx, uint(3)).Return(uint64(3), nil).Once()
	f.messageRepo.On("Save", ctx, mock.AnythingOfType("*domain.Message")).Return(nil).Twice()
	f.stateRepo.On("PublishMessage", ctx, uint(3), mock.AnythingOfType("domain.Message")).Return(nil).Twice()

	// Act: 两条消息并发发送
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := session.Send(ctx, "hello")
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond) // 让第一条进入在途状态
	close(gate)

	// Assert: 两条都成功落库
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for concurrent sends to finish")
		}
	}
	assert.Equal(t, service.StateReady, session.State())
	f.stateRepo.AssertExpectations(t)

	session.Close()
}

func TestChatSession_Send_EmptyContentRejected(t *testing.T) {
	// Arrange
	f := newSessionFixture()
	ctx := context.Background()
	f.expectOpen(ctx, 7, nil)
	session := service.NewChatSession(7, f.deps(), discardMessages, nil)
	require.NoError(t, session.Open(ctx, 9))

	// Act
	_, err := session.Send(ctx, "   \n ")

	// Assert: 拒绝不留部分状态，会话仍然可用
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrEmptyMessage))
	assert.Equal(t, service.StateReady, session.State())
	f.stateRepo.AssertNotCalled(t, "NextMessageSeq", mock.Anything, mock.Anything)

	session.Close()
}

// --- 测试 Leave 方法 ---

func TestChatSession_Leave_HostRejectedBeforeAnyMutation(t *testing.T) {
	// Arrange: 主办方自己的会话
	f := newSessionFixture()
	ctx := context.Background()
	f.expectOpen(ctx, 42, nil)
	session := service.NewChatSession(42, f.deps(), discardMessages, nil)
	require.NoError(t, session.Open(ctx, 9))

	// Act
	err := session.Leave(ctx)

	// Assert: 校验先于变更，两边记录都没动
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrHostCannotLeave))
	assert.Equal(t, service.StateReady, session.State())
	f.membershipRepo.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything, mock.Anything)
	f.participation.AssertNotCalled(t, "RemoveParticipant", mock.Anything, mock.Anything, mock.Anything)

	session.Close()
}

func TestChatSession_Leave_RemovesBothHalves(t *testing.T) {
	// Arrange
	f := newSessionFixture()
	ctx := context.Background()
	f.expectOpen(ctx, 7, nil)
	session := service.NewChatSession(7, f.deps(), discardMessages, nil)
	require.NoError(t, session.Open(ctx, 9))

	// 固定顺序：先成员记录，后参与记录
	f.membershipRepo.On("Remove", ctx, uint(3), uint(7)).Return(nil).Once()
	f.participation.On("RemoveParticipant", ctx, uint(9), uint(7)).Return(nil).Once()

	// Act
	err := session.Leave(ctx)

	// Assert: 房间取消选中，订阅已释放
	require.NoError(t, err)
	assert.Equal(t, service.StateIdle, session.State())
	assert.Empty(t, session.History())
	f.membershipRepo.AssertExpectations(t)
	f.participation.AssertExpectations(t)
	f.sub.AssertCalled(t, "Cancel")
}

func TestChatSession_Leave_PartialFailureReportsMissingHalf(t *testing.T) {
	// Arrange: 第二步（参与记录删除）失败
	f := newSessionFixture()
	ctx := context.Background()
	f.expectOpen(ctx, 7, nil)
	session := service.NewChatSession(7, f.deps(), discardMessages, nil)
	require.NoError(t, session.Open(ctx, 9))

	cause := errors.New("participation service unreachable")
	f.membershipRepo.On("Remove", ctx, uint(3), uint(7)).Return(nil).Once()
	f.participation.On("RemoveParticipant", ctx, uint(9), uint(7)).Return(cause).Once()
	f.repair.On("EnqueueParticipationRemoval", ctx, uint(9), uint(7)).Return(nil).Once()

	// Act
	err := session.Leave(ctx)

	// Assert: 错误指明缺失的那一半，补删任务已入队
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrPartialRemoval))
	var perr *service.PartialRemovalError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, service.MissingParticipation, perr.Missing)
	assert.Equal(t, uint(3), perr.RoomID)
	assert.Equal(t, uint(9), perr.EventID)
	assert.Equal(t, uint(7), perr.UserID)
	f.repair.AssertExpectations(t)

	// 成员记录已删：用户照样离开房间，缺口交给后台修复
	assert.Equal(t, service.StateIdle, session.State())
}

func TestChatSession_Leave_FirstStepFailureLeavesNothingChanged(t *testing.T) {
	// Arrange: 第一步失败，参与记录不能被触碰
	f := newSessionFixture()
	ctx := context.Background()
	f.expectOpen(ctx, 7, nil)
	session := service.NewChatSession(7, f.deps(), discardMessages, nil)
	require.NoError(t, session.Open(ctx, 9))

	f.membershipRepo.On("Remove", ctx, uint(3), uint(7)).
		Return(errors.New("driver: bad connection")).Once()

	// Act
	err := session.Leave(ctx)

	// Assert: 普通错误而非部分失败，会话保持可用
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrStorageUnavailable))
	assert.False(t, errors.Is(err, service.ErrPartialRemoval))
	assert.Equal(t, service.StateReady, session.State())
	f.participation.AssertNotCalled(t, "RemoveParticipant", mock.Anything, mock.Anything, mock.Anything)

	session.Close()
}

// --- 测试 Remove 方法 ---

func TestChatSession_Remove_OnlyHostMayRemove(t *testing.T) {
	// Arrange: 普通成员尝试移除他人
	f := newSessionFixture()
	ctx := context.Background()
	f.expectOpen(ctx, 7, nil)
	session := service.NewChatSession(7, f.deps(), discardMessages, nil)
	require.NoError(t, session.Open(ctx, 9))

	// Act
	err := session.Remove(ctx, 8)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrNotHost))
	f.membershipRepo.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything, mock.Anything)

	session.Close()
}

func TestChatSession_Remove_HostCannotRemoveSelf(t *testing.T) {
	// Arrange
	f := newSessionFixture()
	ctx := context.Background()
	f.expectOpen(ctx, 42, nil)
	session := service.NewChatSession(42, f.deps(), discardMessages, nil)
	require.NoError(t, session.Open(ctx, 9))

	// Act
	err := session.Remove(ctx, 42)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrTargetIsHost))

	session.Close()
}

func TestChatSession_Remove_HostRemovesMember(t *testing.T) {
	// Arrange: 主办方移除成员，自己的会话保持 Ready
	f := newSessionFixture()
	ctx := context.Background()
	f.expectOpen(ctx, 42, nil)
	session := service.NewChatSession(42, f.deps(), discardMessages, nil)
	require.NoError(t, session.Open(ctx, 9))

	f.membershipRepo.On("Remove", ctx, uint(3), uint(7)).Return(nil).Once()
	f.participation.On("RemoveParticipant", ctx, uint(9), uint(7)).Return(nil).Once()

	// Act
	err := session.Remove(ctx, 7)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, service.StateReady, session.State())
	f.membershipRepo.AssertExpectations(t)
	f.participation.AssertExpectations(t)

	session.Close()
}

// --- 测试 Close 方法 ---

func TestChatSession_Close_Idempotent(t *testing.T) {
	// Arrange
	f := newSessionFixture()
	ctx := context.Background()
	f.expectOpen(ctx, 7, nil)
	session := service.NewChatSession(7, f.deps(), discardMessages, nil)
	require.NoError(t, session.Open(ctx, 9))

	// Act: 重复关闭必须安全
	session.Close()
	session.Close()

	// Assert: 终态，订阅已取消，后续操作被拒绝
	assert.Equal(t, service.StateClosed, session.State())
	f.sub.AssertCalled(t, "Cancel")
	_, err := session.Send(ctx, "hello")
	assert.True(t, errors.Is(err, service.ErrSessionNotReady))
	err = session.Open(ctx, 9)
	assert.True(t, errors.Is(err, service.ErrSessionClosed))
}
