package service

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"hobbyhive-chat/internal/collaborator"
	"hobbyhive-chat/internal/domain"
	"hobbyhive-chat/internal/repository"
)

// SessionState 表示会话状态机的状态。
// Idle → Resolving → Ready → (Sending | Leaving) → Ready，
// 终态 Closed。Leave 成功后回到 Idle（房间被取消选中）。
type SessionState int

const (
	StateIdle      SessionState = iota // 未选中房间
	StateResolving                     // 房间解析/历史/主办方查询在途
	StateReady                         // 实时订阅已激活，接受操作
	StateSending                       // 消息追加在途
	StateLeaving                       // 两步删除在途 (leave 或 remove)
	StateClosed                        // 终态
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateReady:
		return "ready"
	case StateSending:
		return "sending"
	case StateLeaving:
		return "leaving"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// RoomView 是 Resolving 阶段收集的房间上下文：房间 ID 加上
// 头部展示和权限检查所需的活动元数据。
type RoomView struct {
	RoomID   uint   `json:"room_id"`
	EventID  uint   `json:"event_id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
	HostID   uint   `json:"host_id"`
}

// RemovalRepairEnqueuer 把失败的参与记录删除排入后台重试。
// 两步删除的第二步失败时，会话用它定点补删缺失的那一半。
type RemovalRepairEnqueuer interface {
	EnqueueParticipationRemoval(ctx context.Context, eventID, userID uint) error
}

// ChatSession 是单个客户端对单个房间的有状态会话：解析或
// 创建房间、加载历史、维持实时订阅、接受发送和成员变更操作。
// 各房间会话相互独立，一个房间的慢调用不会阻塞其他房间。
//
// 并发模型：所有状态转换在内部互斥锁下完成；IO 在锁外执行。
// Send/Leave/Remove 在途时占据 Sending/Leaving，并发到达的
// 操作在条件变量上等待在途操作结束后继续，而不是被拒绝——
// 同一连接上连续两条消息不能因为第一条还没落库就报错。
type ChatSession struct {
	userID        uint
	directory     *RoomDirectory
	members       *MembershipService
	log           *MessageLog
	events        collaborator.EventDirectory
	participation collaborator.Participation
	repair        RemovalRepairEnqueuer

	// onMessage 在实时订阅投递每条消息时回调（追加顺序）。
	// onDrop 在订阅因传输断开而终止时回调一次；是否重连由
	// 上层决定，会话自身不做自动重连。
	onMessage func(domain.Message)
	onDrop    func(error)

	mu       sync.Mutex
	cond     *sync.Cond // 在 Sending/Leaving 结束时唤醒等待的操作
	state    SessionState
	room     RoomView
	history  []domain.Message
	sub      repository.Subscription
	pumpDone chan struct{}

	logger *logrus.Entry
}

// ChatSessionDeps 汇集会话的服务依赖。
type ChatSessionDeps struct {
	Directory     *RoomDirectory
	Members       *MembershipService
	Log           *MessageLog
	Events        collaborator.EventDirectory
	Participation collaborator.Participation
	Repair        RemovalRepairEnqueuer
}

// NewChatSession 创建一个处于 Idle 状态的会话。
// onMessage 不可为 nil；onDrop 可以为 nil（终止事件只记日志）。
func NewChatSession(userID uint, deps ChatSessionDeps, onMessage func(domain.Message), onDrop func(error)) *ChatSession {
	if deps.Directory == nil || deps.Members == nil || deps.Log == nil ||
		deps.Events == nil || deps.Participation == nil {
		panic("all service dependencies must be non-nil for ChatSession")
	}
	if onMessage == nil {
		panic("onMessage callback cannot be nil for ChatSession")
	}
	s := &ChatSession{
		userID:        userID,
		directory:     deps.Directory,
		members:       deps.Members,
		log:           deps.Log,
		events:        deps.Events,
		participation: deps.Participation,
		repair:        deps.Repair,
		onMessage:     onMessage,
		onDrop:        onDrop,
		state:         StateIdle,
		logger:        logrus.WithFields(logrus.Fields{"component": "chat_session", "user_id": userID}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// awaitReadyLocked 等待在途的 Send/Leave/Remove 结束。
// 返回 true 表示状态已是 Ready，调用方可以占据下一个操作；
// 返回 false 表示会话已不可用（Idle/Resolving/Closed）。
// 调用方持有 s.mu。
func (s *ChatSession) awaitReadyLocked() bool {
	for s.state == StateSending || s.state == StateLeaving {
		s.cond.Wait()
	}
	return s.state == StateReady
}

// State 返回当前状态。
func (s *ChatSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Room 返回当前选中房间的上下文。仅在 Ready 后有意义。
func (s *ChatSession) Room() RoomView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// History 返回已缓存的消息：初始历史加上实时追加的部分，
// 按房间内全序排列。返回副本，调用方可安全持有。
func (s *ChatSession) History() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Open 选中一个活动的聊天室并驱动 Resolving 阶段：
// 房间解析/创建（继而历史加载）与主办方查询并发进行，全部
// 完成后建立实时订阅并进入 Ready。任何一步失败回到 Idle 并
// 返回错误。
//
// 已处于 Ready 时切换房间：先取消旧房间的订阅再开始新的
// Resolving，保证不会有两个房间的订阅同时挂在同一个投递
// 回调上造成串流。
func (s *ChatSession) Open(ctx context.Context, eventID uint) error {
	if s.userID == 0 {
		return ErrNotAuthenticated
	}

	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return ErrSessionClosed
	case StateIdle:
		// 正常入口
	case StateReady:
		// 房间切换：先断开旧订阅并清空缓存
		s.detachLocked()
	default:
		// Resolving/Sending/Leaving 在途，调用方串行化使用会话
		s.mu.Unlock()
		return ErrSessionNotReady
	}
	s.state = StateResolving
	s.mu.Unlock()

	logCtx := s.logger.WithField("event_id", eventID)

	// 扇出：两条并发分支。历史加载依赖房间 ID，因此跟在房间
	// 解析之后同一分支内；主办方查询独立进行。全部结算后再
	// 决定进入 Ready 还是回 Idle (fan-out/fan-in，非流水线)。
	var (
		wg      sync.WaitGroup
		roomID  uint
		history []domain.Message
		event   *domain.Event
		roomErr error
		hostErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		roomID, roomErr = s.directory.ResolveOrCreateRoom(ctx, eventID)
		if roomErr != nil {
			return
		}
		history, roomErr = s.log.History(ctx, roomID, 0, 0)
	}()
	go func() {
		defer wg.Done()
		event, hostErr = s.events.FindEvent(ctx, eventID)
	}()
	wg.Wait()

	if roomErr != nil {
		s.failResolve(logCtx, roomErr)
		return roomErr
	}
	if hostErr != nil {
		err := ErrStorageUnavailable
		if errors.Is(hostErr, repository.ErrEventNotFound) {
			err = ErrEventNotFound
		}
		s.failResolve(logCtx, err)
		return err
	}

	// 参与记录的惰性镜像：已报名但首次打开房间的用户在这里
	// 补上成员记录。镜像失败不阻断会话——聊天的读取/订阅
	// 仍然可用，成员面板最终由对账修复。
	if ok, err := s.participation.Exists(ctx, eventID, s.userID); err != nil {
		logCtx.WithError(err).Warn("Failed to check participation for membership mirror")
	} else if ok {
		if err := s.members.AddMember(ctx, roomID, s.userID); err != nil {
			logCtx.WithError(err).Warn("Failed to mirror participation into room membership")
		}
	}

	sub, err := s.log.Subscribe(ctx, roomID)
	if err != nil {
		s.failResolve(logCtx, err)
		return err
	}

	s.mu.Lock()
	if s.state != StateResolving {
		// 并发 Close 赢了：释放刚建立的订阅
		s.mu.Unlock()
		sub.Cancel()
		return ErrSessionClosed
	}
	s.room = RoomView{
		RoomID:   roomID,
		EventID:  eventID,
		Title:    event.Title,
		ImageURL: event.ImageURL,
		HostID:   event.HostID,
	}
	s.history = history
	s.sub = sub
	s.pumpDone = make(chan struct{})
	s.state = StateReady
	done := s.pumpDone
	s.mu.Unlock()

	go s.pump(sub, done)

	logCtx.WithField("room_id", roomID).Info("Chat session ready")
	return nil
}

// failResolve 把 Resolving 失败回退到 Idle。
func (s *ChatSession) failResolve(logCtx *logrus.Entry, err error) {
	s.mu.Lock()
	if s.state == StateResolving {
		s.state = StateIdle
	}
	s.mu.Unlock()
	logCtx.WithError(err).Warn("Chat session resolve failed")
}

// pump 把订阅投递的消息并入缓存并回调 onMessage。
// 订阅终止后：主动取消静默退出；传输断开通过 onDrop 上报
// 一次，绝不悄悄停止。
func (s *ChatSession) pump(sub repository.Subscription, done chan struct{}) {
	defer close(done)
	for msg := range sub.Messages() {
		s.mu.Lock()
		if s.sub == sub {
			s.history = insertBySeq(s.history, msg)
		}
		s.mu.Unlock()
		s.onMessage(msg)
	}
	if err := sub.Err(); err != nil {
		s.logger.WithError(err).Warn("Live subscription terminated")
		if s.onDrop != nil {
			s.onDrop(err)
		}
	}
}

// Send 追加一条消息到当前房间。前一次发送还在途时等待其
// 落库后继续，同一连接的连发不会被拒绝。
// 成功的消息会经由实时订阅像其他消息一样回流 (onMessage)；
// 调用方不得把返回值当作权威展示来源额外插入，否则会和
// 订阅回声重复。
func (s *ChatSession) Send(ctx context.Context, content string) (*domain.Message, error) {
	if s.userID == 0 {
		return nil, ErrNotAuthenticated
	}

	s.mu.Lock()
	if !s.awaitReadyLocked() {
		s.mu.Unlock()
		return nil, ErrSessionNotReady
	}
	s.state = StateSending
	roomID := s.room.RoomID
	s.mu.Unlock()

	msg, err := s.log.Append(ctx, roomID, s.userID, content)

	s.mu.Lock()
	if s.state == StateSending {
		s.state = StateReady
	}
	s.cond.Broadcast()
	s.mu.Unlock()
	return msg, err
}

// Members 返回当前房间的成员面板数据。
func (s *ChatSession) Members(ctx context.Context) ([]domain.Member, error) {
	s.mu.Lock()
	if !s.awaitReadyLocked() {
		s.mu.Unlock()
		return nil, ErrSessionNotReady
	}
	roomID := s.room.RoomID
	s.mu.Unlock()
	return s.members.ListMembers(ctx, roomID)
}

// Leave 当前用户退出活动聊天：删除成员记录和参与记录。
// 主办方不能退出自己的活动 (ErrHostCannotLeave)，必须走
// 核心之外的活动取消路径。
//
// 成功后回到 Idle（房间取消选中）并清空该房间的缓存。
// 两步删除的部分失败见 removeBoth。
func (s *ChatSession) Leave(ctx context.Context) error {
	if s.userID == 0 {
		return ErrNotAuthenticated
	}

	s.mu.Lock()
	if !s.awaitReadyLocked() {
		s.mu.Unlock()
		return ErrSessionNotReady
	}
	// 校验先于任何变更
	if s.room.HostID == s.userID {
		s.mu.Unlock()
		return ErrHostCannotLeave
	}
	s.state = StateLeaving
	s.mu.Unlock()

	err := s.removeBoth(ctx, s.userID)

	s.mu.Lock()
	if s.state == StateLeaving {
		if err == nil || isPartialRemoval(err) {
			// 成员记录已删除：用户已经不在房间里，取消选中并
			// 清空缓存。部分失败照样离开，缺口由重试/对账补齐。
			s.detachLocked()
			s.state = StateIdle
		} else {
			// 第一步就失败，什么都没变，会话继续可用
			s.state = StateReady
		}
	}
	s.cond.Broadcast()
	s.mu.Unlock()
	return err
}

// Remove 主办方把成员移出活动聊天：同样的两步删除，作用于
// 目标用户。仅主办方可调用 (ErrNotHost)，且不能移除主办方
// 自己 (ErrTargetIsHost)。会话保持 Ready。
func (s *ChatSession) Remove(ctx context.Context, targetUserID uint) error {
	if s.userID == 0 {
		return ErrNotAuthenticated
	}

	s.mu.Lock()
	if !s.awaitReadyLocked() {
		s.mu.Unlock()
		return ErrSessionNotReady
	}
	if s.room.HostID != s.userID {
		s.mu.Unlock()
		return ErrNotHost
	}
	if targetUserID == s.room.HostID {
		s.mu.Unlock()
		return ErrTargetIsHost
	}
	s.state = StateLeaving
	s.mu.Unlock()

	err := s.removeBoth(ctx, targetUserID)

	s.mu.Lock()
	if s.state == StateLeaving {
		s.state = StateReady
	}
	s.cond.Broadcast()
	s.mu.Unlock()
	return err
}

// removeBoth 对当前房间执行两步删除，编排见 performTwoStepRemoval。
func (s *ChatSession) removeBoth(ctx context.Context, userID uint) error {
	s.mu.Lock()
	roomID := s.room.RoomID
	eventID := s.room.EventID
	s.mu.Unlock()

	return performTwoStepRemoval(ctx, s.members, s.participation, s.repair, roomID, eventID, userID)
}

// Close 关闭会话：取消活动订阅、清空缓存、进入终态。
// 幂等；关闭后所有操作返回 ErrSessionClosed/ErrSessionNotReady。
func (s *ChatSession) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.detachLocked()
	s.state = StateClosed
	s.cond.Broadcast()
	s.mu.Unlock()
	s.logger.Debug("Chat session closed")
}

// detachLocked 取消当前订阅并清空房间缓存。调用方持有 s.mu。
// 订阅必须显式取消，避免投递回调泄漏进已经离开的房间状态。
func (s *ChatSession) detachLocked() {
	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
	s.pumpDone = nil
	s.history = nil
	s.room = RoomView{}
}

func isPartialRemoval(err error) bool {
	_, ok := err.(*PartialRemovalError)
	return ok
}

// insertBySeq 按序号把实时消息并入缓存。并发追加时发布步骤
// 可能乱序到达，缓存必须始终维持房间内全序，与历史读取一致；
// 重复投递按序号去重。常规情况（按序到达）仍是 O(1) 追加。
func insertBySeq(history []domain.Message, msg domain.Message) []domain.Message {
	i := len(history)
	for i > 0 && history[i-1].Seq > msg.Seq {
		i--
	}
	if i > 0 && history[i-1].Seq == msg.Seq {
		return history
	}
	history = append(history, domain.Message{})
	copy(history[i+1:], history[i:])
	history[i] = msg
	return history
}
