package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"hobbyhive-chat/internal/dto"
	"hobbyhive-chat/internal/repository"
	"hobbyhive-chat/internal/service"

	"github.com/sirupsen/logrus"
)

// 包级别的 WebSocket 常量，供 hub 和 client 包内使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// 每个客户端帧处理的超时上限
	frameTimeout = 10 * time.Second

	// 单连接发送频率限制（帧/窗口）
	sendRateLimit  = 10
	sendRateWindow = time.Second
)

// HubMessage 定义了在 Hub 内部通道传递的消息类型
type HubMessage struct {
	Type    string  // "register", "unregister", "frame"
	Client  *Client // 事件关联的客户端
	RawData []byte  // 仅用于 frame (原始 WebSocket 消息)
}

// Hub 维护活跃客户端集合并把入站帧分发给各自的会话。
// 业务逻辑全部在 Client 持有的 ChatSession 里，Hub 只做连接管理。
type Hub struct {
	// 内部通道，处理所有来自 Client 的事件
	messageChan chan HubMessage

	// 客户端集合，按 RoomID 组织
	// map[roomID]map[*Client]bool
	rooms   map[uint]map[*Client]bool
	roomsMu sync.RWMutex

	// 发送帧的频率限制计数器（HTTP 面的限流在中间件，
	// WebSocket 帧不经过中间件，在这里单独限）
	state repository.StateRepository

	closeOnce sync.Once
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub(state repository.StateRepository) *Hub {
	if state == nil {
		panic("StateRepository cannot be nil for Hub")
	}
	return &Hub{
		// 带缓冲区的通道，大小可根据预期负载调整
		messageChan: make(chan HubMessage, 512),
		rooms:       make(map[uint]map[*Client]bool),
		state:       state,
	}
}

// Run 启动 Hub 的主事件处理循环。
// 它应该在一个单独的 goroutine 中运行。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.Type {
		case "register":
			h.registerClient(msg.Client)
		case "unregister":
			h.unregisterClient(msg.Client)
		case "frame":
			// 异步处理客户端帧，避免阻塞 Hub 主循环。同一连接
			// 的并发操作在会话内排队等待在途操作结束，连发不会
			// 被拒绝（见 ChatSession）
			go h.handleClientFrame(msg)
		default:
			log.Warnf("Hub: Received unknown message type: %s", msg.Type)
		}
	}
	log.Info("Hub is shutting down...")
}

// registerClient 处理客户端注册逻辑
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	roomID := client.RoomID()
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": roomID,
		"user_id": client.UserID(),
		"action":  "registerClient",
	})

	h.roomsMu.Lock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]bool)
		logCtx.Info("Client list created for new room")
	}
	h.rooms[roomID][client] = true
	h.roomsMu.Unlock()
	logCtx.Info("Client registered to Hub")
}

// unregisterClient 处理客户端注销逻辑
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	roomID := client.RoomID()
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": roomID,
		"user_id": client.UserID(),
		"action":  "unregisterClient",
	})

	h.roomsMu.Lock()
	if clients, ok := h.rooms[roomID]; ok {
		if _, registered := clients[client]; registered {
			delete(clients, client)
			client.Shutdown()
			if len(clients) == 0 {
				delete(h.rooms, roomID)
				logCtx.Info("Last client left, room entry removed")
			}
		}
	}
	h.roomsMu.Unlock()

	// 注销时关闭会话，释放 Redis 订阅
	client.session.Close()
	logCtx.Info("Client unregistered from Hub")
}

// handleClientFrame 解析入站帧并分发到客户端的会话
func (h *Hub) handleClientFrame(msg HubMessage) {
	client := msg.Client
	if client == nil {
		logrus.Error("Hub: Frame without client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": client.RoomID(),
		"user_id": client.UserID(),
	})

	var frame dto.IncomingFrame
	if err := json.Unmarshal(msg.RawData, &frame); err != nil {
		logCtx.WithError(err).Warn("Hub: Failed to parse client frame")
		client.sendError("bad_frame", "Invalid message format")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	switch frame.Type {
	case "send":
		key := fmt.Sprintf("ws:send:%d", client.UserID())
		if limited, err := h.state.CheckRateLimit(ctx, key, sendRateLimit, sendRateWindow); err != nil {
			// 限流器故障时放行，不因 Redis 抖动拒绝聊天
			logCtx.WithError(err).Warn("Hub: Send rate limit check failed, allowing frame")
		} else if limited {
			client.sendError("rate_limited", "Sending too fast, slow down")
			return
		}
		if _, err := client.session.Send(ctx, frame.Content); err != nil {
			client.sendServiceError(err)
		}
		// 成功的消息经由实时订阅回流给所有客户端，包括发送者

	case "members":
		members, err := client.session.Members(ctx)
		if err != nil {
			client.sendServiceError(err)
			return
		}
		client.sendFrame(dto.MembersFrame{Type: "members", Members: members})

	case "leave":
		err := client.session.Leave(ctx)
		if err != nil && !errors.Is(err, service.ErrPartialRemoval) {
			client.sendServiceError(err)
			return
		}
		// 部分失败时成员资格已删，对用户而言退出已生效；
		// 剩下的修复由后台任务完成。经写泵关闭，确认帧先于
		// 断开写出
		client.sendFrame(dto.LeftFrame{Type: "left"})
		client.Shutdown()

	case "remove":
		if err := client.session.Remove(ctx, frame.TargetUserID); err != nil && !errors.Is(err, service.ErrPartialRemoval) {
			client.sendServiceError(err)
			return
		}
		logCtx.WithField("target_user_id", frame.TargetUserID).Info("Member removed by host")

	default:
		logCtx.Warnf("Hub: Unknown frame type: %s", frame.Type)
		client.sendError("bad_frame", "Unknown message type")
	}
}

// StopAll 断开所有客户端连接并释放它们的会话，用于优雅停机。
// 事件通道保持打开：断开触发的 unregister 消息仍需要被消费，
// 主循环随进程退出。
func (h *Hub) StopAll() {
	h.closeOnce.Do(func() {
		h.roomsMu.Lock()
		for roomID, clients := range h.rooms {
			for client := range clients {
				client.session.Close()
				client.CloseConn()
			}
			delete(h.rooms, roomID)
		}
		h.roomsMu.Unlock()
		logrus.Info("Hub: All clients disconnected")
	})
}
