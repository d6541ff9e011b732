package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"hobbyhive-chat/internal/dto"
	"hobbyhive-chat/internal/service"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client 代表一个连接到 Hub 的 WebSocket 客户端。
// 每个客户端持有自己的 ChatSession，订阅与状态随连接走。
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	session *service.ChatSession
	roomID  uint        // 会话就绪后的房间 ID
	userID  uint        // 客户端的用户 ID
	send    chan []byte // 用于向此客户端发送消息的缓冲通道

	// 守护 send 的关闭：订阅泵可能在 Shutdown 之后还回调
	// 一次投递，不能往已关闭的通道写
	sendMu     sync.RWMutex
	sendClosed bool
}

// NewClient 创建一个新的 Client 实例。
// session 必须已经 Open 成功（Ready 状态），roomID 取自会话的房间视图。
func NewClient(hub *Hub, conn *websocket.Conn, session *service.ChatSession, userID uint) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		session: session,
		roomID:  session.Room().RoomID,
		userID:  userID,
		send:    make(chan []byte, 256),
	}
}

// Run 把客户端注册到 Hub 并启动读写 goroutine
func (c *Client) Run() {
	c.hub.messageChan <- HubMessage{Type: "register", Client: c}
	go c.WritePump()
	go c.ReadPump()
}

// SendFrame 序列化一个出站帧并排队发送。
// 缓冲满时丢弃（慢客户端不能拖垮整个房间的投递）。
func (c *Client) sendFrame(frame interface{}) {
	data, err := json.Marshal(frame)
	if err != nil {
		logrus.WithError(err).Error("Client: Failed to marshal outgoing frame")
		return
	}
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.sendClosed {
		return
	}
	select {
	case c.send <- data:
	default:
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).
			Warn("Client send buffer full, dropping frame")
	}
}

// SendFrame 供 handler 在注册前发送初始帧（房间头部与历史）
func (c *Client) SendFrame(frame interface{}) { c.sendFrame(frame) }

func (c *Client) sendError(code, message string) {
	c.sendFrame(dto.ErrorFrame{Type: "error", Code: code, Message: message})
}

// sendServiceError 把业务错误翻译成客户端可识别的错误帧
func (c *Client) sendServiceError(err error) {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		c.sendError("empty_message", "Message content cannot be empty")
	case errors.Is(err, service.ErrHostCannotLeave):
		c.sendError("host_cannot_leave", "The event host cannot leave the chat room")
	case errors.Is(err, service.ErrNotHost):
		c.sendError("not_host", "Only the event host can remove members")
	case errors.Is(err, service.ErrTargetIsHost):
		c.sendError("target_is_host", "The event host cannot be removed")
	case errors.Is(err, service.ErrSessionClosed), errors.Is(err, service.ErrSessionNotReady):
		c.sendError("session_not_ready", "Chat session is not ready")
	case errors.Is(err, service.ErrStorageUnavailable):
		c.sendError("storage_unavailable", "Chat service is temporarily unavailable")
	default:
		logrus.WithError(err).WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).
			Error("Client: Unexpected service error")
		c.sendError("internal", "Internal server error")
	}
}

// ReadPump 将消息从 WebSocket 连接泵送到 Hub 的 messageChan。
// 它在自己的 goroutine 中运行。
func (c *Client) ReadPump() {
	defer func() {
		// 清理操作：请求 Hub 注销此客户端
		select {
		case c.hub.messageChan <- HubMessage{Type: "unregister", Client: c}:
		case <-time.After(1 * time.Second):
			logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).
				Warn("Timeout sending unregister message to Hub channel")
			// Hub 可能已停止，自己兜底关掉会话
			c.session.Close()
		}
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait)) // 收到 Pong 后重置读取超时
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed normally or read error")
			}
			break // 退出循环，触发 defer 中的注销
		}

		// 只处理文本帧
		if messageType != websocket.TextMessage {
			logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).
				Debugf("Received non-text message type: %d", messageType)
			continue
		}

		// 非阻塞发送到 Hub，如果 Hub 处理不过来则丢弃
		select {
		case c.hub.messageChan <- HubMessage{Type: "frame", Client: c, RawData: message}:
		default:
			// 这种情况通常表示系统负载过高或 Hub 处理逻辑有阻塞
			logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).
				Warn("Hub message channel full, dropping client message")
			c.sendError("overloaded", "Server is busy, please retry")
		}
	}
}

// WritePump 将消息从 Client 的 send 通道泵送到 WebSocket 连接。
// 它在自己的 goroutine 中运行。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).Info("writePump exited")
		// 不需要在这里 unregister，readPump 退出会处理
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Shutdown 关闭了 send 通道（注销或主动断开），
				// 缓冲里的帧已全部排空
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).
					WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			// 定期发送 Ping 保持连接活跃并检测断开
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).
					WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}

func (c *Client) RoomID() uint { return c.roomID }
func (c *Client) UserID() uint { return c.userID }
func (c *Client) CloseConn()   { c.conn.Close() }

// Shutdown 经写泵关闭连接：send 缓冲里已入队的帧先写出，
// 然后发送 Close 控制帧并断开。直接 CloseConn 会让最后的
// 确认帧（比如 left）输掉和关闭的竞赛。幂等。
func (c *Client) Shutdown() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}
