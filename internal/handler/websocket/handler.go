package websocket

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"hobbyhive-chat/internal/domain"
	"hobbyhive-chat/internal/dto"
	"hobbyhive-chat/internal/hub"
	"hobbyhive-chat/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketHandler 负责 WebSocket 升级和会话建立。
// 连接建立后的帧分发由 Hub 和 Client 完成。
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	hub         *hub.Hub
	sessionDeps service.ChatSessionDeps
}

// NewWebSocketHandler 创建 WebSocketHandler 实例
func NewWebSocketHandler(h *hub.Hub, deps service.ChatSessionDeps) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 允许所有来源连接 (生产环境应配置具体的允许来源)
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return &WebSocketHandler{
		upgrader:    upgrader,
		hub:         h,
		sessionDeps: deps,
	}
}

// HandleConnection 处理 WebSocket 连接请求
// URL 预期格式: /ws/events/{eventId}
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	// 1. 获取认证用户 ID (由 Auth 中间件设置)
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("WS Handler: User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return // 此时还未升级，返回 HTTP 错误
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("WS Handler: User ID in context is not uint")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	// 2. 获取活动 ID (从 URL 参数)
	eventIDStr := c.Param("eventId")
	eventIDUint64, err := strconv.ParseUint(eventIDStr, 10, 32)
	if err != nil || eventIDUint64 == 0 {
		logCtx.Warnf("WS Handler: Invalid event ID format: %s", eventIDStr)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID format"})
		return
	}
	eventID := uint(eventIDUint64)
	logCtx = logCtx.WithField("event_id", eventID)

	// 3. 建立会话并解析房间。升级前完成，失败时还能用 HTTP 状态码上报。
	// 会话回调关联的 Client 在升级之后才存在，用互斥锁保护交接；
	// 交接前订阅投递的消息已进会话缓存，会随历史帧补发。
	var (
		clientMu sync.Mutex
		client   *hub.Client
	)
	onMessage := func(m domain.Message) {
		clientMu.Lock()
		cl := client
		clientMu.Unlock()
		if cl != nil {
			cl.SendFrame(dto.MessageFrame{Type: "message", Message: m})
		}
	}
	onDrop := func(cause error) {
		clientMu.Lock()
		cl := client
		clientMu.Unlock()
		if cl == nil {
			return
		}
		logCtx.WithError(cause).Warn("WS Handler: Live feed lost, closing connection")
		cl.SendFrame(dto.ErrorFrame{Type: "error", Code: "feed_lost", Message: "Live message feed was interrupted, please reconnect"})
		cl.CloseConn()
	}

	session := service.NewChatSession(userID, h.sessionDeps, onMessage, onDrop)
	if err := session.Open(c.Request.Context(), eventID); err != nil {
		h.rejectOpen(c, logCtx, err)
		return
	}
	logCtx = logCtx.WithField("room_id", session.Room().RoomID)

	// 4. 升级 HTTP 连接到 WebSocket
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时已写好 HTTP 错误响应，这里只需记日志和清理
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		session.Close()
		return
	}
	logCtx.Info("WS Handler: Connection upgraded to WebSocket")

	// 5. 创建 Client 并交接给回调
	clientMu.Lock()
	client = hub.NewClient(h.hub, conn, session, userID)
	cl := client
	clientMu.Unlock()

	// 6. 先排队初始帧（房间头部 + 历史），再启动读写泵
	cl.SendFrame(dto.RoomFrame{Type: "room", Room: session.Room()})
	cl.SendFrame(dto.HistoryFrame{Type: "history", Messages: session.History()})
	cl.Run()
}

// rejectOpen 把会话建立失败映射为 HTTP 响应
func (h *WebSocketHandler) rejectOpen(c *gin.Context, logCtx *logrus.Entry, err error) {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		logCtx.WithError(err).Warn("WS Handler: Event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, service.ErrStorageUnavailable):
		logCtx.WithError(err).Error("WS Handler: Storage unavailable during session open")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Chat service temporarily unavailable"})
	default:
		logCtx.WithError(err).Error("WS Handler: Failed to open chat session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open chat session"})
	}
}
