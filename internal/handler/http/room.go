package http

import (
	"net/http"
	"strconv"

	"hobbyhive-chat/internal/domain"
	"hobbyhive-chat/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RoomHandler 封装房间目录与聊天记录的 HTTP 接口。
// 发消息只走 WebSocket 会话；退出和移除成员除会话内帧外也提供
// REST 入口，供没有活跃连接的客户端调用。
type RoomHandler struct {
	directory  *service.RoomDirectory
	membership *service.MembershipService
	messageLog *service.MessageLog
	removal    *service.RemovalService
}

// NewRoomHandler 创建 RoomHandler 实例
func NewRoomHandler(directory *service.RoomDirectory, membership *service.MembershipService, messageLog *service.MessageLog, removal *service.RemovalService) *RoomHandler {
	return &RoomHandler{directory: directory, membership: membership, messageLog: messageLog, removal: removal}
}

// ResolveRoomResponse 定义解析房间成功的响应结构体
type ResolveRoomResponse struct {
	RoomID  uint `json:"room_id"`
	EventID uint `json:"event_id"`
}

// ResolveRoom 处理按活动解析（或首次创建）聊天房间的请求
// POST /api/events/:eventId/room
func (h *RoomHandler) ResolveRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	eventID, ok := parseUintParam(c, "eventId")
	if !ok {
		return
	}
	logCtx = logCtx.WithField("event_id", eventID)

	roomID, err := h.directory.ResolveOrCreateRoom(c.Request.Context(), eventID)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.ResolveRoom: Failed to resolve room")
		HandleServiceError(c, err)
		return
	}

	logCtx.WithField("room_id", roomID).Info("Handler.ResolveRoom: Room resolved")
	SuccessResponse(c, http.StatusOK, ResolveRoomResponse{RoomID: roomID, EventID: eventID})
}

// MessagesResponse 定义历史消息分页响应结构体
type MessagesResponse struct {
	Messages []domain.Message `json:"messages"`
	Total    int64            `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// GetMessages 处理历史消息分页查询
// GET /api/rooms/:roomId/messages?limit=50&offset=0
// 返回顺序为最旧在前，与会话内缓存一致
func (h *RoomHandler) GetMessages(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	roomID, ok := parseUintParam(c, "roomId")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := h.messageLog.History(c.Request.Context(), roomID, limit, offset)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	total, err := h.messageLog.Count(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, MessagesResponse{
		Messages: messages,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

// MembersResponse 定义成员列表响应结构体
type MembersResponse struct {
	Members []domain.Member `json:"members"`
}

// GetMembers 处理成员面板查询
// GET /api/rooms/:roomId/members
func (h *RoomHandler) GetMembers(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	roomID, ok := parseUintParam(c, "roomId")
	if !ok {
		return
	}

	members, err := h.membership.ListMembers(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, MembersResponse{Members: members})
}

// LeaveRoom 处理用户自己退出聊天的请求
// POST /api/rooms/:roomId/leave
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	roomID, ok := parseUintParam(c, "roomId")
	if !ok {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID})

	if err := h.removal.Leave(c.Request.Context(), roomID, userID); err != nil {
		logCtx.WithError(err).Warn("Handler.LeaveRoom: Leave failed")
		HandleServiceError(c, err)
		return
	}

	logCtx.Info("Handler.LeaveRoom: User left room")
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Left room successfully"})
}

// RemoveMember 处理主办方移除成员的请求
// DELETE /api/rooms/:roomId/members/:userId
func (h *RoomHandler) RemoveMember(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	roomID, ok := parseUintParam(c, "roomId")
	if !ok {
		return
	}
	targetID, ok := parseUintParam(c, "userId")
	if !ok {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"actor_id": actorID, "room_id": roomID, "target_user_id": targetID,
	})

	if err := h.removal.Remove(c.Request.Context(), roomID, actorID, targetID); err != nil {
		logCtx.WithError(err).Warn("Handler.RemoveMember: Remove failed")
		HandleServiceError(c, err)
		return
	}

	logCtx.Info("Handler.RemoveMember: Member removed")
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Member removed successfully"})
}

// currentUserID 从 Gin 上下文取出 Auth 中间件写入的用户 ID。
// 失败时已写好响应，调用方直接 return 即可。
func currentUserID(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("Handler: User ID not found in context, middleware missing or failed?")
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("Handler: User ID in context is not uint")
		ErrorResponse(c, http.StatusInternalServerError, "Internal server error processing user ID")
		return 0, false
	}
	return userID, true
}

// parseUintParam 解析 URL 路径中的正整数参数
func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		logrus.Warnf("Handler: Invalid %s parameter: %s", name, raw)
		ErrorResponse(c, http.StatusBadRequest, "Invalid "+name+" parameter")
		return 0, false
	}
	return uint(v), true
}
