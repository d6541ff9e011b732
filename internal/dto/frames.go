package dto

import (
	"hobbyhive-chat/internal/domain"
	"hobbyhive-chat/internal/service"
)

// IncomingFrame 表示从客户端 WebSocket 消息中接收的操作

type IncomingFrame struct {
	Type         string `json:"type" binding:"required,oneof=send leave remove members"`
	Content      string `json:"content,omitempty"`        // type == "send"
	TargetUserID uint   `json:"target_user_id,omitempty"` // type == "remove"
}

// RoomFrame 会话就绪时发送的房间头部（标题/图片/主办方）

type RoomFrame struct {
	Type string           `json:"type"`
	Room service.RoomView `json:"room"`
}

// HistoryFrame 会话就绪时发送的历史消息（最旧在前）

type HistoryFrame struct {
	Type     string           `json:"type"`
	Messages []domain.Message `json:"messages"`
}

// MessageFrame 实时订阅投递的单条消息

type MessageFrame struct {
	Type    string         `json:"type"`
	Message domain.Message `json:"message"`
}

// MembersFrame 成员面板数据

type MembersFrame struct {
	Type    string          `json:"type"`
	Members []domain.Member `json:"members"`
}

// LeftFrame 通知客户端本端已退出房间（leave 成功）

type LeftFrame struct {
	Type string `json:"type"`
}

// ErrorFrame 发送给客户端的错误消息

type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
