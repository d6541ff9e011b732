package domain

import "time"

// ChatRoom 表示绑定到某个活动的群聊房间。
// 与活动是严格的 1:1 关系：event_id 上的唯一索引保证
// 并发创建时最多只会有一个房间成功落库。
type ChatRoom struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                 // 房间唯一标识符 (主键)
	EventID   uint      `gorm:"uniqueIndex;not null" json:"event_id"` // 所属活动 ID (唯一索引保证一个活动至多一个房间)
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`     // 房间创建时间 (首位参与者打开聊天时惰性创建)

	// 房间在本核心中从不被显式删除；活动被删除时由外部的
	// 管理/审核流程负责级联删除房间及其消息和成员记录。
}
