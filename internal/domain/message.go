package domain

import "time"

// Message 表示房间内的一条聊天消息。创建后不可变：
// 本核心不支持编辑或删除单条消息。
//
// 排序语义：Seq 是房间内单调递增的序号，由存储层在追加时
// 分配 (Redis INCR)，房间内所有消息由它构成稳定的全序。
// CreatedAt 仅用于展示；并发追加时时间戳可能相同，
// 真正的排序键始终是 (room_id, seq)。
type Message struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	RoomID   uint   `gorm:"uniqueIndex:idx_room_seq;not null" json:"room_id"`
	Seq      uint64 `gorm:"uniqueIndex:idx_room_seq;not null" json:"seq"` // 房间内单调序号 (排序键)
	SenderID uint   `gorm:"index;not null" json:"sender_id"`

	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	// 消息归属房间，房间被删除时级联删除
	Room ChatRoom `gorm:"foreignKey:RoomID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
