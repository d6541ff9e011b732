package domain

import "time"

// Membership 表示用户在某个房间中的成员资格。
// 不变量：每条 Membership 都镜像一条对应的活动参与记录
// (event_participants)，两者必须一起创建、一起删除。
// 参与记录的创建由外部的"报名活动"流程触发，本核心负责
// 在首次访问房间时把参与者镜像进房间，以及在 leave/remove
// 时按顺序删除两边的记录。
type Membership struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	RoomID   uint      `gorm:"uniqueIndex:idx_room_user;not null" json:"room_id"` // (room_id, user_id) 联合唯一，重复加入是幂等空操作
	UserID   uint      `gorm:"uniqueIndex:idx_room_user;not null" json:"user_id"`
	JoinedAt time.Time `gorm:"autoCreateTime;index" json:"joined_at"` // 成员面板按加入时间排序

	// 房间被删除时成员记录级联删除
	Room ChatRoom `gorm:"foreignKey:RoomID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// Member 是成员面板使用的读取视图：成员资格加上
// 通过 Profile 协作方批量解析出的显示名。
type Member struct {
	UserID      uint      `json:"user_id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}
