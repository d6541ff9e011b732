package domain

import "time"

// 本文件中的模型由平台的其他子系统拥有（活动 CRUD、账号/资料、
// 报名流程）。聊天核心只在边界上消费它们：活动元数据用于房间
// 头部展示和主办方权限检查，参与记录作为 leave/remove 级联删除
// 的另一半。这里仅声明读取（以及参与记录的删除）所需的字段。

// Event 表示活动的元数据（外部拥有，聊天核心只读）。
type Event struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Title    string `gorm:"size:191;not null" json:"title"`
	ImageURL string `gorm:"type:text" json:"image_url"`
	HostID   uint   `gorm:"index;not null" json:"host_id"` // 主办方；leave/remove 的权限检查依据
	Capacity int    `json:"capacity"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Participant 表示活动参与记录 (event, user)。
// 创建由外部的报名流程负责；聊天核心只在 leave/remove 时删除。
type Participant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   uint      `gorm:"uniqueIndex:idx_event_user;not null" json:"event_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_event_user;not null" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 报名流程建表时使用的表名
func (Participant) TableName() string { return "event_participants" }

// Profile 表示用户资料（外部拥有，聊天核心只读显示名）。
type Profile struct {
	UserID      uint   `gorm:"primaryKey" json:"user_id"`
	DisplayName string `gorm:"size:191;not null" json:"display_name"`
	AvatarURL   string `gorm:"type:text" json:"avatar_url"`
}

// OrphanMembership 表示一条失去了参与记录的成员资格：
// 成员必须镜像参与记录，而镜像方向只有参与 → 成员（首次访问
// 房间时惰性补齐），因此"有成员、无参与"总是非法状态，对账
// 任务可以放心删除。注意反方向（有参与、无成员）是合法的：
// 报名后从未打开过聊天的用户就处于这个状态，不能盲目扫描删除，
// 只能由记录了具体缺口的重试任务定点补删。
type OrphanMembership struct {
	RoomID  uint `json:"room_id"`
	EventID uint `json:"event_id"`
	UserID  uint `json:"user_id"`
}
