package setup

import (
	"fmt"

	"gorm.io/gorm"

	"hobbyhive-chat/internal/domain"
)

// MigrateDB 自动迁移数据库模式。
// 聊天核心拥有 chat_rooms / memberships / messages 三张表；
// events / profiles / event_participants 由平台的其他子系统
// 拥有，这里一并迁移只是为了单库部署和本地开发方便——生产
// 环境中它们通常已经由拥有方建好，AutoMigrate 对已存在的表
// 是增量无害的。
func MigrateDB(db *gorm.DB) error {
	err := db.AutoMigrate(
		// 外部拥有的读取侧模型（先建，作为外键引用目标）
		&domain.Event{},
		&domain.Profile{},
		&domain.Participant{},
		// 聊天核心拥有的表
		&domain.ChatRoom{},
		&domain.Membership{},
		&domain.Message{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
