package repository

import (
	"context"
	"time"

	"hobbyhive-chat/internal/domain"
)

// StateRepository 定义了与房间实时状态相关的操作，由 Redis 实现。
type StateRepository interface {
	// === 序号分配 ===

	// NextMessageSeq 原子地分配房间内下一个消息序号。
	// 序号在房间内单调递增，是消息全序的排序键。
	NextMessageSeq(ctx context.Context, roomID uint) (uint64, error)

	// === 实时扇出 (Pub/Sub) ===

	// PublishMessage 把一条已持久化的消息发布到房间的频道。
	// 同一房间内的发布顺序与追加顺序一致；跨房间没有顺序保证。
	PublishMessage(ctx context.Context, roomID uint, msg domain.Message) error

	// SubscribeRoom 打开房间消息流的实时订阅 (live tail)。
	// 只投递订阅建立之后追加的消息；离线期间错过的消息需要
	// 重新读取历史才能补齐。
	SubscribeRoom(ctx context.Context, roomID uint) (Subscription, error)

	// === 限流 ===

	// CheckRateLimit 检查给定 key 的请求频率是否超限，并递增计数。
	// 返回 true 表示超限。
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Subscription 是一个房间实时订阅的句柄。
//
// Messages 返回的通道在订阅终止后关闭；关闭后 Err 区分两种
// 终止原因：主动 Cancel 返回 nil，传输层断开返回导致断开的
// 错误。订阅失败必须作为终止事件暴露给调用方，绝不允许悄悄
// 停止投递——是否重连由上层（会话服务）决定。
type Subscription interface {
	// Messages 返回接收新消息的通道，按追加顺序投递。
	Messages() <-chan domain.Message

	// Err 返回订阅的终止原因。只有在 Messages 通道关闭后
	// 才有意义；主动取消时返回 nil。
	Err() error

	// Cancel 停止投递并释放底层连接。
	// 幂等：重复调用或在连接已断开后调用都是安全的。
	Cancel()
}
