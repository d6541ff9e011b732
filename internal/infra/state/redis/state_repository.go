package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"hobbyhive-chat/internal/domain"
	"hobbyhive-chat/internal/repository"
)

// ErrFeedClosed 表示实时订阅因传输层断开而终止（非主动取消）。
// 上层据此决定是否重连；核心自身不做自动重连。
var ErrFeedClosed = errors.New("redis: message feed connection closed")

// RedisStateRepository 是 StateRepository 接口的 Redis 实现
type RedisStateRepository struct {
	client *redis.Client
	// Redis key 前缀，方便多环境共用一个实例
	keyPrefix string
}

// NewRedisStateRepository 创建 RedisStateRepository 实例
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "hh:" // 默认前缀 "hh:" (hobbyhive)
	}
	return &RedisStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// --- Key Generation Helpers ---

func (r *RedisStateRepository) roomSeqKey(roomID uint) string {
	return fmt.Sprintf("%sroom:%d:seq", r.keyPrefix, roomID)
}

func (r *RedisStateRepository) roomFeedChannel(roomID uint) string {
	return fmt.Sprintf("%sroom:%d:feed", r.keyPrefix, roomID)
}

// --- StateRepository Interface Implementation ---

// NextMessageSeq 原子地分配房间内下一个消息序号。
// INCR 的原子性保证并发追加拿到互不相同且单调递增的序号，
// 这是房间内消息全序的来源。
func (r *RedisStateRepository) NextMessageSeq(ctx context.Context, roomID uint) (uint64, error) {
	key := r.roomSeqKey(roomID)
	seq, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: failed to allocate message seq for room %d on key %s: %w", roomID, key, err)
	}
	return uint64(seq), nil
}

// PublishMessage 把一条已持久化的消息发布到房间的频道。
func (r *RedisStateRepository) PublishMessage(ctx context.Context, roomID uint, msg domain.Message) error {
	channel := r.roomFeedChannel(roomID)
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal message for publish (room %d, seq %d): %w", roomID, msg.Seq, err)
	}
	err = r.client.Publish(ctx, channel, string(payload)).Err()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"channel":      channel,
			"payload_size": len(payload),
			"room_id":      roomID,
			"seq":          msg.Seq,
		}).WithError(err).Error("Redis Publish failed")
		return fmt.Errorf("redis: failed to publish message to channel %s: %w", channel, err)
	}
	return nil
}

// SubscribeRoom 打开房间消息流的实时订阅。
// 先用 Receive 等待订阅握手完成，保证返回时订阅已经生效——
// 否则握手失败会表现为"悄悄收不到消息"而不是一个错误。
func (r *RedisStateRepository) SubscribeRoom(ctx context.Context, roomID uint) (repository.Subscription, error) {
	channel := r.roomFeedChannel(roomID)
	pubsub := r.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: failed to subscribe to channel %s: %w", channel, err)
	}

	sub := &roomSubscription{
		pubsub: pubsub,
		msgs:   make(chan domain.Message, 64),
		roomID: roomID,
	}
	go sub.pump()
	return sub, nil
}

// CheckRateLimit 检查给定 key 的请求频率是否超限，并递增计数。
// INCR + EXPIRE 走 Pipeline 减少网络往返。
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	fullKey := r.keyPrefix + "rl:" + key
	pipe := r.client.Pipeline()
	incrCmd := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: pipeline failed for rate limit check on key %s: %w", fullKey, err)
	}
	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to get incr result for rate limit on key %s: %w", fullKey, err)
	}
	return count > int64(limit), nil
}

// --- Subscription Implementation ---

// roomSubscription 是 repository.Subscription 的 Redis Pub/Sub 实现。
type roomSubscription struct {
	pubsub *redis.PubSub
	msgs   chan domain.Message
	roomID uint

	cancelOnce sync.Once
	cancelled  bool // Cancel 先置位再关连接，pump 据此区分终止原因

	mu  sync.Mutex
	err error // Messages 通道关闭后的终止原因
}

// pump 把 Redis 频道上的消息泵入订阅者通道。
// pubsub.Channel 关闭时结束：主动取消 → err 保持 nil，
// 传输层断开 → 记录 ErrFeedClosed 作为终止事件。
func (s *roomSubscription) pump() {
	logCtx := logrus.WithFields(logrus.Fields{"component": "message_feed", "room_id": s.roomID})
	for raw := range s.pubsub.Channel() {
		var msg domain.Message
		if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
			logCtx.WithError(err).Warnf("Failed to unmarshal feed payload (size %d), dropping", len(raw.Payload))
			continue
		}
		// 非阻塞投递：消费方停止读取时不能卡死 pump，
		// 否则 Cancel 关闭连接后 goroutine 无法退出。
		// 投递本身是 at-least-once best-effort，丢弃记入日志。
		select {
		case s.msgs <- msg:
		default:
			logCtx.WithField("seq", msg.Seq).Warn("Subscriber channel full, dropping feed message")
		}
	}
	s.mu.Lock()
	if !s.cancelled {
		s.err = ErrFeedClosed
	}
	s.mu.Unlock()
	close(s.msgs)
	logCtx.Debug("Feed pump exited")
}

// Messages 实现 repository.Subscription
func (s *roomSubscription) Messages() <-chan domain.Message {
	return s.msgs
}

// Err 实现 repository.Subscription
func (s *roomSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel 实现 repository.Subscription。幂等；连接已断开后调用安全。
func (s *roomSubscription) Cancel() {
	s.cancelOnce.Do(func() {
		s.mu.Lock()
		s.cancelled = true
		s.mu.Unlock()
		// Close 会让 pubsub.Channel 关闭，从而结束 pump
		if err := s.pubsub.Close(); err != nil {
			logrus.WithField("room_id", s.roomID).WithError(err).Debug("Closing feed subscription returned error")
		}
	})
}
