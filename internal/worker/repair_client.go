package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"hobbyhive-chat/internal/tasks"
)

// RepairClient 把修复任务排入 Asynq 队列。
// 实现 service.RemovalRepairEnqueuer。
type RepairClient struct {
	client *asynq.Client
}

// NewRepairClient 创建 RepairClient 实例
func NewRepairClient(client *asynq.Client) *RepairClient {
	if client == nil {
		panic("asynq client cannot be nil for RepairClient")
	}
	return &RepairClient{client: client}
}

// EnqueueParticipationRemoval 排入一个定点补删参与记录的任务。
// 删除是幂等的，任务重复入队或与人工重试并发执行都安全。
func (c *RepairClient) EnqueueParticipationRemoval(ctx context.Context, eventID, userID uint) error {
	payload, err := tasks.NewParticipationRemovalTask(eventID, userID)
	if err != nil {
		return fmt.Errorf("marshal participation removal payload: %w", err)
	}
	task := asynq.NewTask(tasks.TypeParticipationRemoval, payload)
	if _, err := c.client.EnqueueContext(ctx, task, asynq.Queue("critical"), asynq.MaxRetry(10)); err != nil {
		return fmt.Errorf("enqueue participation removal (event %d, user %d): %w", eventID, userID, err)
	}
	return nil
}
