package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key 前缀
	keyPrefix = "docvault:queue:"
	// 入队序号计数器，保证同优先级内 FIFO
	seqKey = "docvault:queue:seq"
)

// RedisQueue 基于 Redis 有序集合的优先级队列
// ZPOPMAX 出队即移除，投递语义为至少一次
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue 创建 Redis 队列
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

// Enqueue 入队
func (q *RedisQueue) Enqueue(ctx context.Context, name string, task *Task) error {
	data, err := task.Encode()
	if err != nil {
		return err
	}

	seq, err := q.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get queue sequence: %w", err)
	}

	err = q.client.ZAdd(ctx, keyPrefix+name, redis.Z{
		Score:  Score(task.Priority, seq),
		Member: string(data),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Dequeue 取出最高优先级任务，队列为空返回 (nil, nil)
func (q *RedisQueue) Dequeue(ctx context.Context, name string) (*Task, error) {
	items, err := q.client.ZPopMax(ctx, keyPrefix+name, 1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue task: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	member, ok := items[0].Member.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected member type: %T", items[0].Member)
	}
	return DecodeTask([]byte(member))
}

// Len 返回队列长度
func (q *RedisQueue) Len(ctx context.Context, name string) (int64, error) {
	n, err := q.client.ZCard(ctx, keyPrefix+name).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return n, nil
}

// Ping 检查 Redis 连接
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}
