// Package queue 提供优先级任务队列
// 队列只是分发机制，管道状态以数据库任务表为准，队列丢失可由对账扫描恢复
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Stage 管道阶段
type Stage string

const (
	StageExtraction Stage = "extraction"
	StageAnalysis   Stage = "analysis"
	StageIndexing   Stage = "indexing"
)

// 各阶段的队列名
const (
	QueueExtraction = "pipeline:extraction"
	QueueAnalysis   = "pipeline:analysis"
	QueueIndexing   = "pipeline:indexing"
)

// QueueNameFor 返回阶段对应的队列名
func QueueNameFor(stage Stage) string {
	switch stage {
	case StageExtraction:
		return QueueExtraction
	case StageAnalysis:
		return QueueAnalysis
	case StageIndexing:
		return QueueIndexing
	default:
		return "pipeline:" + string(stage)
	}
}

// Task 任务载荷
// 封闭的带标签载荷集合：Stage 为判别字段，只携带各阶段需要的字段
type Task struct {
	ID         string    `json:"id"`
	Stage      Stage     `json:"stage"`
	FileID     string    `json:"file_id"`
	OrgID      string    `json:"org_id"`
	JobID      string    `json:"job_id,omitempty"` // 提取阶段对应的任务行 ID
	Priority   int       `json:"priority"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Encode 序列化任务
func (t *Task) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// DecodeTask 反序列化任务，出队时解码一次
func DecodeTask(data []byte) (*Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	if t.Stage == "" {
		return nil, fmt.Errorf("task missing stage")
	}
	return &t, nil
}

// Queue 优先级队列接口
// 排序：优先级降序，同优先级按入队顺序
// 投递语义：至少一次，出队即移除，阶段执行必须幂等
type Queue interface {
	// Enqueue 入队
	Enqueue(ctx context.Context, name string, task *Task) error
	// Dequeue 取出最高优先级任务，队列为空返回 (nil, nil)
	Dequeue(ctx context.Context, name string) (*Task, error)
	// Len 返回队列长度
	Len(ctx context.Context, name string) (int64, error)
}

// 复合分数：优先级为主序，序号为同级内的 FIFO 决胜
// float64 有 53 位精度，priority*2^40 + (2^40-seq) 在实际规模下不丢精度
const seqBand = int64(1) << 40

// Score 计算排序分数，优先级高者大，同级内序号小者大
func Score(priority int, seq int64) float64 {
	return float64(int64(priority)*seqBand + (seqBand - seq))
}
