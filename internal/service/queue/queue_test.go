// Package queue 队列排序与编解码单元测试
package queue

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// ========== Score 测试 ==========

func TestScore(t *testing.T) {
	// 高优先级任务分数更大
	if Score(10, 1) <= Score(5, 1) {
		t.Error("higher priority should score higher")
	}

	// 同优先级下先入队（序号小）分数更大
	if Score(5, 1) <= Score(5, 2) {
		t.Error("earlier sequence should score higher within same priority")
	}

	// 低优先级的先入队任务不能压过高优先级的后入队任务
	if Score(5, 1) >= Score(10, 1000000) {
		t.Error("priority must dominate sequence")
	}
}

// ========== 编解码测试 ==========

func TestTaskCodec(t *testing.T) {
	task := &Task{
		ID:         "t1",
		Stage:      StageExtraction,
		FileID:     "f1",
		OrgID:      "org1",
		JobID:      "j1",
		Priority:   7,
		Attempt:    2,
		EnqueuedAt: time.Now().Truncate(time.Second),
	}

	data, err := task.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	decoded, err := DecodeTask(data)
	if err != nil {
		t.Fatalf("DecodeTask() error: %v", err)
	}

	if decoded.ID != task.ID || decoded.Stage != task.Stage ||
		decoded.FileID != task.FileID || decoded.JobID != task.JobID ||
		decoded.Priority != task.Priority || decoded.Attempt != task.Attempt {
		t.Errorf("DecodeTask() = %+v, want %+v", decoded, task)
	}
}

func TestDecodeTask_Invalid(t *testing.T) {
	if _, err := DecodeTask([]byte("not json")); err == nil {
		t.Error("DecodeTask() should fail on malformed input")
	}

	// 缺失 stage 的载荷拒收
	if _, err := DecodeTask([]byte(`{"id":"t1","file_id":"f1"}`)); err == nil {
		t.Error("DecodeTask() should reject payload without stage")
	}
}

// ========== QueueNameFor 测试 ==========

func TestQueueNameFor(t *testing.T) {
	tests := []struct {
		stage    Stage
		expected string
	}{
		{StageExtraction, QueueExtraction},
		{StageAnalysis, QueueAnalysis},
		{StageIndexing, QueueIndexing},
		{Stage("custom"), "pipeline:custom"},
	}

	for _, tt := range tests {
		if got := QueueNameFor(tt.stage); got != tt.expected {
			t.Errorf("QueueNameFor(%q) = %q, want %q", tt.stage, got, tt.expected)
		}
	}
}

// ========== MemoryQueue 排序测试 ==========

func TestMemoryQueue_PriorityOrder(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	// job1(10), job2(5), job3(10) -> 出队顺序 job1, job3, job2
	jobs := []struct {
		id       string
		priority int
	}{
		{"job1", 10},
		{"job2", 5},
		{"job3", 10},
	}
	for _, j := range jobs {
		err := q.Enqueue(ctx, QueueExtraction, &Task{
			ID:       j.id,
			Stage:    StageExtraction,
			Priority: j.priority,
		})
		if err != nil {
			t.Fatalf("Enqueue(%s) error: %v", j.id, err)
		}
	}

	want := []string{"job1", "job3", "job2"}
	for i, expected := range want {
		task, err := q.Dequeue(ctx, QueueExtraction)
		if err != nil {
			t.Fatalf("Dequeue() error: %v", err)
		}
		if task == nil {
			t.Fatalf("Dequeue() #%d returned nil", i)
		}
		if task.ID != expected {
			t.Errorf("Dequeue() #%d = %s, want %s", i, task.ID, expected)
		}
	}
}

func TestMemoryQueue_FIFOWithinPriority(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		err := q.Enqueue(ctx, QueueIndexing, &Task{
			ID:       fmt.Sprintf("task-%02d", i),
			Stage:    StageIndexing,
			Priority: 5,
		})
		if err != nil {
			t.Fatalf("Enqueue() error: %v", err)
		}
	}

	for i := 0; i < 20; i++ {
		task, err := q.Dequeue(ctx, QueueIndexing)
		if err != nil {
			t.Fatalf("Dequeue() error: %v", err)
		}
		expected := fmt.Sprintf("task-%02d", i)
		if task.ID != expected {
			t.Errorf("Dequeue() #%d = %s, want %s (FIFO violated)", i, task.ID, expected)
		}
	}
}

func TestMemoryQueue_EmptyAndLen(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	// 空队列返回 (nil, nil)
	task, err := q.Dequeue(ctx, QueueExtraction)
	if err != nil {
		t.Fatalf("Dequeue() error: %v", err)
	}
	if task != nil {
		t.Errorf("Dequeue() on empty queue = %+v, want nil", task)
	}

	if err := q.Enqueue(ctx, QueueExtraction, &Task{ID: "t1", Stage: StageExtraction, Priority: 1}); err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}

	n, err := q.Len(ctx, QueueExtraction)
	if err != nil {
		t.Fatalf("Len() error: %v", err)
	}
	if n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}

	// 队列之间互不影响
	n, _ = q.Len(ctx, QueueIndexing)
	if n != 0 {
		t.Errorf("Len(other queue) = %d, want 0", n)
	}
}
