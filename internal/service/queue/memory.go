package queue

import (
	"container/heap"
	"context"
	"sync"
)

// MemoryQueue 进程内优先级队列
// 未配置缓存后端时的回退实现，也用于测试
type MemoryQueue struct {
	mu     sync.Mutex
	queues map[string]*taskHeap
	seq    int64
}

// NewMemoryQueue 创建内存队列
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{queues: make(map[string]*taskHeap)}
}

// Enqueue 入队
func (q *MemoryQueue) Enqueue(ctx context.Context, name string, task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	h, ok := q.queues[name]
	if !ok {
		h = &taskHeap{}
		q.queues[name] = h
	}

	q.seq++
	heap.Push(h, &queuedTask{task: task, score: Score(task.Priority, q.seq)})
	return nil
}

// Dequeue 取出最高优先级任务
func (q *MemoryQueue) Dequeue(ctx context.Context, name string) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	h, ok := q.queues[name]
	if !ok || h.Len() == 0 {
		return nil, nil
	}

	item := heap.Pop(h).(*queuedTask)
	return item.task, nil
}

// Len 返回队列长度
func (q *MemoryQueue) Len(ctx context.Context, name string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	h, ok := q.queues[name]
	if !ok {
		return 0, nil
	}
	return int64(h.Len()), nil
}

// queuedTask 带分数的队列项
type queuedTask struct {
	task  *Task
	score float64
}

// taskHeap 按分数排列的最大堆
type taskHeap []*queuedTask

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].score > h[j].score }
func (h taskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(*queuedTask)) }
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
