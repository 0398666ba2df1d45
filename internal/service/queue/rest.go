package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// RESTQueue 通过 REST 网关访问缓存的队列实现
// 方法面与 RedisQueue 一致，用于到缓存的裸 TCP 连接被阻断的环境
// 协议为 Upstash 风格：POST 命令数组，Bearer 令牌认证
type RESTQueue struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewRESTQueue 创建 REST 队列
func NewRESTQueue(baseURL, token string) *RESTQueue {
	return &RESTQueue{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// restResult REST 网关响应
type restResult struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// do 执行单条命令
func (q *RESTQueue) do(ctx context.Context, cmd ...interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.token != "" {
		req.Header.Set("Authorization", "Bearer "+q.token)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cache gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	var result restResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("cache gateway error: %s", result.Error)
	}
	return result.Result, nil
}

// Enqueue 入队
func (q *RESTQueue) Enqueue(ctx context.Context, name string, task *Task) error {
	data, err := task.Encode()
	if err != nil {
		return err
	}

	seqRaw, err := q.do(ctx, "INCR", seqKey)
	if err != nil {
		return fmt.Errorf("failed to get queue sequence: %w", err)
	}
	var seq int64
	if err := json.Unmarshal(seqRaw, &seq); err != nil {
		return fmt.Errorf("unexpected sequence response: %w", err)
	}

	score := strconv.FormatFloat(Score(task.Priority, seq), 'f', -1, 64)
	if _, err := q.do(ctx, "ZADD", keyPrefix+name, score, string(data)); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Dequeue 取出最高优先级任务，队列为空返回 (nil, nil)
func (q *RESTQueue) Dequeue(ctx context.Context, name string) (*Task, error) {
	raw, err := q.do(ctx, "ZPOPMAX", keyPrefix+name)
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue task: %w", err)
	}

	// ZPOPMAX 返回 [member, score]，空队列返回 []
	var pair []string
	if err := json.Unmarshal(raw, &pair); err != nil {
		return nil, fmt.Errorf("unexpected dequeue response: %w", err)
	}
	if len(pair) == 0 {
		return nil, nil
	}
	return DecodeTask([]byte(pair[0]))
}

// Len 返回队列长度
func (q *RESTQueue) Len(ctx context.Context, name string) (int64, error) {
	raw, err := q.do(ctx, "ZCARD", keyPrefix+name)
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("unexpected length response: %w", err)
	}
	return n, nil
}

// Ping 检查网关可达
func (q *RESTQueue) Ping(ctx context.Context) error {
	_, err := q.do(ctx, "PING")
	return err
}
