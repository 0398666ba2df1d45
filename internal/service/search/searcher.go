package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
)

// ESSearcher Elasticsearch 搜索接口，便于测试
type ESSearcher interface {
	// DoSearch 执行搜索请求并返回响应
	DoSearch(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error)
}

// ESResponse Elasticsearch 搜索响应
type ESResponse struct {
	IsError bool
	Body    io.ReadCloser
	String  string
}

// realESSearcher 真实 ES 客户端的适配器
type realESSearcher struct {
	client *elasticsearch.Client
}

// NewESSearcher 创建真实 ES 搜索器
func NewESSearcher(client *elasticsearch.Client) ESSearcher {
	return &realESSearcher{client: client}
}

func (r *realESSearcher) DoSearch(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error) {
	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(index),
		r.client.Search.WithBody(bytes.NewReader(queryJSON)),
	)
	if err != nil {
		return nil, err
	}
	return &ESResponse{
		IsError: res.IsError(),
		Body:    res.Body,
		String:  res.String(),
	}, nil
}

// SearchRequest 搜索请求
// OrganizationID 为强制过滤条件，在搜索层保证租户隔离
type SearchRequest struct {
	OrganizationID string   `json:"organization_id"`
	Query          string   `json:"query" binding:"required"`
	Visibility     []string `json:"visibility,omitempty"`
	Page           int      `json:"page"`
	PageSize       int      `json:"page_size"`
}

// SearchHit 搜索命中
type SearchHit struct {
	FileID   string                 `json:"file_id"`
	Title    string                 `json:"title"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Searcher 搜索服务
type Searcher struct {
	es        ESSearcher
	indexName string
	cache     *Cache
}

// NewSearcher 创建搜索服务
func NewSearcher(es ESSearcher, indexName string, cache *Cache) *Searcher {
	return &Searcher{
		es:        es,
		indexName: indexName,
		cache:     cache,
	}
}

// Search 组织内搜索
// 无论调用方传入什么，organization_id 过滤始终生效
func (s *Searcher) Search(ctx context.Context, req *SearchRequest) ([]*SearchHit, error) {
	if s.es == nil {
		return nil, fmt.Errorf("elasticsearch client not configured")
	}
	if req.OrganizationID == "" {
		return nil, fmt.Errorf("organization_id is required")
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}

	// 命中缓存直接返回
	cacheKey := cacheKeyFor(req, page, pageSize)
	if s.cache != nil {
		if cached, ok := s.cache.Get(cacheKey); ok {
			var hits []*SearchHit
			if err := json.Unmarshal(cached, &hits); err == nil {
				return hits, nil
			}
		}
	}

	visibility := req.Visibility
	if len(visibility) == 0 {
		visibility = []string{"public", "org"}
	}

	// 构建 ES 查询：组织与可见性为 filter，查询词为 should
	query := map[string]interface{}{
		"from": (page - 1) * pageSize,
		"size": pageSize,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{
						"term": map[string]interface{}{
							"organization_id": req.OrganizationID,
						},
					},
					map[string]interface{}{
						"terms": map[string]interface{}{
							"visibility": visibility,
						},
					},
				},
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":  req.Query,
							"fields": []string{"title^2", "keywords^2", "content", "file_name"},
						},
					},
				},
			},
		},
	}

	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := s.es.DoSearch(ctx, s.indexName, queryJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError {
		return nil, fmt.Errorf("elasticsearch error: %s", res.String)
	}

	// 解析响应
	var response struct {
		Hits struct {
			Hits []struct {
				ID     string                 `json:"_id"`
				Score  float64                `json:"_score"`
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	hits := make([]*SearchHit, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		h := &SearchHit{
			Score:    hit.Score,
			Metadata: hit.Source,
		}
		if v, ok := hit.Source["file_id"].(string); ok {
			h.FileID = v
		}
		if v, ok := hit.Source["title"].(string); ok {
			h.Title = v
		}
		hits = append(hits, h)
	}

	if s.cache != nil {
		if data, err := json.Marshal(hits); err == nil {
			s.cache.Set(cacheKey, data)
		}
	}

	return hits, nil
}

// cacheKeyFor 生成搜索缓存键
func cacheKeyFor(req *SearchRequest, page, pageSize int) string {
	return fmt.Sprintf("search:%s:%s:%v:%d:%d",
		req.OrganizationID, req.Query, req.Visibility, page, pageSize)
}
