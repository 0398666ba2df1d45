// Package search 提供搜索索引与查询
// 文档以 (file_id, organization_id) 为键做幂等 upsert，组织 ID 与可见性是强制过滤字段
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/ashwinyue/docvault/internal/config"
	"github.com/ashwinyue/docvault/internal/errs"
	"github.com/ashwinyue/docvault/internal/model"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Document 搜索引擎文档
type Document struct {
	FileID           string    `json:"file_id"`
	OrganizationID   string    `json:"organization_id"`
	Title            string    `json:"title"`
	Author           string    `json:"author,omitempty"`
	Subject          string    `json:"subject,omitempty"`
	Keywords         string    `json:"keywords,omitempty"`
	FileName         string    `json:"file_name"`
	ContentType      string    `json:"content_type,omitempty"`
	DeclaredType     string    `json:"declared_type,omitempty"`
	FileSize         int64     `json:"file_size"`
	UploadedBy       string    `json:"uploaded_by,omitempty"`
	Visibility       string    `json:"visibility"`
	Content          string    `json:"content"`
	ContentTruncated bool      `json:"content_truncated"`
	WordCount        int       `json:"word_count"`
	IndexedAt        time.Time `json:"indexed_at"`
}

// DocumentID 生成确定性文档 ID，重复索引同一文件替换而非新增
func DocumentID(fileID, orgID string) string {
	return orgID + ":" + fileID
}

// Indexer 搜索索引器
type Indexer struct {
	client           *elasticsearch.Client
	indexName        string
	maxContentLength int
}

// NewIndexer 创建索引器
func NewIndexer(client *elasticsearch.Client, indexPrefix string, maxContentLength int) *Indexer {
	if maxContentLength <= 0 {
		maxContentLength = 50000
	}
	return &Indexer{
		client:           client,
		indexName:        indexPrefix + "_documents",
		maxContentLength: maxContentLength,
	}
}

// NewESClient 创建 ES8 客户端
func NewESClient(cfg *config.Config) (*elasticsearch.Client, error) {
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Elastic.Host},
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
}

// IndexName 返回索引名
func (ix *Indexer) IndexName() string {
	return ix.indexName
}

// BuildDocument 由文件记录与提取内容构建搜索文档
// 文档元数据标题优先于文件名，上传者在无作者元数据时充当作者
func (ix *Indexer) BuildDocument(file *model.File, content *model.ExtractedContent) *Document {
	doc := &Document{
		FileID:         file.ID,
		OrganizationID: file.OrganizationID,
		Title:          file.Title(),
		Subject:        file.DocSubject,
		Keywords:       file.DocKeywords,
		FileName:       file.FileName,
		ContentType:    file.ContentType,
		DeclaredType:   file.DeclaredType,
		FileSize:       file.FileSize,
		UploadedBy:     file.UploadedBy,
		Visibility:     string(file.Visibility),
		IndexedAt:      time.Now(),
	}

	doc.Author = file.DocAuthor
	if doc.Author == "" {
		doc.Author = file.UploadedBy
	}

	if content != nil {
		doc.Content = content.Content
		doc.WordCount = content.WordCount
	}

	return doc
}

// validate 校验文档必填字段
func (ix *Indexer) validate(doc *Document) error {
	if doc.FileID == "" {
		return errs.NewValidation("file_id", "must not be empty")
	}
	if doc.OrganizationID == "" {
		return errs.NewValidation("organization_id", "must not be empty")
	}
	if doc.Visibility == "" {
		return errs.NewValidation("visibility", "must not be empty")
	}
	return nil
}

// applyTruncation 截断超限内容并标记，绝不静默截断
// 切点回退到字符边界，避免把多字节字符剖成非法 UTF-8
func (ix *Indexer) applyTruncation(doc *Document) {
	if len(doc.Content) <= ix.maxContentLength {
		return
	}
	cut := ix.maxContentLength
	for cut > 0 && !utf8.RuneStart(doc.Content[cut]) {
		cut--
	}
	doc.Content = doc.Content[:cut]
	doc.ContentTruncated = true
}

// Index 幂等 upsert 文档
func (ix *Indexer) Index(ctx context.Context, doc *Document) error {
	if err := ix.validate(doc); err != nil {
		return err
	}

	ix.applyTruncation(doc)
	if doc.ContentTruncated {
		log.Printf("Content truncated to %d chars for file %s", ix.maxContentLength, doc.FileID)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      ix.indexName,
		DocumentID: DocumentID(doc.FileID, doc.OrganizationID),
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return errs.NewTransient("index document", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errs.NewTransient("index document", fmt.Errorf("elasticsearch error: %s", res.String()))
	}
	return nil
}

// Delete 从索引移除文档，文档不存在视为成功
func (ix *Indexer) Delete(ctx context.Context, fileID, orgID string) error {
	req := esapi.DeleteRequest{
		Index:      ix.indexName,
		DocumentID: DocumentID(fileID, orgID),
	}

	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return errs.NewTransient("delete document", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return errs.NewTransient("delete document", fmt.Errorf("elasticsearch error: %s", res.String()))
	}
	return nil
}

// EnsureIndex 确保索引存在（如不存在则创建）
func (ix *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := ix.client.Indices.Exists([]string{ix.indexName})
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil // 索引已存在
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"file_id":           map[string]interface{}{"type": "keyword"},
				"organization_id":   map[string]interface{}{"type": "keyword"},
				"title":             map[string]interface{}{"type": "text"},
				"author":            map[string]interface{}{"type": "keyword"},
				"subject":           map[string]interface{}{"type": "text"},
				"keywords":          map[string]interface{}{"type": "text"},
				"file_name":         map[string]interface{}{"type": "text"},
				"content_type":      map[string]interface{}{"type": "keyword"},
				"declared_type":     map[string]interface{}{"type": "keyword"},
				"file_size":         map[string]interface{}{"type": "long"},
				"uploaded_by":       map[string]interface{}{"type": "keyword"},
				"visibility":        map[string]interface{}{"type": "keyword"},
				"content":           map[string]interface{}{"type": "text"},
				"content_truncated": map[string]interface{}{"type": "boolean"},
				"word_count":        map[string]interface{}{"type": "integer"},
				"indexed_at":        map[string]interface{}{"type": "date"},
			},
		},
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
	}

	mappingData, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	req := esapi.IndicesCreateRequest{
		Index: ix.indexName,
		Body:  bytes.NewReader(mappingData),
	}

	res, err = req.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to create index: %s", res.String())
	}

	log.Printf("Index %s created", ix.indexName)
	return nil
}

// Health 检查搜索引擎可用性
func (ix *Indexer) Health(ctx context.Context) error {
	res, err := ix.client.Ping(ix.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch unavailable: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}
