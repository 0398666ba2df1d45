// Package extract 提供文本提取
// 按声明类型选择有序的提取方法列表，逐个尝试直到产出有效文本
package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashwinyue/docvault/internal/model"
	"github.com/cloudwego/eino-ext/components/document/parser/docx"
	"github.com/cloudwego/eino-ext/components/document/parser/html"
	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/cloudwego/eino/schema"
)

// 声明类型
const (
	TypePDF  = "pdf"
	TypeDocx = "docx"
	TypeHTML = "html"
	TypeCSV  = "csv"
	TypeText = "text"
)

// DetectType 根据内容类型与文件名推断声明类型
func DetectType(contentType, fileName string) string {
	switch contentType {
	case "application/pdf":
		return TypePDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return TypeDocx
	case "text/html":
		return TypeHTML
	case "text/csv":
		return TypeCSV
	case "text/plain", "text/markdown", "application/json":
		return TypeText
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return TypePDF
	case ".docx":
		return TypeDocx
	case ".html", ".htm":
		return TypeHTML
	case ".csv":
		return TypeCSV
	default:
		return TypeText
	}
}

// Attempt 单次提取尝试的记录
type Attempt struct {
	Method     string `json:"method"`
	Success    bool   `json:"success"`
	CharCount  int    `json:"char_count"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Result 提取结果
type Result struct {
	Text      string
	WordCount int
	CharCount int
	Method    string
	Metadata  model.JSON
	Trace     []Attempt
}

// method 单个提取方法
type method struct {
	name string
	fn   func(ctx context.Context, data []byte) (string, model.JSON, error)
}

// Extractor 文本提取器
type Extractor struct {
	// 低于该长度的输出视为无效，继续尝试下一方法
	minTextLength int
}

// NewExtractor 创建提取器
func NewExtractor(minTextLength int) *Extractor {
	if minTextLength <= 0 {
		minTextLength = 100
	}
	return &Extractor{minTextLength: minTextLength}
}

// Extract 提取文本
// 返回第一个产出有效文本的方法结果；全部失败时返回带完整尝试记录的错误
func (e *Extractor) Extract(ctx context.Context, data []byte, declaredType, fileName string) (*Result, error) {
	result := &Result{Metadata: model.JSON{}}

	for _, m := range e.methodsFor(declaredType) {
		start := time.Now()
		text, meta, err := m.fn(ctx, data)
		attempt := Attempt{
			Method:     m.name,
			CharCount:  len(text),
			DurationMS: time.Since(start).Milliseconds(),
		}
		if err != nil {
			attempt.Error = err.Error()
			result.Trace = append(result.Trace, attempt)
			continue
		}

		text = strings.TrimSpace(text)
		attempt.CharCount = len(text)

		if len(text) < e.minTextLength {
			attempt.Error = fmt.Sprintf("output too short: %d chars", len(text))
			result.Trace = append(result.Trace, attempt)
			continue
		}

		attempt.Success = true
		result.Trace = append(result.Trace, attempt)
		result.Text = text
		result.WordCount = len(strings.Fields(text))
		result.CharCount = len(text)
		result.Method = m.name
		for k, v := range meta {
			result.Metadata[k] = v
		}
		return result, nil
	}

	return result, fmt.Errorf("no extraction method produced useful text: %s", traceSummary(result.Trace))
}

// methodsFor 返回声明类型对应的有序方法列表
func (e *Extractor) methodsFor(declaredType string) []method {
	switch declaredType {
	case TypePDF:
		return []method{
			{"pdf_pages", e.extractPDF},
			{"plain_text", e.extractPlainText},
		}
	case TypeDocx:
		return []method{
			{"docx_structured", e.extractDocx},
		}
	case TypeHTML:
		return []method{
			{"html_body", e.extractHTML},
			{"plain_text", e.extractPlainText},
		}
	case TypeCSV:
		return []method{
			{"csv_rows", e.extractCSV},
			{"plain_text", e.extractPlainText},
		}
	default:
		return []method{
			{"plain_text", e.extractPlainText},
		}
	}
}

// extractPDF 按页解析 PDF
func (e *Extractor) extractPDF(ctx context.Context, data []byte) (string, model.JSON, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: true})
	if err != nil {
		return "", nil, fmt.Errorf("failed to create pdf parser: %w", err)
	}

	docs, err := p.Parse(ctx, bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("pdf parse failed: %w", err)
	}

	return joinDocs(docs), model.JSON{"page_count": len(docs)}, nil
}

// extractDocx 解析 docx，包含页眉与表格
func (e *Extractor) extractDocx(ctx context.Context, data []byte) (string, model.JSON, error) {
	p, err := docx.NewDocxParser(ctx, &docx.Config{
		ToSections:      false,
		IncludeComments: false,
		IncludeHeaders:  true,
		IncludeFooters:  false,
		IncludeTables:   true,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to create docx parser: %w", err)
	}

	docs, err := p.Parse(ctx, bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("docx parse failed: %w", err)
	}

	return joinDocs(docs), model.JSON{"section_count": len(docs)}, nil
}

// extractHTML 提取 HTML 正文
func (e *Extractor) extractHTML(ctx context.Context, data []byte) (string, model.JSON, error) {
	bodySelector := "body"
	p, err := html.NewParser(ctx, &html.Config{Selector: &bodySelector})
	if err != nil {
		return "", nil, fmt.Errorf("failed to create html parser: %w", err)
	}

	docs, err := p.Parse(ctx, bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("html parse failed: %w", err)
	}

	return joinDocs(docs), model.JSON{}, nil
}

// extractCSV 结构化转储表格单元格
func (e *Extractor) extractCSV(ctx context.Context, data []byte) (string, model.JSON, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	var sb strings.Builder
	rows := 0
	columns := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("csv parse failed: %w", err)
		}
		sb.WriteString(strings.Join(record, "\t"))
		sb.WriteString("\n")
		rows++
		if len(record) > columns {
			columns = len(record)
		}
	}

	return sb.String(), model.JSON{"row_count": rows, "column_count": columns}, nil
}

// extractPlainText 直接读取为文本
func (e *Extractor) extractPlainText(ctx context.Context, data []byte) (string, model.JSON, error) {
	return string(data), model.JSON{}, nil
}

// joinDocs 合并解析出的文档内容
func joinDocs(docs []*schema.Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Content != "" {
			parts = append(parts, d.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// traceSummary 汇总尝试记录，作为失败任务的错误详情
func traceSummary(trace []Attempt) string {
	parts := make([]string, 0, len(trace))
	for _, a := range trace {
		if a.Error != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", a.Method, a.Error))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %d chars", a.Method, a.CharCount))
		}
	}
	if len(parts) == 0 {
		return "no methods attempted"
	}
	return strings.Join(parts, "; ")
}

// TraceMetadata 将尝试记录转为可存储的元数据
func TraceMetadata(trace []Attempt) []interface{} {
	items := make([]interface{}, 0, len(trace))
	for _, a := range trace {
		items = append(items, map[string]interface{}{
			"method":      a.Method,
			"success":     a.Success,
			"char_count":  a.CharCount,
			"duration_ms": a.DurationMS,
			"error":       a.Error,
		})
	}
	return items
}
