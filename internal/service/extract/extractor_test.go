// Package extract 文本提取单元测试
package extract

import (
	"context"
	"strings"
	"testing"
)

// ========== DetectType 测试 ==========

func TestDetectType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		fileName    string
		expected    string
	}{
		{"pdf by content type", "application/pdf", "doc.bin", TypePDF},
		{"docx by content type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "doc.bin", TypeDocx},
		{"html by content type", "text/html", "page.bin", TypeHTML},
		{"csv by content type", "text/csv", "data.bin", TypeCSV},
		{"plain text", "text/plain", "notes.bin", TypeText},
		{"pdf by extension", "application/octet-stream", "report.PDF", TypePDF},
		{"htm by extension", "", "index.htm", TypeHTML},
		{"csv by extension", "", "rows.csv", TypeCSV},
		{"unknown falls back to text", "application/octet-stream", "blob.bin", TypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectType(tt.contentType, tt.fileName); got != tt.expected {
				t.Errorf("DetectType(%q, %q) = %q, want %q", tt.contentType, tt.fileName, got, tt.expected)
			}
		})
	}
}

// ========== 纯文本提取测试 ==========

func TestExtract_PlainText(t *testing.T) {
	e := NewExtractor(10)
	text := "The quick brown fox jumps over the lazy dog near the riverbank."

	result, err := e.Extract(context.Background(), []byte(text), TypeText, "notes.txt")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if result.Method != "plain_text" {
		t.Errorf("Method = %q, want plain_text", result.Method)
	}
	if result.Text != text {
		t.Errorf("Text = %q, want %q", result.Text, text)
	}
	if result.WordCount != 12 {
		t.Errorf("WordCount = %d, want 12", result.WordCount)
	}
	if result.CharCount != len(text) {
		t.Errorf("CharCount = %d, want %d", result.CharCount, len(text))
	}
}

// ========== CSV 提取测试 ==========

func TestExtract_CSV(t *testing.T) {
	e := NewExtractor(10)
	csvData := "name,amount,date\nwidget,42,2026-01-02\ngadget,7,2026-01-03\n"

	result, err := e.Extract(context.Background(), []byte(csvData), TypeCSV, "rows.csv")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if result.Method != "csv_rows" {
		t.Errorf("Method = %q, want csv_rows", result.Method)
	}
	// 单元格用制表符连接，内容可被全文搜索
	if !strings.Contains(result.Text, "widget\t42") {
		t.Errorf("Text missing tab-joined cells: %q", result.Text)
	}
	if result.Metadata["row_count"] != 3 {
		t.Errorf("row_count = %v, want 3", result.Metadata["row_count"])
	}
	if result.Metadata["column_count"] != 3 {
		t.Errorf("column_count = %v, want 3", result.Metadata["column_count"])
	}
}

// ========== 最小长度阈值测试 ==========

func TestExtract_BelowThreshold(t *testing.T) {
	e := NewExtractor(100)

	// 纯文本方法产出有效，但低于阈值时视为无效
	result, err := e.Extract(context.Background(), []byte("too short"), TypeText, "short.txt")
	if err == nil {
		t.Fatal("Extract() should fail when all methods produce short output")
	}

	// 失败也必须带完整的尝试记录
	if len(result.Trace) == 0 {
		t.Fatal("Trace should record failed attempts")
	}
	attempt := result.Trace[0]
	if attempt.Success {
		t.Error("Trace attempt should not be marked success")
	}
	if !strings.Contains(attempt.Error, "too short") {
		t.Errorf("Trace error = %q, want short-output reason", attempt.Error)
	}
	// 错误信息包含每个方法的尝试详情
	if !strings.Contains(err.Error(), "plain_text") {
		t.Errorf("error should summarize attempted methods: %v", err)
	}
}

// ========== 方法回退与尝试记录测试 ==========

func TestExtract_FallbackTrace(t *testing.T) {
	e := NewExtractor(10)

	// 非法 CSV（引号未闭合）使 csv_rows 失败，回退到 plain_text
	bad := "a,\"unterminated\nplain enough text to pass the threshold easily"
	result, err := e.Extract(context.Background(), []byte(bad), TypeCSV, "weird.csv")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if result.Method != "plain_text" {
		t.Errorf("Method = %q, want plain_text after csv failure", result.Method)
	}
	if len(result.Trace) != 2 {
		t.Fatalf("Trace length = %d, want 2", len(result.Trace))
	}
	if result.Trace[0].Method != "csv_rows" || result.Trace[0].Success {
		t.Errorf("first attempt = %+v, want failed csv_rows", result.Trace[0])
	}
	if result.Trace[1].Method != "plain_text" || !result.Trace[1].Success {
		t.Errorf("second attempt = %+v, want successful plain_text", result.Trace[1])
	}
}

// ========== methodsFor 顺序测试 ==========

func TestMethodsFor(t *testing.T) {
	e := NewExtractor(10)

	tests := []struct {
		declaredType string
		first        string
	}{
		{TypePDF, "pdf_pages"},
		{TypeDocx, "docx_structured"},
		{TypeHTML, "html_body"},
		{TypeCSV, "csv_rows"},
		{TypeText, "plain_text"},
		{"unknown", "plain_text"},
	}

	for _, tt := range tests {
		methods := e.methodsFor(tt.declaredType)
		if len(methods) == 0 {
			t.Fatalf("methodsFor(%q) returned no methods", tt.declaredType)
		}
		if methods[0].name != tt.first {
			t.Errorf("methodsFor(%q)[0] = %q, want %q", tt.declaredType, methods[0].name, tt.first)
		}
	}
}

// ========== TraceMetadata 测试 ==========

func TestTraceMetadata(t *testing.T) {
	trace := []Attempt{
		{Method: "pdf_pages", Success: false, Error: "parse failed", DurationMS: 12},
		{Method: "plain_text", Success: true, CharCount: 200, DurationMS: 1},
	}

	items := TraceMetadata(trace)
	if len(items) != 2 {
		t.Fatalf("TraceMetadata() length = %d, want 2", len(items))
	}

	first, ok := items[0].(map[string]interface{})
	if !ok {
		t.Fatal("TraceMetadata() item is not a map")
	}
	if first["method"] != "pdf_pages" || first["error"] != "parse failed" {
		t.Errorf("first item = %+v", first)
	}
}
