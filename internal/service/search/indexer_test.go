// Package search 索引文档构建单元测试
package search

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ashwinyue/docvault/internal/errs"
	"github.com/ashwinyue/docvault/internal/model"
)

// ========== DocumentID 测试 ==========

func TestDocumentID(t *testing.T) {
	// 同一 (文件, 组织) 生成同一 ID，重复索引为替换而非新增
	id1 := DocumentID("f1", "org1")
	id2 := DocumentID("f1", "org1")
	if id1 != id2 {
		t.Errorf("DocumentID not deterministic: %q vs %q", id1, id2)
	}

	// 不同组织下的同名文件不能撞 ID
	if DocumentID("f1", "org1") == DocumentID("f1", "org2") {
		t.Error("DocumentID must differ across organizations")
	}
	if DocumentID("f1", "org1") == DocumentID("f2", "org1") {
		t.Error("DocumentID must differ across files")
	}
}

// ========== BuildDocument 测试 ==========

func TestBuildDocument(t *testing.T) {
	ix := NewIndexer(nil, "test", 50000)

	file := &model.File{
		ID:             "f1",
		OrganizationID: "org1",
		FileName:       "report.pdf",
		ContentType:    "application/pdf",
		DeclaredType:   "pdf",
		FileSize:       1024,
		UploadedBy:     "user-9",
		Visibility:     model.VisibilityOrg,
		DocTitle:       "Quarterly Report",
		DocAuthor:      "Alice",
	}
	content := &model.ExtractedContent{
		Content:   "full text here",
		WordCount: 3,
	}

	doc := ix.BuildDocument(file, content)

	if doc.Title != "Quarterly Report" {
		t.Errorf("Title = %q, want doc metadata title", doc.Title)
	}
	if doc.Author != "Alice" {
		t.Errorf("Author = %q, want Alice", doc.Author)
	}
	if doc.Content != "full text here" || doc.WordCount != 3 {
		t.Errorf("content fields not carried: %+v", doc)
	}
	if doc.Visibility != "org" {
		t.Errorf("Visibility = %q, want org", doc.Visibility)
	}
}

func TestBuildDocument_Fallbacks(t *testing.T) {
	ix := NewIndexer(nil, "test", 50000)

	// 无文档元数据时：标题回退到文件名，作者回退到上传者
	file := &model.File{
		ID:             "f2",
		OrganizationID: "org1",
		FileName:       "notes.txt",
		UploadedBy:     "user-3",
		Visibility:     model.VisibilityPrivate,
	}

	doc := ix.BuildDocument(file, nil)

	if doc.Title != "notes.txt" {
		t.Errorf("Title = %q, want file name fallback", doc.Title)
	}
	if doc.Author != "user-3" {
		t.Errorf("Author = %q, want uploader fallback", doc.Author)
	}
	if doc.Content != "" || doc.WordCount != 0 {
		t.Errorf("nil content should leave content fields empty: %+v", doc)
	}
}

// ========== 校验测试 ==========

func TestValidate(t *testing.T) {
	ix := NewIndexer(nil, "test", 50000)

	tests := []struct {
		name    string
		doc     *Document
		wantErr bool
	}{
		{
			name:    "valid document",
			doc:     &Document{FileID: "f1", OrganizationID: "org1", Visibility: "org"},
			wantErr: false,
		},
		{
			name:    "missing file_id",
			doc:     &Document{OrganizationID: "org1", Visibility: "org"},
			wantErr: true,
		},
		{
			name:    "missing organization_id",
			doc:     &Document{FileID: "f1", Visibility: "org"},
			wantErr: true,
		},
		{
			name:    "missing visibility",
			doc:     &Document{FileID: "f1", OrganizationID: "org1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ix.validate(tt.doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errs.IsValidation(err) {
				t.Errorf("validate() error should be a validation error, got %T", err)
			}
		})
	}
}

// ========== 截断测试 ==========

func TestApplyTruncation(t *testing.T) {
	ix := NewIndexer(nil, "test", 50000)

	// 超限内容截断并置标记
	doc := &Document{Content: strings.Repeat("a", 60000)}
	ix.applyTruncation(doc)

	if len(doc.Content) != 50000 {
		t.Errorf("Content length = %d, want 50000", len(doc.Content))
	}
	if !doc.ContentTruncated {
		t.Error("ContentTruncated should be set; truncation must never be silent")
	}

	// 未超限内容不动，不置标记
	doc = &Document{Content: strings.Repeat("b", 100)}
	ix.applyTruncation(doc)
	if doc.ContentTruncated {
		t.Error("ContentTruncated should not be set for short content")
	}
	if len(doc.Content) != 100 {
		t.Errorf("Content length = %d, want 100", len(doc.Content))
	}
}

func TestApplyTruncation_RuneBoundary(t *testing.T) {
	// 3 字节字符不整除上限，朴素的字节切分会把字符剖成两半
	ix := NewIndexer(nil, "test", 50000)
	doc := &Document{Content: strings.Repeat("预", 20000)}
	ix.applyTruncation(doc)

	if !doc.ContentTruncated {
		t.Error("ContentTruncated should be set")
	}
	if len(doc.Content) > 50000 {
		t.Errorf("Content length = %d, want <= 50000", len(doc.Content))
	}
	if !utf8.ValidString(doc.Content) {
		t.Error("truncated content must remain valid UTF-8")
	}
	// 切点回退到最近的字符起点
	if len(doc.Content) != 49998 {
		t.Errorf("Content length = %d, want 49998", len(doc.Content))
	}
}
