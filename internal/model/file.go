package model

import (
	"time"

	"gorm.io/gorm"
)

// Visibility 文件可见性
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityOrg     Visibility = "org"
	VisibilityPrivate Visibility = "private"
)

// File 文件记录
// 以 (ID, OrganizationID) 为身份标识，管道只修改派生字段
type File struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	OrganizationID string     `json:"organization_id" gorm:"index;not null"`
	FileName       string     `json:"file_name" gorm:"not null"`
	ContentType    string     `json:"content_type"`
	DeclaredType   string     `json:"declared_type"` // pdf, docx, html, csv, text ...
	FileSize       int64      `json:"file_size"`
	Checksum       string     `json:"checksum"` // 内容 SHA-256
	UploadedBy     string     `json:"uploaded_by"`
	Visibility     Visibility `json:"visibility" gorm:"default:org"`

	// 文档元数据（优先于文件名/上传者用于索引）
	DocTitle    string `json:"doc_title"`
	DocAuthor   string `json:"doc_author"`
	DocSubject  string `json:"doc_subject"`
	DocKeywords string `json:"doc_keywords"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 指定表名
func (File) TableName() string {
	return "files"
}

// Title 返回索引用标题：文档元数据标题优先，否则回退到文件名
func (f *File) Title() string {
	if f.DocTitle != "" {
		return f.DocTitle
	}
	return f.FileName
}
