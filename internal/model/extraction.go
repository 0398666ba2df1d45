package model

import (
	"time"
)

// 提取任务状态
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// ExtractionJob 文本提取任务
// 同一文件可以有多行历史记录，但 pending/processing 状态至多一行
type ExtractionJob struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	FileID         string     `json:"file_id" gorm:"index;not null"`
	OrganizationID string     `json:"organization_id" gorm:"index"`
	Method         string     `json:"method"` // 成功使用的提取方法
	Status         string     `json:"status" gorm:"default:pending;index"`
	Priority       int        `json:"priority"`
	Attempts       int        `json:"attempts"`
	MaxAttempts    int        `json:"max_attempts"`
	ErrorMessage   string     `json:"error_message"`
	StartedAt      *time.Time `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (ExtractionJob) TableName() string {
	return "text_extraction_jobs"
}

// Terminal 是否已到终态
func (j *ExtractionJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// 提取内容类型
const (
	ContentKindFullText   = "full_text"
	ContentKindAIAnalysis = "ai_analysis"
)

// ExtractedContent 提取结果
// 每个文件每种内容类型至多一行，冲突时替换
type ExtractedContent struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	FileID         string    `json:"file_id" gorm:"uniqueIndex:idx_file_kind;not null"`
	OrganizationID string    `json:"organization_id" gorm:"index"`
	Kind           string    `json:"kind" gorm:"uniqueIndex:idx_file_kind;not null"` // full_text, ai_analysis
	Content        string    `json:"content"`
	WordCount      int       `json:"word_count"`
	CharCount      int       `json:"char_count"`
	Method         string    `json:"method"`
	Metadata       JSON      `json:"metadata" gorm:"type:jsonb"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName 指定表名
func (ExtractedContent) TableName() string {
	return "extracted_text_content"
}
