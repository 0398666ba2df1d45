package handler

import (
	"github.com/ashwinyue/docvault/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	File     *FileHandler
	Search   *SearchHandler
	Pipeline *PipelineHandler
	System   *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		File:     NewFileHandler(svc),
		Search:   NewSearchHandler(svc),
		Pipeline: NewPipelineHandler(svc),
		System:   NewSystemHandler(svc),
	}
}
