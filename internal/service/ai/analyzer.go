// Package ai 提供提取文本的 AI 分析
// 仅在提取完成后调用，不阻塞提取/索引关键路径
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashwinyue/docvault/internal/config"
	"github.com/cloudwego/eino-ext/components/model/openai"
	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// 送入模型的文本上限，完整文本已持久化，分析只需开头部分
const maxAnalysisInput = 8000

// Analysis 分析结果
type Analysis struct {
	Summary      string   `json:"summary"`
	KeyTopics    []string `json:"key_topics"`
	QualityScore float64  `json:"quality_score"`
}

// Analyzer 文本分析接口
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*Analysis, error)
}

// ChatAnalyzer 基于 ChatModel 的分析器
type ChatAnalyzer struct {
	model ecomodel.ChatModel
}

// NewAnalyzer 创建分析器，AI 未启用时返回 nil
func NewAnalyzer(ctx context.Context, cfg *config.Config) (*ChatAnalyzer, error) {
	if !cfg.AI.Enabled {
		return nil, nil
	}

	aiCfg := cfg.AI
	if aiCfg.Provider != "openai" {
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}
	if aiCfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for provider: %s", aiCfg.Provider)
	}

	modelName := aiCfg.OpenAI.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  aiCfg.OpenAI.APIKey,
		BaseURL: aiCfg.OpenAI.BaseURL,
		Model:   modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return &ChatAnalyzer{model: chatModel}, nil
}

const analysisPrompt = `你是文档分析助手。阅读给定文本，返回 JSON：
{"summary": "不超过200字的摘要", "key_topics": ["关键主题"], "quality_score": 0到1之间的内容质量分}
只返回 JSON，不要其他内容。`

// Analyze 分析文本，返回摘要、关键主题与质量分
func (a *ChatAnalyzer) Analyze(ctx context.Context, text string) (*Analysis, error) {
	if text == "" {
		return nil, fmt.Errorf("text is empty")
	}
	if len(text) > maxAnalysisInput {
		text = text[:maxAnalysisInput]
	}

	messages := []*schema.Message{
		schema.SystemMessage(analysisPrompt),
		schema.UserMessage(text),
	}

	reply, err := a.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("analysis generation failed: %w", err)
	}

	return parseAnalysis(reply.Content)
}

// parseAnalysis 解析模型回复，容忍 markdown 代码块包裹
func parseAnalysis(content string) (*Analysis, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var analysis Analysis
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse analysis reply: %w", err)
	}
	return &analysis, nil
}
