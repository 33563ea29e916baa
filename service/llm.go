package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"Filmmaker-server/config"
)

// GeminiClient 调用 Gemini REST 接口（generateContent）
type GeminiClient struct {
	Endpoint string
	APIKey   string
	Model    string
	Client   *http.Client
}

func NewGeminiClient() *GeminiClient {
	cfg := config.AppConfig.AI
	endpoint := cfg.GeminiEndpoint
	if endpoint == "" {
		endpoint = "https://generativelanguage.googleapis.com"
	}
	return &GeminiClient{
		Endpoint: endpoint,
		APIKey:   cfg.GeminiKey,
		Model:    cfg.GeminiModel,
		Client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

// GenConfig 生成参数
type GenConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig GenConfig       `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// GenerateContent sends one prompt and returns the model's text reply.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string, cfg GenConfig) (string, error) {
	req := geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: cfg,
	}

	jsonBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request failed: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.Endpoint, c.Model, c.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var respData map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&respData)
		return "", fmt.Errorf("gemini status code: %d, body: %+v", resp.StatusCode, respData)
	}

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response failed: %w", err)
	}

	// 安全过滤等原因可能导致空候选
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		reason := "UNKNOWN"
		if len(result.Candidates) > 0 {
			reason = result.Candidates[0].FinishReason
		}
		return "", fmt.Errorf("empty gemini response (finish reason: %s)", reason)
	}

	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}

// stripCodeFence 去掉返回文本外层的 markdown 代码块
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		return strings.TrimSpace(s)
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+len("```"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		return strings.TrimSpace(s)
	}
	return s
}

const judgePromptTemplate = `You are an expert film production assistant analyzing script changes.

Your task is to evaluate whether changes to a screenplay are SIGNIFICANT enough to warrant regenerating the storyboard and shot list.

SIGNIFICANT CHANGES (should regenerate):
- New scenes added
- Existing scenes removed
- Major dialogue changes that affect visual storytelling
- New characters introduced
- Location changes
- Time of day changes
- Action sequence modifications
- Plot-critical edits

INSIGNIFICANT CHANGES (no regeneration needed):
- Minor typo fixes
- Small dialogue tweaks that don't change meaning
- Formatting adjustments
- Punctuation changes
- Minor word substitutions
- Small additions/deletions that don't affect visuals

Analyze the changes and respond ONLY with a JSON object:
{
  "should_regenerate": true/false,
  "regenerate_storyboard": true/false,
  "regenerate_shot_list": true/false,
  "reason": "Brief explanation of why regeneration is/isn't needed",
  "change_summary": "Summary of what changed"
}

ORIGINAL SCRIPT:
---
%s
---

EDITED SCRIPT:
---
%s
---

CHANGES DETECTED:
%s

Analyze these changes and respond with JSON only:`

// Evaluator 全局改动评估器，InitAI 后可用
var Evaluator *ChangeEvaluator

// InitAI 初始化模型客户端相关的全局组件，在 main.go 中调用
func InitAI() {
	Evaluator = NewChangeEvaluator(NewGeminiClient())
}

// JudgeSignificance implements SemanticJudge. A transport error or an
// unparseable reply is returned as an error; the evaluator then falls
// back to its heuristic.
func (c *GeminiClient) JudgeSignificance(oldScript, newScript, diffSummary string) (*ChangeAnalysis, error) {
	prompt := fmt.Sprintf(judgePromptTemplate, oldScript, newScript, diffSummary)

	text, err := c.GenerateContent(context.Background(), prompt, GenConfig{
		Temperature:     0.3,
		TopP:            0.8,
		MaxOutputTokens: 1000,
	})
	if err != nil {
		return nil, err
	}

	var analysis ChangeAnalysis
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &analysis); err != nil {
		return nil, fmt.Errorf("malformed judge response: %w", err)
	}
	return &analysis, nil
}
