package service

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"Filmmaker-server/models"
)

const classifyPrompt = `You are an expert content classifier for a filmmaker pre-production system.

Your task is to analyze the user's prompt and determine what content they ALREADY HAVE vs what they want GENERATED.

CRITICAL - INVERSE LOGIC:
- Return TRUE if the user ALREADY PROVIDED that content (it exists in their prompt)
- Return FALSE if the user NEEDS the system to generate it

Content types to detect:
1. **script**: A complete screenplay/script in proper format (FADE IN, scene headings, dialogue, etc.)
2. **storyboard**: Visual scene breakdowns with frame descriptions
3. **shot_list**: Technical breakdown with camera specs and shot details

DETECTION RULES:
- Look for explicit phrases: "here's my script", "I have a script", "my script:", "script:"
- Look for screenplay formatting: "FADE IN:", "INT.", "EXT.", "FADE OUT", scene headings
- If prompt contains >200 characters with screenplay formatting, script = TRUE
- If prompt is just a story idea/description, script = FALSE
- Default to FALSE if uncertain

Respond ONLY with valid JSON:
{
  "script": true/false,
  "storyboard": true/false,
  "shot_list": true/false
}

User prompt to classify:
`

// GeminiClassifier classifies prompts with the model and falls back to
// deterministic keyword matching when the model is unavailable.
type GeminiClassifier struct {
	client *GeminiClient
}

func NewGeminiClassifier(client *GeminiClient) *GeminiClassifier {
	return &GeminiClassifier{client: client}
}

func (g *GeminiClassifier) Classify(ctx context.Context, prompt string) (models.Classification, error) {
	text, err := g.client.GenerateContent(ctx, classifyPrompt+prompt, GenConfig{
		Temperature:     0.1,
		TopP:            0.95,
		TopK:            20,
		MaxOutputTokens: 200,
	})
	if err != nil {
		log.Printf("[Classifier] model call failed, using keyword fallback: %v", err)
		return fallbackClassify(prompt), nil
	}

	var c models.Classification
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &c); err != nil {
		log.Printf("[Classifier] unparseable response, using keyword fallback: %v", err)
		return fallbackClassify(prompt), nil
	}

	log.Printf("[Classifier] result: script=%v storyboard=%v shot_list=%v", c.Script, c.Storyboard, c.ShotList)
	return c, nil
}

// 剧本标志词（短语 + 剧本格式标记）
var scriptIndicators = []string{
	"here's my script", "here is my script", "i have a script", "my script:",
	"existing script", "attached script", "script i wrote", "script:",
	"fade in:", "int.", "ext.", "fade out",
}

var screenplayMarkers = []string{"fade in", "int.", "ext.", "fade out", "cut to:", "dissolve to:"}

var storyboardIndicators = []string{
	"i have a storyboard", "i have storyboard", "existing storyboard",
	"my storyboard", "attached storyboard", "here's my storyboard",
}

var shotListIndicators = []string{
	"i have a shot list", "i have shot list", "existing shot list",
	"my shot list", "attached shot list", "here's my shot list",
}

// fallbackClassify 关键词兜底分类（模型不可用时）
func fallbackClassify(prompt string) models.Classification {
	lower := strings.ToLower(prompt)

	hasScript := containsAny(lower, scriptIndicators)
	if !hasScript && len(prompt) > 200 {
		markerCount := 0
		for _, marker := range screenplayMarkers {
			if strings.Contains(lower, marker) {
				markerCount++
			}
		}
		if markerCount >= 2 {
			hasScript = true
		}
	}

	return models.Classification{
		Script:     hasScript,
		Storyboard: containsAny(lower, storyboardIndicators),
		ShotList:   containsAny(lower, shotListIndicators),
	}
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// ExtractSuppliedScript pulls a user-provided script out of the prompt,
// either after an explicit "my script:" style separator or when the whole
// prompt reads like a screenplay.
func (g *GeminiClassifier) ExtractSuppliedScript(prompt string) string {
	lower := strings.ToLower(prompt)

	separators := []string{
		"here's my script:",
		"here is my script:",
		"my script:",
		"script:",
		"here's the script:",
	}

	for _, sep := range separators {
		idx := strings.Index(lower, sep)
		if idx < 0 {
			continue
		}
		script := strings.TrimSpace(prompt[idx+len(sep):])

		// 截掉末尾的生成指令（如 "...FADE OUT. Now create a storyboard"）
		trailing := []string{
			"\n\nnow create",
			"\n\ngenerate a",
			"\n\ncreate a",
			"\n\ngenerate the",
			"\n\nmake a",
		}
		scriptLower := strings.ToLower(script)
		for _, phrase := range trailing {
			if cut := strings.Index(scriptLower, phrase); cut >= 0 {
				script = strings.TrimSpace(script[:cut])
				break
			}
		}

		if len(script) > 50 {
			return script
		}
	}

	// 整个 prompt 本身就是剧本的情况
	markerCount := 0
	for _, marker := range []string{"fade in", "int.", "ext.", "fade out"} {
		if strings.Contains(lower, marker) {
			markerCount++
		}
	}
	if markerCount >= 2 && len(prompt) > 200 {
		return strings.TrimSpace(prompt)
	}

	return ""
}
