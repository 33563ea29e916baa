package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"Filmmaker-server/models"
)

// ============================================================================
// Script agent
// ============================================================================

const scriptPrompt = `You are a professional screenwriter. Generate a properly formatted screenplay based on the user's prompt.

SCREENPLAY FORMAT RULES:
1. Use standard screenplay formatting:
   - FADE IN: at the beginning
   - FADE OUT. at the end
   - Scene headings in ALL CAPS: INT./EXT. LOCATION - TIME
   - Character names in ALL CAPS before dialogue
   - Action lines in regular case
   - Dialogue indented appropriately

2. Include:
   - Clear scene descriptions
   - Character development
   - Natural dialogue
   - Visual storytelling elements
   - Proper scene transitions

3. Length guidelines:
   - Short film (2-5 min): 2-5 pages
   - Medium (5-15 min): 5-15 pages
   - Commercial (30-60 sec): 1 page
   - Adapt based on user's requirements

4. Be creative and professional

User's project prompt:
`

// ScriptAgent 剧本生成
type ScriptAgent struct {
	client *GeminiClient
}

func NewScriptAgent(client *GeminiClient) *ScriptAgent {
	return &ScriptAgent{client: client}
}

func (a *ScriptAgent) GenerateScript(ctx context.Context, p *models.Project) (string, error) {
	// 已有剧本则原样返回，不重复生成
	if p.Script != "" {
		log.Printf("[ScriptAgent] script already exists for project %s, skipping generation", p.ID)
		return p.Script, nil
	}

	script, err := a.client.GenerateContent(ctx, scriptPrompt+p.UserPrompt, GenConfig{
		Temperature:     0.8,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 8000,
	})
	if err != nil {
		return "", fmt.Errorf("script generation failed: %w", err)
	}

	// 规范首尾
	if !strings.HasPrefix(script, "FADE IN") {
		script = "FADE IN:\n\n" + script
	}
	if !strings.HasSuffix(script, "FADE OUT.") {
		script = script + "\n\nFADE OUT."
	}

	log.Printf("[ScriptAgent] generated %d characters for project %s", len(script), p.ID)
	return script, nil
}

// ============================================================================
// Storyboard agent
// ============================================================================

const storyboardPrompt = `You are an expert storyboard artist and cinematographer. Analyze the provided screenplay and create a detailed storyboard.

TASK: Break down the script into key visual frames/shots and provide detailed descriptions for each.

For EACH key frame, provide:
1. frame_number: Sequential number (1, 2, 3, etc.)
2. scene: Scene identifier (e.g., "Scene 1", "Opening", "INT. HOUSE")
3. description: Detailed visual description of what's happening in the frame (composition, lighting, mood, character positions, key visual elements)
4. camera_angle: Camera angle/shot type (e.g., "Wide Shot", "Medium Close-Up", "Over-the-Shoulder", "Bird's Eye View", "Low Angle")
5. dialogue: Any dialogue spoken during this frame (optional)
6. notes: Additional notes for the cinematographer or artist (optional)

GUIDELINES:
- Identify 8-15 key frames that tell the story visually
- Focus on important story beats and transitions
- Include establishing shots, key character moments, and dramatic beats
- Be specific about visual composition
- Think cinematically

Return your response as a JSON array of frames. ONLY return valid JSON, no additional text.

SCRIPT:
`

// StoryboardAgent 分镜生成（附带画面参考图）
type StoryboardAgent struct {
	client *GeminiClient
	images *FrameImager
}

func NewStoryboardAgent(client *GeminiClient, images *FrameImager) *StoryboardAgent {
	return &StoryboardAgent{client: client, images: images}
}

func (a *StoryboardAgent) GenerateStoryboard(ctx context.Context, p *models.Project) (models.FrameList, error) {
	if p.Script == "" {
		return nil, fmt.Errorf("script is required to generate storyboard")
	}

	// 已有分镜则原样返回
	if len(p.Storyboard) > 0 {
		log.Printf("[StoryboardAgent] storyboard already exists for project %s, skipping generation", p.ID)
		return p.Storyboard, nil
	}

	text, err := a.client.GenerateContent(ctx, storyboardPrompt+p.Script, GenConfig{
		Temperature:     0.7,
		TopP:            0.95,
		MaxOutputTokens: 8000,
	})
	if err != nil {
		return nil, fmt.Errorf("storyboard generation failed: %w", err)
	}

	var frames models.FrameList
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &frames); err != nil {
		return nil, fmt.Errorf("failed to parse storyboard JSON: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("storyboard response contains no frames")
	}

	for i := range frames {
		if frames[i].FrameNumber == 0 {
			frames[i].FrameNumber = i + 1
		}
	}

	if a.images != nil {
		a.images.AttachImages(ctx, p.ID, frames)
	}

	log.Printf("[StoryboardAgent] generated %d frames for project %s", len(frames), p.ID)
	return frames, nil
}

// ============================================================================
// Shot list agent
// ============================================================================

const shotListPrompt = `You are an expert cinematographer and director of photography. Create a detailed, professional shot list based on the provided storyboard for a film production.

CRITICAL REQUIREMENT: Create AT LEAST ONE shot for EVERY storyboard frame provided. If the storyboard has 12 frames, generate AT LEAST 12 shots.

TASK: Transform each storyboard frame into one or more technical shots with camera specifications.

For EACH shot, provide a JSON object with:
1. shot_number: Sequential number
2. scene: Scene identifier from the storyboard
3. shot_type: Choose from Wide Shot, Medium Shot, Close-Up, Over-the-Shoulder, POV, etc.
4. camera_movement: Choose from Static, Pan, Tilt, Dolly, Tracking, Handheld, Steadicam, etc.
5. description: Technical description of the shot
6. duration: Estimated duration (e.g., "3-5 seconds")
7. equipment: Array of equipment (e.g., ["Camera", "Tripod", "Slider"])
8. lens: Recommended lens (e.g., "50mm f/1.8", "24-70mm zoom")
9. notes: Technical notes for the crew

Return ONLY a valid JSON array. No markdown, no explanations. Ensure you create at least one shot per storyboard frame.

STORYBOARD:
`

// ShotListAgent 技术分镜表生成
type ShotListAgent struct {
	client *GeminiClient
}

func NewShotListAgent(client *GeminiClient) *ShotListAgent {
	return &ShotListAgent{client: client}
}

func (a *ShotListAgent) GenerateShotList(ctx context.Context, p *models.Project) (models.ShotEntryList, error) {
	if len(p.Storyboard) == 0 {
		return nil, fmt.Errorf("storyboard is required to generate shot list")
	}

	// 已有分镜表则原样返回
	if len(p.ShotList) > 0 {
		log.Printf("[ShotListAgent] shot list already exists for project %s, skipping generation", p.ID)
		return p.ShotList, nil
	}

	storyboardJSON, err := json.Marshal(p.Storyboard)
	if err != nil {
		return nil, fmt.Errorf("marshal storyboard failed: %w", err)
	}

	text, err := a.client.GenerateContent(ctx, shotListPrompt+string(storyboardJSON), GenConfig{
		Temperature:     0.6,
		TopP:            0.95,
		MaxOutputTokens: 8000,
	})
	if err != nil {
		return nil, fmt.Errorf("shot list generation failed: %w", err)
	}

	var shots models.ShotEntryList
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &shots); err != nil {
		return nil, fmt.Errorf("failed to parse shot list JSON: %w", err)
	}
	if len(shots) == 0 {
		return nil, fmt.Errorf("shot list response contains no shots")
	}

	for i := range shots {
		if shots[i].ShotNumber == 0 {
			shots[i].ShotNumber = i + 1
		}
	}

	log.Printf("[ShotListAgent] generated %d shots for project %s", len(shots), p.ID)
	return shots, nil
}
