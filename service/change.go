package service

import (
	"fmt"
	"log"
	"math"
	"strings"
)

// 判定阈值
const (
	minChangePercentage     = 3.0  // 低于 3% 的改动直接判定为不重新生成
	fallbackRegenPercentage = 15.0 // 启发式：超过 15% 视为重大改动
	judgeScriptCharBudget   = 4000 // 送审文本上限
	diffSummaryLineBudget   = 10   // 摘要中展示的增删行数上限
)

// sceneMarkers 场景级改动的关键词（命中即判定需要重新生成）
var sceneMarkers = []string{"INT.", "EXT.", "FADE IN", "FADE OUT", "CUT TO"}

// DiffInfo summarizes a line-level diff between two scripts.
type DiffInfo struct {
	AddedLines       []string
	RemovedLines     []string
	TotalChanges     int
	ChangePercentage float64
	OldLength        int
	NewLength        int
}

// ChangeAnalysis is the regeneration decision for a script edit.
type ChangeAnalysis struct {
	ShouldRegenerate     bool    `json:"should_regenerate"`
	RegenerateStoryboard bool    `json:"regenerate_storyboard"`
	RegenerateShotList   bool    `json:"regenerate_shot_list"`
	Reason               string  `json:"reason"`
	ChangeSummary        string  `json:"change_summary"`
	ChangePercentage     float64 `json:"change_percentage"`
}

// SemanticJudge decides whether an edit is significant enough to
// invalidate downstream stages. Implementations call an external model;
// any error means "judge unavailable" and the caller falls back to the
// heuristic.
type SemanticJudge interface {
	JudgeSignificance(oldScript, newScript, diffSummary string) (*ChangeAnalysis, error)
}

// ChangeEvaluator is a pure decision function over two script versions;
// it never mutates persisted state.
type ChangeEvaluator struct {
	judge SemanticJudge
}

func NewChangeEvaluator(judge SemanticJudge) *ChangeEvaluator {
	return &ChangeEvaluator{judge: judge}
}

// CalculateDiff computes added/removed line sets between two scripts and
// the change percentage relative to the longer version.
func CalculateDiff(oldScript, newScript string) DiffInfo {
	oldLines := splitLines(oldScript)
	newLines := splitLines(newScript)

	added, removed := diffLines(oldLines, newLines)

	total := len(oldLines)
	if len(newLines) > total {
		total = len(newLines)
	}
	changed := len(added) + len(removed)
	percentage := 0.0
	if total > 0 {
		percentage = float64(changed) / float64(total) * 100
	}

	return DiffInfo{
		AddedLines:       added,
		RemovedLines:     removed,
		TotalChanges:     changed,
		ChangePercentage: math.Round(percentage*100) / 100,
		OldLength:        len(oldLines),
		NewLength:        len(newLines),
	}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// diffLines 基于最长公共子序列求增删行
func diffLines(oldLines, newLines []string) (added, removed []string) {
	n, m := len(oldLines), len(newLines)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if oldLines[i] == newLines[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	i, j := 0, 0
	for i < n && j < m {
		switch {
		case oldLines[i] == newLines[j]:
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			removed = append(removed, oldLines[i])
			i++
		default:
			added = append(added, newLines[j])
			j++
		}
	}
	for ; i < n; i++ {
		removed = append(removed, oldLines[i])
	}
	for ; j < m; j++ {
		added = append(added, newLines[j])
	}
	return added, removed
}

// Evaluate decides whether the edit from oldScript to newScript requires
// regenerating downstream stages. Below the minimum threshold it
// short-circuits without consulting the judge; when the judge is
// unavailable or returns garbage the deterministic heuristic decides.
func (e *ChangeEvaluator) Evaluate(oldScript, newScript string) ChangeAnalysis {
	diff := CalculateDiff(oldScript, newScript)

	log.Printf("[Change] +%d/-%d lines, %.2f%% changed",
		len(diff.AddedLines), len(diff.RemovedLines), diff.ChangePercentage)

	if diff.ChangePercentage < minChangePercentage {
		return ChangeAnalysis{
			ShouldRegenerate:     false,
			RegenerateStoryboard: false,
			RegenerateShotList:   false,
			Reason:               "changes below minimum significance threshold (< 3% of script modified)",
			ChangeSummary:        "Minimal edits detected",
			ChangePercentage:     diff.ChangePercentage,
		}
	}

	if e.judge != nil {
		analysis, err := e.judge.JudgeSignificance(
			truncate(oldScript, judgeScriptCharBudget),
			truncate(newScript, judgeScriptCharBudget),
			diffSummary(diff),
		)
		if err == nil && analysis != nil {
			analysis.ChangePercentage = diff.ChangePercentage
			log.Printf("[Change] judge decision: regenerate=%v (%s)", analysis.ShouldRegenerate, analysis.Reason)
			return *analysis
		}
		log.Printf("[Change] semantic judge unavailable, using heuristic: %v", err)
	}

	return fallbackAnalysis(diff)
}

// fallbackAnalysis 确定性启发式：>15% 或出现场景级关键词即重新生成
func fallbackAnalysis(diff DiffInfo) ChangeAnalysis {
	shouldRegenerate := diff.ChangePercentage > fallbackRegenPercentage

	addedText := strings.ToUpper(strings.Join(diff.AddedLines, " "))
	removedText := strings.ToUpper(strings.Join(diff.RemovedLines, " "))

	hasSceneChanges := false
	for _, marker := range sceneMarkers {
		if strings.Contains(addedText, marker) || strings.Contains(removedText, marker) {
			hasSceneChanges = true
			break
		}
	}

	var reason string
	switch {
	case hasSceneChanges:
		shouldRegenerate = true
		reason = "Scene-level changes detected (INT/EXT headers, scene transitions)"
	case shouldRegenerate:
		reason = fmt.Sprintf("Substantial changes (%.2f%% of script modified)", diff.ChangePercentage)
	default:
		reason = fmt.Sprintf("Minor changes (%.2f%% of script modified)", diff.ChangePercentage)
	}

	return ChangeAnalysis{
		ShouldRegenerate:     shouldRegenerate,
		RegenerateStoryboard: shouldRegenerate,
		RegenerateShotList:   shouldRegenerate,
		Reason:               reason,
		ChangeSummary:        fmt.Sprintf("Fallback analysis: %d lines changed", diff.TotalChanges),
		ChangePercentage:     diff.ChangePercentage,
	}
}

func diffSummary(diff DiffInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Added content (%d lines):\n%s\n", len(diff.AddedLines), joinHead(diff.AddedLines, diffSummaryLineBudget))
	fmt.Fprintf(&b, "Removed content (%d lines):\n%s\n", len(diff.RemovedLines), joinHead(diff.RemovedLines, diffSummaryLineBudget))
	fmt.Fprintf(&b, "Overall: %.2f%% of script modified", diff.ChangePercentage)
	return b.String()
}

func joinHead(lines []string, n int) string {
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:n], "\n") + "\n..."
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
