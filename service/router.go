package service

import (
	"context"
	"log"

	"Filmmaker-server/models"
)

// Classifier decides what content the user already supplied, from the
// free-text prompt alone.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (models.Classification, error)
	ExtractSuppliedScript(prompt string) string
}

// StageRouter computes which stages must run for a project and records
// user-supplied stages as already done.
type StageRouter struct {
	store      ProjectStore
	classifier Classifier
}

func NewStageRouter(store ProjectStore, classifier Classifier) *StageRouter {
	return &StageRouter{store: store, classifier: classifier}
}

// Sequence returns the ordered stage list for a classification.
// 反向逻辑：true = 用户已提供，跳过生成；false = 需要生成。
// The result is duplicate-free and respects the dependency chain by
// construction.
func Sequence(c models.Classification) []models.Stage {
	var seq []models.Stage

	if !c.Script {
		seq = append(seq, models.StageScript)
	}

	if !c.Storyboard {
		// its dependency holds: script is either in seq or user-supplied
		seq = append(seq, models.StageStoryboard)
	}

	if !c.ShotList {
		// defend against shot list requested without storyboard
		if !contains(seq, models.StageStoryboard) && !c.Storyboard {
			seq = append(seq, models.StageStoryboard)
		}
		seq = append(seq, models.StageShotList)
	}

	return seq
}

func contains(seq []models.Stage, s models.Stage) bool {
	for _, v := range seq {
		if v == s {
			return true
		}
	}
	return false
}

// ClassifyAndRoute classifies the project's prompt, saves user-supplied
// content, marks supplied stages done, persists the classification and
// returns it together with the ordered stage list.
func (r *StageRouter) ClassifyAndRoute(ctx context.Context, project *models.Project) (models.Classification, []models.Stage, error) {
	classification, err := r.classifier.Classify(ctx, project.UserPrompt)
	if err != nil {
		return models.Classification{}, nil, err
	}

	// 用户已提供剧本：提取并入库，阶段直接标记 done
	if classification.Script {
		if script := r.classifier.ExtractSuppliedScript(project.UserPrompt); script != "" {
			log.Printf("[Router] saving user-provided script for project %s", project.ID)
			if err := r.store.SaveScript(project.ID, script); err != nil {
				return classification, nil, err
			}
		}
		if err := r.store.UpdateStage(project.ID, models.StageScript, models.StageStatusDone, ""); err != nil {
			return classification, nil, err
		}
	}

	if classification.Storyboard {
		if err := r.store.UpdateStage(project.ID, models.StageStoryboard, models.StageStatusDone, ""); err != nil {
			return classification, nil, err
		}
	}

	if classification.ShotList {
		if err := r.store.UpdateStage(project.ID, models.StageShotList, models.StageStatusDone, ""); err != nil {
			return classification, nil, err
		}
	}

	if err := r.store.SaveClassification(project.ID, classification); err != nil {
		return classification, nil, err
	}

	return classification, Sequence(classification), nil
}
