package service

import (
	"context"
	"fmt"
	"log"

	"Filmmaker-server/models"
)

// Generator contracts. Each generator returns pre-existing content
// unchanged instead of recomputing it (generator-local idempotence); the
// pipeline does not special-case completed stages.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, p *models.Project) (string, error)
}

type StoryboardGenerator interface {
	GenerateStoryboard(ctx context.Context, p *models.Project) (models.FrameList, error)
}

type ShotListGenerator interface {
	GenerateShotList(ctx context.Context, p *models.Project) (models.ShotEntryList, error)
}

// Pipeline drives the per-project stage state machine: route, then run
// the stages in order, persisting each result before the next stage
// starts. Stages within one run are strictly sequential; distinct
// projects run concurrently as independent queue tasks.
//
// Run is not serialized per project: two concurrent runs on the same
// project race on the store (last write wins). The change-detection flow
// can legitimately re-enqueue a run while an earlier one is in flight.
type Pipeline struct {
	store      ProjectStore
	router     *StageRouter
	hub        *Hub
	script     ScriptGenerator
	storyboard StoryboardGenerator
	shotList   ShotListGenerator
}

func NewPipeline(store ProjectStore, router *StageRouter, hub *Hub,
	script ScriptGenerator, storyboard StoryboardGenerator, shotList ShotListGenerator) *Pipeline {
	return &Pipeline{
		store:      store,
		router:     router,
		hub:        hub,
		script:     script,
		storyboard: storyboard,
		shotList:   shotList,
	}
}

// Run executes the stage list for one project. skipScript drops the
// script stage from the routed sequence (used after a manual script edit
// where only downstream stages were invalidated). A stage failure aborts
// the remaining sequence and settles the project as failed; content
// persisted by earlier stages is untouched.
func (pl *Pipeline) Run(ctx context.Context, projectID string, skipScript bool) error {
	project, err := pl.store.GetProject(projectID)
	if err != nil {
		return err
	}

	if err := pl.store.UpdateStatus(projectID, models.ProjectStatusProcessing); err != nil {
		return err
	}

	_, sequence, err := pl.router.ClassifyAndRoute(ctx, project)
	if err != nil {
		if stErr := pl.store.UpdateStatus(projectID, models.ProjectStatusFailed); stErr != nil {
			log.Printf("[Pipeline] failed to mark project %s failed: %v", projectID, stErr)
		}
		pl.hub.SendError(projectID, err.Error())
		return err
	}

	if skipScript {
		sequence = removeStage(sequence, models.StageScript)
		log.Printf("[Pipeline] skipping script stage for project %s (manually edited)", projectID)
	}

	log.Printf("[Pipeline] project %s stage sequence: %v", projectID, sequence)

	for _, stage := range sequence {
		// 每个阶段前重新加载项目，保证读到上一阶段已落库的产物
		project, err = pl.store.GetProject(projectID)
		if err != nil {
			return err
		}

		if err := pl.runStage(ctx, project, stage); err != nil {
			if stErr := pl.store.UpdateStatus(projectID, models.ProjectStatusFailed); stErr != nil {
				log.Printf("[Pipeline] failed to mark project %s failed: %v", projectID, stErr)
			}
			pl.hub.SendError(projectID, err.Error())
			return err
		}
	}

	if err := pl.store.UpdateStatus(projectID, models.ProjectStatusCompleted); err != nil {
		return err
	}
	pl.hub.SendCompletion(projectID)
	log.Printf("[Pipeline] completed for project %s", projectID)
	return nil
}

func (pl *Pipeline) runStage(ctx context.Context, project *models.Project, stage models.Stage) error {
	projectID := project.ID

	if err := pl.store.UpdateStage(projectID, stage, models.StageStatusRunning, ""); err != nil {
		return err
	}
	pl.hub.BroadcastProgress(projectID, stage, models.StageStatusRunning, runningMessage(stage), nil)

	content, genErr := pl.generate(ctx, project, stage)
	if genErr == nil {
		genErr = pl.persist(projectID, stage, content)
	}

	if genErr != nil {
		log.Printf("[Pipeline] stage %s failed for project %s: %v", stage, projectID, genErr)
		if err := pl.store.UpdateStage(projectID, stage, models.StageStatusFailed, genErr.Error()); err != nil {
			log.Printf("[Pipeline] failed to record stage failure: %v", err)
		}
		pl.hub.BroadcastProgress(projectID, stage, models.StageStatusFailed, "Error: "+genErr.Error(), nil)
		return fmt.Errorf("stage %s: %w", stage, genErr)
	}

	if err := pl.store.UpdateStage(projectID, stage, models.StageStatusDone, ""); err != nil {
		return err
	}
	pl.hub.BroadcastProgress(projectID, stage, models.StageStatusDone, doneMessage(stage), nil)
	return nil
}

// generate invokes the stage's generator against the freshly loaded
// project snapshot.
func (pl *Pipeline) generate(ctx context.Context, project *models.Project, stage models.Stage) (interface{}, error) {
	switch stage {
	case models.StageScript:
		return pl.script.GenerateScript(ctx, project)
	case models.StageStoryboard:
		return pl.storyboard.GenerateStoryboard(ctx, project)
	case models.StageShotList:
		return pl.shotList.GenerateShotList(ctx, project)
	}
	return nil, fmt.Errorf("unknown stage: %s", stage)
}

func (pl *Pipeline) persist(projectID string, stage models.Stage, content interface{}) error {
	switch stage {
	case models.StageScript:
		return pl.store.SaveScript(projectID, content.(string))
	case models.StageStoryboard:
		return pl.store.SaveStoryboard(projectID, content.(models.FrameList))
	case models.StageShotList:
		return pl.store.SaveShotList(projectID, content.(models.ShotEntryList))
	}
	return fmt.Errorf("unknown stage: %s", stage)
}

func removeStage(seq []models.Stage, stage models.Stage) []models.Stage {
	out := seq[:0]
	for _, s := range seq {
		if s != stage {
			out = append(out, s)
		}
	}
	return out
}

func runningMessage(stage models.Stage) string {
	switch stage {
	case models.StageScript:
		return "Generating script..."
	case models.StageStoryboard:
		return "Generating storyboard..."
	default:
		return "Generating shot list..."
	}
}

func doneMessage(stage models.Stage) string {
	switch stage {
	case models.StageScript:
		return "Script generated"
	case models.StageStoryboard:
		return "Storyboard generated"
	default:
		return "Shot list generated"
	}
}
