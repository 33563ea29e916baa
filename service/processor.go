package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"Filmmaker-server/config"

	"github.com/hibiken/asynq"
)

// Processor 消费流水线任务
type Processor struct {
	Pipeline *Pipeline
}

// NewProcessor wires the pipeline against the real store, classifier and
// generators.
func NewProcessor() *Processor {
	client := NewGeminiClient()
	store := NewGormStore()
	router := NewStageRouter(store, NewGeminiClassifier(client))
	imager := NewFrameImager()

	pipeline := NewPipeline(
		store,
		router,
		ProgressHub,
		NewScriptAgent(client),
		NewStoryboardAgent(client, imager),
		NewShotListAgent(client),
	)
	return &Processor{Pipeline: pipeline}
}

// StartProcessor 启动任务消费者
func (p *Processor) StartProcessor(concurrency int) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     config.AppConfig.Redis.Addr,
			Password: config.AppConfig.Redis.Password,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePipelineRun, p.HandlePipelineRun)

	log.Printf("Starting pipeline processor with concurrency %d...", concurrency)
	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("could not run server: %v", err)
		}
	}()
}

// HandlePipelineRun 核心处理逻辑
func (p *Processor) HandlePipelineRun(ctx context.Context, t *asynq.Task) error {
	var payload PipelineRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	log.Printf("Processing pipeline run: project=%s skip_script=%v", payload.ProjectID, payload.SkipScript)

	if err := p.Pipeline.Run(ctx, payload.ProjectID, payload.SkipScript); err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			// 项目不存在，重试无意义
			return fmt.Errorf("project %s not found: %w", payload.ProjectID, asynq.SkipRetry)
		}
		return err // 返回 err 触发重试
	}

	log.Printf("Pipeline run for project %s completed", payload.ProjectID)
	return nil
}
