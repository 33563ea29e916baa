package service

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"Filmmaker-server/config"

	"github.com/hibiken/asynq"
)

const (
	TypePipelineRun = "pipeline:run"
)

// PipelineRunPayload 流水线任务载荷
type PipelineRunPayload struct {
	ProjectID  string `json:"project_id"`
	SkipScript bool   `json:"skip_script"`
}

var QueueClient *asynq.Client

// InitQueue 初始化
func InitQueue() {
	QueueClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.Redis.Addr,
		Password: config.AppConfig.Redis.Password,
	})
}

// EnqueuePipelineRun queues one pipeline run for a project. Each run
// executes as an independent worker task, so many projects progress in
// parallel while each project's stages stay sequential.
func EnqueuePipelineRun(projectID string, skipScript bool) error {
	payload, err := json.Marshal(PipelineRunPayload{ProjectID: projectID, SkipScript: skipScript})
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(TypePipelineRun, payload,
		asynq.MaxRetry(3),             // 失败重试 3 次（已完成阶段会被生成器原样跳过）
		asynq.Timeout(30*time.Minute), // 多次模型调用较慢，设置较长超时
		asynq.Retention(24*time.Hour), // 任务结果在 Redis 保留时间
	)

	info, err := QueueClient.Enqueue(task)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}

	log.Printf("[Queue] pipeline run enqueued: project=%s skip_script=%v task=%s", projectID, skipScript, info.ID)
	return nil
}
