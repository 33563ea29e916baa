package api

import (
	"log"
	"net/http"
	"time"

	"Filmmaker-server/models"
	"Filmmaker-server/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 创建项目
func CreateProject(c *gin.Context) {
	var req struct {
		UserPrompt string `json:"user_prompt" binding:"required"`
		Title      string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	title := req.Title
	if title == "" {
		title = "Project " + time.Now().Format("2006-01-02 15:04")
	}

	project := models.Project{
		ID:              uuid.NewString(),
		Title:           title,
		UserPrompt:      req.UserPrompt,
		Status:          models.ProjectStatusCreated,
		ScriptStage:     models.NewStageInfo(),
		StoryboardStage: models.NewStageInfo(),
		ShotListStage:   models.NewStageInfo(),
	}

	if err := models.CreateProject(&project); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create project: " + err.Error()})
		return
	}

	log.Printf("created project %s", project.ID)
	c.JSON(http.StatusOK, gin.H{"project": project})
}

// 获取项目详情
func GetProject(c *gin.Context) {
	projectID := c.Param("project_id")

	project, err := models.GetProjectByID(projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project})
}

// 项目列表
func ListProjects(c *gin.Context) {
	projects, err := models.ListProjects()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list projects: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// 删除项目
func DeleteProject(c *gin.Context) {
	projectID := c.Param("project_id")

	if err := models.DeleteProjectByID(projectID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete project: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"deleteAt": time.Now(),
	})
}

// 启动流水线：POST /v1/api/projects/:project_id/run
func RunProject(c *gin.Context) {
	projectID := c.Param("project_id")

	var req struct {
		ForceRerun bool `json:"force_rerun"`
	}
	// body 可为空
	_ = c.ShouldBindJSON(&req)

	project, err := models.GetProjectByID(projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found: " + err.Error()})
		return
	}

	if project.Status == models.ProjectStatusCompleted && !req.ForceRerun {
		c.JSON(http.StatusOK, gin.H{
			"message":    "Project already completed",
			"project_id": projectID,
		})
		return
	}

	if err := service.EnqueuePipelineRun(projectID, false); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue pipeline: " + err.Error()})
		return
	}

	log.Printf("started pipeline for project %s", projectID)
	c.JSON(http.StatusOK, gin.H{
		"message":    "Pipeline started",
		"project_id": projectID,
	})
}

// 更新剧本：PUT /v1/api/projects/:project_id/script
// 保存新剧本；若与旧剧本差异显著，则使下游阶段失效并触发部分重跑
// （跳过剧本阶段）。
func UpdateScript(c *gin.Context) {
	projectID := c.Param("project_id")

	var req struct {
		Script string `json:"script" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := models.GetProjectByID(projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found: " + err.Error()})
		return
	}

	oldScript := project.Script
	newScript := req.Script

	// 没有旧剧本：直接保存，无需比较
	if oldScript == "" {
		if err := models.SaveScript(projectID, newScript); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save script: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":           "Script saved successfully",
			"project_id":        projectID,
			"should_regenerate": false,
			"reason":            "No previous script to compare",
		})
		return
	}

	analysis := service.Evaluator.Evaluate(oldScript, newScript)

	if err := models.SaveScript(projectID, newScript); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save script: " + err.Error()})
		return
	}
	log.Printf("script updated for project %s (%.2f%% changed)", projectID, analysis.ChangePercentage)

	if !analysis.ShouldRegenerate {
		c.JSON(http.StatusOK, gin.H{
			"message":           "Script updated (no regeneration needed)",
			"project_id":        projectID,
			"should_regenerate": false,
			"reason":            analysis.Reason,
			"change_summary":    analysis.ChangeSummary,
			"change_percentage": analysis.ChangePercentage,
		})
		return
	}

	// 失效处理：清空下游产物并把阶段置回 pending，再以 skip_script 模式重跑
	if analysis.RegenerateStoryboard {
		if err := invalidateStage(projectID, models.StageStoryboard); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to invalidate storyboard: " + err.Error()})
			return
		}
	}
	if analysis.RegenerateShotList {
		if err := invalidateStage(projectID, models.StageShotList); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to invalidate shot list: " + err.Error()})
			return
		}
	}

	if err := service.EnqueuePipelineRun(projectID, true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue pipeline: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":               "Script updated and regeneration started",
		"project_id":            projectID,
		"should_regenerate":     true,
		"regenerate_storyboard": analysis.RegenerateStoryboard,
		"regenerate_shot_list":  analysis.RegenerateShotList,
		"reason":                analysis.Reason,
		"change_summary":        analysis.ChangeSummary,
		"change_percentage":     analysis.ChangePercentage,
	})
}

// invalidateStage 清空阶段产物并重置为 pending
func invalidateStage(projectID string, stage models.Stage) error {
	var err error
	switch stage {
	case models.StageStoryboard:
		err = models.SaveStoryboard(projectID, nil)
	case models.StageShotList:
		err = models.SaveShotList(projectID, nil)
	default:
		return gorm.ErrInvalidField
	}
	if err != nil {
		return err
	}
	return models.UpdateProjectStage(projectID, stage, models.StageStatusPending, "")
}

// 健康检查
func HealthCheck(c *gin.Context) {
	if models.DB == nil || models.DB.Ping() != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "disconnected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "connected"})
}
