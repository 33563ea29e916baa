package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// 项目状态常量（用于在业务层统一描述项目进度）
const (
	ProjectStatusCreated    = "created"    // 项目已创建，未开始任何生成任务
	ProjectStatusProcessing = "processing" // 流水线执行中
	ProjectStatusCompleted  = "completed"  // 所有计划阶段完成
	ProjectStatusFailed     = "failed"     // 某个阶段失败，流水线中止
)

// Classification records what the user ALREADY HAS (inverse logic):
// true = user supplied it, do not regenerate; false = generate it.
type Classification struct {
	Script     bool `json:"script"`
	Storyboard bool `json:"storyboard"`
	ShotList   bool `json:"shot_list"`
}

func (c Classification) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *Classification) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, c)
}

// Frame 分镜画面
type Frame struct {
	FrameNumber int    `json:"frame_number"`
	Scene       string `json:"scene"`
	Description string `json:"description"`
	CameraAngle string `json:"camera_angle"`
	Dialogue    string `json:"dialogue,omitempty"`
	Notes       string `json:"notes,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type FrameList []Frame

func (l FrameList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *FrameList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, l)
}

// ShotEntry 技术分镜表条目
type ShotEntry struct {
	ShotNumber     int      `json:"shot_number"`
	Scene          string   `json:"scene"`
	ShotType       string   `json:"shot_type"`
	CameraMovement string   `json:"camera_movement"`
	Description    string   `json:"description"`
	Duration       string   `json:"duration"`
	Equipment      []string `json:"equipment,omitempty"`
	Lens           string   `json:"lens,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

type ShotEntryList []ShotEntry

func (l ShotEntryList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *ShotEntryList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, l)
}

type Project struct {
	ID             string          `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title          string          `json:"title"`
	UserPrompt     string          `json:"userPrompt"`
	Status         string          `json:"status"`
	Classification *Classification `gorm:"type:json" json:"classification"`

	ScriptStage     StageInfo `gorm:"type:json" json:"scriptStage"`
	StoryboardStage StageInfo `gorm:"type:json" json:"storyboardStage"`
	ShotListStage   StageInfo `gorm:"type:json" json:"shotListStage"`

	Script     string        `gorm:"type:longtext" json:"script"`
	Storyboard FrameList     `gorm:"type:json" json:"storyboard"`
	ShotList   ShotEntryList `gorm:"type:json" json:"shotList"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Project) TableName() string {
	return "project"
}

// StageInfoFor returns the record tracking the given stage.
func (p *Project) StageInfoFor(stage Stage) *StageInfo {
	switch stage {
	case StageScript:
		return &p.ScriptStage
	case StageStoryboard:
		return &p.StoryboardStage
	case StageShotList:
		return &p.ShotListStage
	}
	return nil
}

// HasContent reports whether the stage's content payload is non-empty.
func (p *Project) HasContent(stage Stage) bool {
	switch stage {
	case StageScript:
		return p.Script != ""
	case StageStoryboard:
		return len(p.Storyboard) > 0
	case StageShotList:
		return len(p.ShotList) > 0
	}
	return false
}
