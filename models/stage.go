package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Stage is one of the three ordered generation steps. The dependency chain
// is fixed: shot_list depends on storyboard, storyboard depends on script.
type Stage string

const (
	StageScript     Stage = "script"
	StageStoryboard Stage = "storyboard"
	StageShotList   Stage = "shot_list"
)

// AllStages lists the stages in dependency order.
var AllStages = []Stage{StageScript, StageStoryboard, StageShotList}

// Dependency returns the stage that must be done before s, if any.
func (s Stage) Dependency() (Stage, bool) {
	switch s {
	case StageStoryboard:
		return StageScript, true
	case StageShotList:
		return StageStoryboard, true
	default:
		return "", false
	}
}

func (s Stage) Valid() bool {
	switch s {
	case StageScript, StageStoryboard, StageShotList:
		return true
	}
	return false
}

// 阶段状态
const (
	StageStatusPending = "pending"
	StageStatusRunning = "running"
	StageStatusDone    = "done"
	StageStatusFailed  = "failed"
)

// StageInfo tracks one stage of a project. Stored as a JSON column.
type StageInfo struct {
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func NewStageInfo() StageInfo {
	return StageInfo{Status: StageStatusPending}
}

func (i StageInfo) Value() (driver.Value, error) {
	return json.Marshal(i)
}

func (i *StageInfo) Scan(value interface{}) error {
	if value == nil {
		*i = NewStageInfo()
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, i)
}
