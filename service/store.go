package service

import (
	"errors"

	"Filmmaker-server/models"

	"gorm.io/gorm"
)

// ErrProjectNotFound 请求的项目不存在
var ErrProjectNotFound = errors.New("project not found")

// ProjectStore is the persistence boundary the pipeline works against.
// Writes are last-write-wins on the project row; there is no optimistic
// concurrency token.
type ProjectStore interface {
	GetProject(id string) (*models.Project, error)
	UpdateStatus(id string, status string) error
	UpdateStage(id string, stage models.Stage, status string, errMsg string) error
	SaveClassification(id string, c models.Classification) error
	SaveScript(id string, script string) error
	SaveStoryboard(id string, frames models.FrameList) error
	SaveShotList(id string, shots models.ShotEntryList) error
}

// GormStore backs ProjectStore with the models package (MySQL via GORM).
type GormStore struct{}

func NewGormStore() *GormStore {
	return &GormStore{}
}

func (s *GormStore) GetProject(id string) (*models.Project, error) {
	p, err := models.GetProjectByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *GormStore) UpdateStatus(id string, status string) error {
	return models.UpdateProjectStatus(id, status)
}

func (s *GormStore) UpdateStage(id string, stage models.Stage, status string, errMsg string) error {
	return models.UpdateProjectStage(id, stage, status, errMsg)
}

func (s *GormStore) SaveClassification(id string, c models.Classification) error {
	return models.SaveClassification(id, c)
}

func (s *GormStore) SaveScript(id string, script string) error {
	return models.SaveScript(id, script)
}

func (s *GormStore) SaveStoryboard(id string, frames models.FrameList) error {
	return models.SaveStoryboard(id, frames)
}

func (s *GormStore) SaveShotList(id string, shots models.ShotEntryList) error {
	return models.SaveShotList(id, shots)
}
