package models

import (
	"database/sql"
	"log"
	"os"
	"strings"
	"time"

	"Filmmaker-server/config"

	_ "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *sql.DB
var GormDB *gorm.DB

func InitDB() {
	if config.AppConfig == nil {
		log.Fatal("config.AppConfig is nil, call config.InitConfig first")
	}
	dsn := config.AppConfig.MySQL.DSN
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	DB = db
	GormDB, err = gorm.Open(mysql.New(mysql.Config{
		Conn: DB,
	}), &gorm.Config{})
	if err != nil {
		log.Fatalf("GORM init failed: %v", err)
	}

	log.Println("database connected (Native SQL + GORM)")

	// 自动建表（读取 doc/sql/filmmaker.sql）
	b, err := os.ReadFile("doc/sql/filmmaker.sql")
	if err != nil {
		log.Printf("failed to read SQL file (skip schema bootstrap): %v", err)
		return
	}
	sqls := strings.Split(string(b), ";")
	for _, s := range sqls {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := DB.Exec(s); err != nil {
			log.Printf("failed to exec schema statement: %v ; sql: %s", err, s)
		}
	}
}

// Project CRUD
func CreateProject(p *Project) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = ProjectStatusCreated
	}
	if p.ScriptStage.Status == "" {
		p.ScriptStage = NewStageInfo()
	}
	if p.StoryboardStage.Status == "" {
		p.StoryboardStage = NewStageInfo()
	}
	if p.ShotListStage.Status == "" {
		p.ShotListStage = NewStageInfo()
	}
	return GormDB.Create(p).Error
}

func GetProjectByID(id string) (*Project, error) {
	var p Project
	if err := GormDB.First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func ListProjects() ([]Project, error) {
	var res []Project
	if err := GormDB.Order("created_at DESC").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

func DeleteProjectByID(id string) error {
	_, err := DB.Exec(`DELETE FROM project WHERE id = ?`, id)
	return err
}

func UpdateProjectStatus(id string, status string) error {
	return GormDB.Model(&Project{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}).Error
}

// UpdateProjectStage 更新某个阶段的状态（running 写入 started_at，done/failed 写入 completed_at）
func UpdateProjectStage(id string, stage Stage, status string, errMsg string) error {
	p, err := GetProjectByID(id)
	if err != nil {
		return err
	}
	info := p.StageInfoFor(stage)
	if info == nil {
		return gorm.ErrInvalidField
	}

	now := time.Now()
	info.Status = status
	switch status {
	case StageStatusRunning:
		info.StartedAt = &now
		info.CompletedAt = nil
		info.Error = ""
	case StageStatusDone, StageStatusFailed:
		info.CompletedAt = &now
	case StageStatusPending:
		info.StartedAt = nil
		info.CompletedAt = nil
		info.Error = ""
	}
	if errMsg != "" {
		info.Error = errMsg
	}

	return GormDB.Model(&Project{}).Where("id = ?", id).Updates(map[string]interface{}{
		stageColumn(stage): *info,
		"updated_at":       now,
	}).Error
}

func stageColumn(stage Stage) string {
	switch stage {
	case StageScript:
		return "script_stage"
	case StageStoryboard:
		return "storyboard_stage"
	default:
		return "shot_list_stage"
	}
}

func SaveClassification(id string, c Classification) error {
	return GormDB.Model(&Project{}).Where("id = ?", id).Updates(map[string]interface{}{
		"classification": c,
		"updated_at":     time.Now(),
	}).Error
}

func SaveScript(id string, script string) error {
	return GormDB.Model(&Project{}).Where("id = ?", id).Updates(map[string]interface{}{
		"script":     script,
		"updated_at": time.Now(),
	}).Error
}

// SaveStoryboard 保存分镜；frames 为 nil 时清空（触发重新生成）
func SaveStoryboard(id string, frames FrameList) error {
	return GormDB.Model(&Project{}).Where("id = ?", id).Updates(map[string]interface{}{
		"storyboard": frames,
		"updated_at": time.Now(),
	}).Error
}

// SaveShotList 保存分镜表；shots 为 nil 时清空
func SaveShotList(id string, shots ShotEntryList) error {
	return GormDB.Model(&Project{}).Where("id = ?", id).Updates(map[string]interface{}{
		"shot_list":  shots,
		"updated_at": time.Now(),
	}).Error
}
