package routers

import (
	"Filmmaker-server/routers/api"

	"github.com/gin-gonic/gin"
)

func InitRouter() *gin.Engine {
	r := gin.Default()
	v1 := r.Group("/v1/api")
	{
		v1.POST("/projects", api.CreateProject)
		v1.GET("/projects", api.ListProjects)
		v1.GET("/projects/:project_id", api.GetProject)
		v1.DELETE("/projects/:project_id", api.DeleteProject)
		v1.POST("/projects/:project_id/run", api.RunProject)
		v1.PUT("/projects/:project_id/script", api.UpdateScript)
	}
	r.GET("/ws/projects/:project_id", api.ProjectProgressWebSocket)
	r.GET("/health", api.HealthCheck)
	return r
}
