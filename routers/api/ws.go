package api

import (
	"log"
	"net/http"
	"sync"

	"Filmmaker-server/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// 项目进度 WebSocket 推送：GET /ws/projects/:project_id
// 连接期间订阅通知中心；流水线的阶段状态变化实时推送到所有在线
// 连接。断开或写失败即取消订阅，错过的事件不补发（落库状态才是
// 持久记录）。
func ProjectProgressWebSocket(c *gin.Context) {
	projectID := c.Param("project_id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "websocket upgrade failed"})
		return
	}
	defer conn.Close()

	// Hub 的 publish 和心跳回复可能并发写同一连接
	var writeMu sync.Mutex

	observer := service.ProgressHub.Subscribe(projectID, func(ev service.Event) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(ev)
	})
	defer service.ProgressHub.Unsubscribe(observer)

	log.Printf("[WS] observer connected for project %s", projectID)

	// 读循环：处理 ping 心跳，连接关闭时退出
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if string(msg) == "ping" {
			writeMu.Lock()
			err = conn.WriteMessage(websocket.TextMessage, []byte("pong"))
			writeMu.Unlock()
			if err != nil {
				break
			}
		}
	}

	log.Printf("[WS] observer disconnected for project %s", projectID)
}
