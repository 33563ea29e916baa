package service

import (
	"log"
	"sync"

	"Filmmaker-server/models"
)

// 事件类型
const (
	EventTypeProgress  = "progress"
	EventTypeError     = "error"
	EventTypeCompleted = "completed"
)

// Event is one real-time notification delivered to project observers.
type Event struct {
	Type      string                 `json:"type"`
	ProjectID string                 `json:"project_id"`
	Stage     models.Stage           `json:"stage,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Observer is one live subscription for a project's events.
type Observer struct {
	projectID string
	send      func(Event) error
}

// Hub fans state-change events out to the current observers of each
// project. Delivery is best-effort: an observer whose send fails is
// removed; nothing is buffered or retried, late subscribers only see
// future events.
type Hub struct {
	mu        sync.RWMutex
	observers map[string]map[*Observer]struct{}
}

func NewHub() *Hub {
	return &Hub{observers: make(map[string]map[*Observer]struct{})}
}

// Subscribe registers send as an observer of projectID. send may be
// invoked from publisher goroutines; it must be safe for that.
func (h *Hub) Subscribe(projectID string, send func(Event) error) *Observer {
	o := &Observer{projectID: projectID, send: send}
	h.mu.Lock()
	group, ok := h.observers[projectID]
	if !ok {
		group = make(map[*Observer]struct{})
		h.observers[projectID] = group
	}
	group[o] = struct{}{}
	h.mu.Unlock()
	return o
}

// Unsubscribe removes the observer; the last observer leaving a project
// releases the group's storage.
func (h *Hub) Unsubscribe(o *Observer) {
	if o == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(o)
}

func (h *Hub) removeLocked(o *Observer) {
	group, ok := h.observers[o.projectID]
	if !ok {
		return
	}
	delete(group, o)
	if len(group) == 0 {
		delete(h.observers, o.projectID)
	}
}

// Publish delivers ev to every current observer of projectID. The
// observer set is snapshotted before dispatch so subscribers arriving
// mid-publish are neither missed nor double-delivered.
func (h *Hub) Publish(projectID string, ev Event) {
	h.mu.RLock()
	group := h.observers[projectID]
	snapshot := make([]*Observer, 0, len(group))
	for o := range group {
		snapshot = append(snapshot, o)
	}
	h.mu.RUnlock()

	var failed []*Observer
	for _, o := range snapshot {
		if err := o.send(ev); err != nil {
			log.Printf("[Hub] send to observer failed: %v", err)
			failed = append(failed, o)
		}
	}

	if len(failed) > 0 {
		h.mu.Lock()
		for _, o := range failed {
			h.removeLocked(o)
		}
		h.mu.Unlock()
	}
}

// ObserverCount 当前项目的观察者数量
func (h *Hub) ObserverCount(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers[projectID])
}

// BroadcastProgress 推送阶段进度事件
func (h *Hub) BroadcastProgress(projectID string, stage models.Stage, status string, message string, data map[string]interface{}) {
	h.Publish(projectID, Event{
		Type:      EventTypeProgress,
		ProjectID: projectID,
		Stage:     stage,
		Status:    status,
		Message:   message,
		Data:      data,
	})
}

// SendError 推送错误事件
func (h *Hub) SendError(projectID string, errMsg string) {
	h.Publish(projectID, Event{
		Type:      EventTypeError,
		ProjectID: projectID,
		Error:     errMsg,
	})
}

// SendCompletion 推送完成事件
func (h *Hub) SendCompletion(projectID string) {
	h.Publish(projectID, Event{
		Type:      EventTypeCompleted,
		ProjectID: projectID,
		Message:   "Project completed successfully",
	})
}

// ProgressHub 全局通知中心（main 启动时即就绪）
var ProgressHub = NewHub()
