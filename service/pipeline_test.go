package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"Filmmaker-server/models"
)

// ----------------------------------------------------------------------------
// In-memory fakes
// ----------------------------------------------------------------------------

type memStore struct {
	mu          sync.Mutex
	projects    map[string]*models.Project
	transitions []string // "<stage>:<status>" in write order
}

func newMemStore() *memStore {
	return &memStore{projects: make(map[string]*models.Project)}
}

func (s *memStore) put(p *models.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = cloneProject(p)
}

func cloneProject(p *models.Project) *models.Project {
	c := *p
	if p.Classification != nil {
		cl := *p.Classification
		c.Classification = &cl
	}
	c.Storyboard = append(models.FrameList(nil), p.Storyboard...)
	c.ShotList = append(models.ShotEntryList(nil), p.ShotList...)
	return &c
}

func (s *memStore) GetProject(id string) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	return cloneProject(p), nil
}

func (s *memStore) UpdateStatus(id string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return ErrProjectNotFound
	}
	p.Status = status
	return nil
}

func (s *memStore) UpdateStage(id string, stage models.Stage, status string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return ErrProjectNotFound
	}
	info := p.StageInfoFor(stage)
	now := time.Now()
	info.Status = status
	switch status {
	case models.StageStatusRunning:
		info.StartedAt = &now
		info.CompletedAt = nil
		info.Error = ""
	case models.StageStatusDone, models.StageStatusFailed:
		info.CompletedAt = &now
	case models.StageStatusPending:
		info.StartedAt = nil
		info.CompletedAt = nil
		info.Error = ""
	}
	if errMsg != "" {
		info.Error = errMsg
	}
	s.transitions = append(s.transitions, fmt.Sprintf("%s:%s", stage, status))
	return nil
}

func (s *memStore) SaveClassification(id string, c models.Classification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return ErrProjectNotFound
	}
	p.Classification = &c
	return nil
}

func (s *memStore) SaveScript(id string, script string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return ErrProjectNotFound
	}
	p.Script = script
	return nil
}

func (s *memStore) SaveStoryboard(id string, frames models.FrameList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return ErrProjectNotFound
	}
	p.Storyboard = frames
	return nil
}

func (s *memStore) SaveShotList(id string, shots models.ShotEntryList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return ErrProjectNotFound
	}
	p.ShotList = shots
	return nil
}

func (s *memStore) stageTransitions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.transitions...)
}

type fakeClassifier struct {
	result models.Classification
	script string
}

func (f *fakeClassifier) Classify(ctx context.Context, prompt string) (models.Classification, error) {
	return f.result, nil
}

func (f *fakeClassifier) ExtractSuppliedScript(prompt string) string {
	return f.script
}

type fakeScriptGen struct {
	content string
	err     error
	calls   int
}

func (g *fakeScriptGen) GenerateScript(ctx context.Context, p *models.Project) (string, error) {
	g.calls++
	if p.Script != "" {
		return p.Script, nil
	}
	if g.err != nil {
		return "", g.err
	}
	return g.content, nil
}

type fakeStoryboardGen struct {
	frames models.FrameList
	err    error
	calls  int
}

func (g *fakeStoryboardGen) GenerateStoryboard(ctx context.Context, p *models.Project) (models.FrameList, error) {
	g.calls++
	if p.Script == "" {
		return nil, errors.New("script is required to generate storyboard")
	}
	if len(p.Storyboard) > 0 {
		return p.Storyboard, nil
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.frames, nil
}

type fakeShotListGen struct {
	shots models.ShotEntryList
	err   error
	calls int
}

func (g *fakeShotListGen) GenerateShotList(ctx context.Context, p *models.Project) (models.ShotEntryList, error) {
	g.calls++
	if len(p.Storyboard) == 0 {
		return nil, errors.New("storyboard is required to generate shot list")
	}
	if len(p.ShotList) > 0 {
		return p.ShotList, nil
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.shots, nil
}

type testEnv struct {
	store      *memStore
	hub        *Hub
	script     *fakeScriptGen
	storyboard *fakeStoryboardGen
	shotList   *fakeShotListGen
	pipeline   *Pipeline
}

func newTestEnv(classification models.Classification) *testEnv {
	store := newMemStore()
	hub := NewHub()
	script := &fakeScriptGen{content: "FADE IN:\n\nINT. LAB - NIGHT\n\nFADE OUT."}
	storyboard := &fakeStoryboardGen{frames: models.FrameList{
		{FrameNumber: 1, Scene: "Opening", Description: "A lab at night", CameraAngle: "Wide Shot"},
		{FrameNumber: 2, Scene: "INT. LAB", Description: "Close on the machine", CameraAngle: "Close-Up"},
	}}
	shotList := &fakeShotListGen{shots: models.ShotEntryList{
		{ShotNumber: 1, Scene: "Opening", ShotType: "Wide Shot", CameraMovement: "Static", Duration: "5 seconds"},
		{ShotNumber: 2, Scene: "INT. LAB", ShotType: "Close-Up", CameraMovement: "Dolly", Duration: "3-4 seconds"},
	}}
	router := NewStageRouter(store, &fakeClassifier{result: classification})
	return &testEnv{
		store:      store,
		hub:        hub,
		script:     script,
		storyboard: storyboard,
		shotList:   shotList,
		pipeline:   NewPipeline(store, router, hub, script, storyboard, shotList),
	}
}

func newTestProject(id string) *models.Project {
	return &models.Project{
		ID:              id,
		Title:           "Test Project",
		UserPrompt:      "Write a script about robots",
		Status:          models.ProjectStatusCreated,
		ScriptStage:     models.NewStageInfo(),
		StoryboardStage: models.NewStageInfo(),
		ShotListStage:   models.NewStageInfo(),
	}
}

// collectEvents subscribes a recording observer to the hub.
func collectEvents(hub *Hub, projectID string) (*[]Event, *sync.Mutex) {
	var mu sync.Mutex
	events := &[]Event{}
	hub.Subscribe(projectID, func(ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		*events = append(*events, ev)
		return nil
	})
	return events, &mu
}

// ----------------------------------------------------------------------------
// Tests
// ----------------------------------------------------------------------------

func TestRunFullPipeline(t *testing.T) {
	env := newTestEnv(models.Classification{})
	env.store.put(newTestProject("p1"))
	events, evMu := collectEvents(env.hub, "p1")

	if err := env.pipeline.Run(context.Background(), "p1", false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	p, err := env.store.GetProject("p1")
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if p.Status != models.ProjectStatusCompleted {
		t.Errorf("expected status completed, got %s", p.Status)
	}
	if p.Script == "" || len(p.Storyboard) != 2 || len(p.ShotList) != 2 {
		t.Errorf("expected all content persisted, got script=%d chars, %d frames, %d shots",
			len(p.Script), len(p.Storyboard), len(p.ShotList))
	}
	for _, stage := range models.AllStages {
		info := p.StageInfoFor(stage)
		if info.Status != models.StageStatusDone {
			t.Errorf("stage %s: expected done, got %s", stage, info.Status)
		}
		if info.StartedAt == nil || info.CompletedAt == nil {
			t.Errorf("stage %s: expected timestamps set", stage)
		}
	}

	want := []string{
		"script:running", "script:done",
		"storyboard:running", "storyboard:done",
		"shot_list:running", "shot_list:done",
	}
	got := env.store.stageTransitions()
	if len(got) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transition %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	evMu.Lock()
	defer evMu.Unlock()
	if len(*events) != 7 {
		t.Fatalf("expected 7 events (6 progress + completion), got %d", len(*events))
	}
	last := (*events)[6]
	if last.Type != EventTypeCompleted {
		t.Errorf("expected final event type completed, got %s", last.Type)
	}
}

func TestRunProjectNotFound(t *testing.T) {
	env := newTestEnv(models.Classification{})

	err := env.pipeline.Run(context.Background(), "missing", false)
	if !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestRunFailureIsolation(t *testing.T) {
	env := newTestEnv(models.Classification{})
	env.storyboard.err = errors.New("model unavailable")
	env.store.put(newTestProject("p1"))
	events, evMu := collectEvents(env.hub, "p1")

	err := env.pipeline.Run(context.Background(), "p1", false)
	if err == nil {
		t.Fatal("expected run to fail")
	}

	p, _ := env.store.GetProject("p1")
	if p.Status != models.ProjectStatusFailed {
		t.Errorf("expected status failed, got %s", p.Status)
	}
	// stage 1 output survives the stage 2 failure
	if p.ScriptStage.Status != models.StageStatusDone || p.Script == "" {
		t.Errorf("expected script stage done with content, got %s (%d chars)", p.ScriptStage.Status, len(p.Script))
	}
	if p.StoryboardStage.Status != models.StageStatusFailed {
		t.Errorf("expected storyboard stage failed, got %s", p.StoryboardStage.Status)
	}
	if p.StoryboardStage.Error == "" {
		t.Error("expected storyboard stage error recorded")
	}
	// remaining sequence aborted
	if env.shotList.calls != 0 {
		t.Errorf("expected shot list generator not invoked, got %d calls", env.shotList.calls)
	}
	if p.ShotListStage.Status != models.StageStatusPending {
		t.Errorf("expected shot list stage still pending, got %s", p.ShotListStage.Status)
	}

	evMu.Lock()
	defer evMu.Unlock()
	last := (*events)[len(*events)-1]
	if last.Type != EventTypeError {
		t.Errorf("expected final event type error, got %s", last.Type)
	}
}

func TestRunIdempotentOnCompletedProject(t *testing.T) {
	env := newTestEnv(models.Classification{})
	env.store.put(newTestProject("p1"))

	if err := env.pipeline.Run(context.Background(), "p1", false); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	first, _ := env.store.GetProject("p1")

	if err := env.pipeline.Run(context.Background(), "p1", false); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	second, _ := env.store.GetProject("p1")

	// generators see existing content and return it unchanged
	if second.Script != first.Script {
		t.Error("expected script unchanged after re-run")
	}
	if len(second.Storyboard) != len(first.Storyboard) || len(second.ShotList) != len(first.ShotList) {
		t.Error("expected storyboard/shot list unchanged after re-run")
	}
	if second.Status != models.ProjectStatusCompleted {
		t.Errorf("expected status completed, got %s", second.Status)
	}
}

func TestRunSkipScript(t *testing.T) {
	env := newTestEnv(models.Classification{})
	p := newTestProject("p1")
	// a manually edited script is already present; downstream was invalidated
	p.Script = "FADE IN:\n\nEXT. BEACH - DAY\n\nFADE OUT."
	p.ScriptStage.Status = models.StageStatusDone
	env.store.put(p)

	if err := env.pipeline.Run(context.Background(), "p1", true); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if env.script.calls != 0 {
		t.Errorf("expected script generator not invoked, got %d calls", env.script.calls)
	}
	got, _ := env.store.GetProject("p1")
	if got.Script != p.Script {
		t.Error("expected edited script untouched")
	}
	if len(got.Storyboard) == 0 || len(got.ShotList) == 0 {
		t.Error("expected downstream stages regenerated")
	}
	if got.Status != models.ProjectStatusCompleted {
		t.Errorf("expected status completed, got %s", got.Status)
	}
}

func TestRunSuppliedScriptResumesMidChain(t *testing.T) {
	env := newTestEnv(models.Classification{Script: true})
	p := newTestProject("p1")
	p.UserPrompt = "Here's my script: FADE IN: INT. HOUSE - DAY ... FADE OUT."
	env.store.put(p)
	// the classifier extracted the supplied script
	env.pipeline.router.classifier.(*fakeClassifier).script = "FADE IN: INT. HOUSE - DAY ... FADE OUT."

	if err := env.pipeline.Run(context.Background(), "p1", false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if env.script.calls != 0 {
		t.Errorf("expected script generator not invoked for supplied script, got %d calls", env.script.calls)
	}
	got, _ := env.store.GetProject("p1")
	if got.ScriptStage.Status != models.StageStatusDone {
		t.Errorf("expected supplied script stage done, got %s", got.ScriptStage.Status)
	}
	if got.Status != models.ProjectStatusCompleted {
		t.Errorf("expected status completed, got %s", got.Status)
	}
}
