package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/prepdesk/prepdesk/internal/ai"
	"github.com/prepdesk/prepdesk/internal/generator"
	"github.com/prepdesk/prepdesk/internal/httpapi"
	"github.com/prepdesk/prepdesk/internal/learnpath"
)

func seedStore() *learnpath.MemoryStore {
	lp1 := "LP1"
	return learnpath.NewMemoryStore(
		[]learnpath.Student{
			{ID: "S1", Name: "Abhishek", Email: "abhishek@example.com", AssignedLearningPathID: &lp1},
			{ID: "S2", Name: "Srinivas", Email: "srinivas@example.com"},
			{ID: "S3", Name: "HariCharan", Email: "haricharan@example.com"},
		},
		[]learnpath.LearningPath{{
			ID:             "LP1",
			Company:        "Innovate Inc.",
			JobDescription: "Frontend role",
			Topics: map[string][]learnpath.Topic{
				"DSA": {
					{ID: "t1", Name: "Arrays", Completed: true},
					{ID: "t2", Name: "Trees"},
				},
				"Aptitude": {
					{ID: "t3", Name: "Logical Reasoning", Completed: true},
				},
			},
		}},
	)
}

func newTestServer(t *testing.T, store learnpath.Store, completer generator.Completer) *httpapi.Server {
	t.Helper()
	return httpapi.NewServer(httpapi.Config{
		Store:     store,
		Generator: generator.New(completer, generator.WithFallbackDelay(time.Millisecond)),
		Events:    learnpath.NewMemoryEventLog(),
	})
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	mux := newTestServer(t, seedStore(), nil).Routes()

	rec := doJSON(t, mux, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200", rec.Code)
	}
}

func TestReadyz_FailingCheck(t *testing.T) {
	srv := httpapi.NewServer(httpapi.Config{
		Store:     seedStore(),
		Generator: generator.New(nil, generator.WithFallbackDelay(time.Millisecond)),
		Checks: []httpapi.HealthCheck{{
			Name:  "database",
			Check: func(context.Context) error { return fmt.Errorf("connection refused") },
		}},
	})

	rec := doJSON(t, srv.Routes(), http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503", rec.Code)
	}
}

func TestListStudents(t *testing.T) {
	mux := newTestServer(t, seedStore(), nil).Routes()

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/students", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	type view struct {
		ID       string             `json:"id"`
		Progress learnpath.Progress `json:"progress"`
	}
	students := decodeBody[[]view](t, rec)
	if len(students) != 3 {
		t.Fatalf("student count = %d, want 3", len(students))
	}
	// S1 is assigned LP1 with 2 of 3 topics done.
	if students[0].Progress.Completed != 2 || students[0].Progress.Total != 3 {
		t.Errorf("S1 progress = %d/%d, want 2/3", students[0].Progress.Completed, students[0].Progress.Total)
	}
	// S2 is unassigned.
	if students[1].Progress.Total != 0 {
		t.Errorf("S2 progress total = %d, want 0", students[1].Progress.Total)
	}
}

func TestGetStudent(t *testing.T) {
	mux := newTestServer(t, seedStore(), nil).Routes()

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/students/S1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decodeBody[struct {
		ID       string                  `json:"id"`
		Path     *learnpath.LearningPath `json:"path"`
		Progress learnpath.Progress      `json:"progress"`
	}](t, rec)
	if resp.Path == nil || resp.Path.ID != "LP1" {
		t.Errorf("path = %v, want LP1", resp.Path)
	}
	if resp.Progress.Total != 3 {
		t.Errorf("progress total = %d, want 3", resp.Progress.Total)
	}
}

func TestGetStudent_NotFound(t *testing.T) {
	mux := newTestServer(t, seedStore(), nil).Routes()

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/students/S99", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["error"] == "" {
		t.Error("error envelope missing")
	}
}

func TestGeneratePath(t *testing.T) {
	store := seedStore()
	mock := ai.NewMockProvider(`{"DSA": ["Arrays", "Trees"], "Cloud": []}`)
	mux := newTestServer(t, store, mock).Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/paths/generate", map[string]string{
		"company":        "Acme",
		"jobDescription": "Backend engineer with Go experience",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}

	path := decodeBody[learnpath.LearningPath](t, rec)
	if path.Company != "Acme" {
		t.Errorf("Company = %q, want Acme", path.Company)
	}
	if len(path.Topics["DSA"]) != 2 {
		t.Errorf("DSA topics = %d, want 2", len(path.Topics["DSA"]))
	}
	if _, ok := path.Topics["Cloud"]; ok {
		t.Error("empty Cloud category should be dropped")
	}

	// The path must be visible through the store afterwards.
	if _, err := store.LearningPathByID(path.ID); err != nil {
		t.Errorf("generated path not stored: %v", err)
	}
}

func TestGeneratePath_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{"empty company", map[string]string{"company": "  ", "jobDescription": "jd"}},
		{"empty job description", map[string]string{"company": "Acme", "jobDescription": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seedStore()
			mux := newTestServer(t, store, ai.NewMockProvider(`{"DSA":["x"]}`)).Routes()

			rec := doJSON(t, mux, http.MethodPost, "/api/v1/paths/generate", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", rec.Code)
			}
			if len(store.LearningPaths()) != 1 {
				t.Error("rejected request must not create a path")
			}
		})
	}
}

func TestGeneratePath_ProviderFailure(t *testing.T) {
	mock := &ai.MockProvider{Err: fmt.Errorf("service down")}
	mux := newTestServer(t, seedStore(), mock).Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/paths/generate", map[string]string{
		"company":        "Acme",
		"jobDescription": "jd",
	})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

type blockingCompleter struct {
	started   chan struct{}
	release   chan struct{}
	startOnce sync.Once
}

func (b *blockingCompleter) Complete(ctx context.Context, _ ai.CompletionRequest) (ai.CompletionResponse, error) {
	b.startOnce.Do(func() { close(b.started) })
	select {
	case <-b.release:
		return ai.CompletionResponse{Content: `{"DSA": ["Arrays"]}`}, nil
	case <-ctx.Done():
		return ai.CompletionResponse{}, ctx.Err()
	}
}

func TestGeneratePath_ConcurrentRequestRejected(t *testing.T) {
	blocking := &blockingCompleter{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	mux := newTestServer(t, seedStore(), blocking).Routes()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		doJSON(t, mux, http.MethodPost, "/api/v1/paths/generate", map[string]string{
			"company":        "Acme",
			"jobDescription": "first",
		})
	}()

	select {
	case <-blocking.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first generation never started")
	}

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/paths/generate", map[string]string{
		"company":        "Acme",
		"jobDescription": "second",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}

	close(blocking.release)
	wg.Wait()
}

func TestAssignPath(t *testing.T) {
	store := seedStore()
	mux := newTestServer(t, store, nil).Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/paths/LP1/assign", map[string]any{
		"studentIds": []string{"S2", "S3"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	for _, id := range []string{"S2", "S3"} {
		student, err := store.StudentByID(id)
		if err != nil {
			t.Fatalf("StudentByID(%s): %v", id, err)
		}
		if !student.Assigned() || *student.AssignedLearningPathID != "LP1" {
			t.Errorf("%s not assigned LP1", id)
		}
	}
}

func TestAssignPath_Validation(t *testing.T) {
	mux := newTestServer(t, seedStore(), nil).Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/paths/LP1/assign", map[string]any{
		"studentIds": []string{},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty list status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/v1/paths/LP99/assign", map[string]any{
		"studentIds": []string{"S2"},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}
}

func TestToggleTopic(t *testing.T) {
	store := seedStore()
	mux := newTestServer(t, store, nil).Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/paths/LP1/topics/t2/toggle", map[string]string{
		"studentId": "S1",
		"category":  "DSA",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[struct {
		Topics   map[string][]learnpath.Topic `json:"topics"`
		Progress learnpath.Progress           `json:"progress"`
	}](t, rec)
	if resp.Progress.Completed != 3 {
		t.Errorf("completed = %d, want 3 after toggle", resp.Progress.Completed)
	}

	// Shared-progress invariant: S1 toggled, the path itself changed.
	path, err := store.LearningPathByID("LP1")
	if err != nil {
		t.Fatalf("LearningPathByID: %v", err)
	}
	topic, _ := path.FindTopic("DSA", "t2")
	if !topic.Completed {
		t.Error("toggle must mutate the shared path")
	}
}

func TestToggleTopic_NotFound(t *testing.T) {
	mux := newTestServer(t, seedStore(), nil).Routes()

	tests := []struct {
		name string
		url  string
		body map[string]string
	}{
		{"unknown path", "/api/v1/paths/LP99/topics/t1/toggle", map[string]string{"category": "DSA"}},
		{"unknown category", "/api/v1/paths/LP1/topics/t1/toggle", map[string]string{"category": "Cloud"}},
		{"unknown topic", "/api/v1/paths/LP1/topics/t99/toggle", map[string]string{"category": "DSA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, mux, http.MethodPost, tt.url, tt.body)
			if rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want 404", rec.Code)
			}
		})
	}
}

func TestProgressReport(t *testing.T) {
	mux := newTestServer(t, seedStore(), nil).Routes()

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/reports/progress.xlsx", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type = %q, want xlsx", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("report body is empty")
	}
}

func TestProgressWatch_StreamsToggleEvents(t *testing.T) {
	srv := newTestServer(t, seedStore(), nil)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/progress/watch"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Give the server a moment to register the subscription.
	time.Sleep(50 * time.Millisecond)

	body, _ := json.Marshal(map[string]string{"studentId": "S1", "category": "DSA"})
	resp, err := http.Post(ts.URL+"/api/v1/paths/LP1/topics/t2/toggle", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("toggle request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle status = %d, want 200", resp.StatusCode)
	}

	var event learnpath.Event
	if err := wsjson.Read(ctx, conn, &event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != "topic_toggled" {
		t.Errorf("event type = %q, want topic_toggled", event.Type)
	}
	if event.TopicID != "t2" || !event.Completed {
		t.Errorf("event = %+v, want completed t2", event)
	}
}

func TestEndToEnd_GenerateAssignToggle(t *testing.T) {
	store := seedStore()
	mock := ai.NewMockProvider(`{"Development": ["Go Basics", "HTTP Services"]}`)
	mux := newTestServer(t, store, mock).Routes()

	// Admin generates a path from a job description.
	rec := doJSON(t, mux, http.MethodPost, "/api/v1/paths/generate", map[string]string{
		"company":        "Acme",
		"jobDescription": "Go backend engineer",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate status = %d", rec.Code)
	}
	path := decodeBody[learnpath.LearningPath](t, rec)

	// Admin assigns it to two students.
	rec = doJSON(t, mux, http.MethodPost, "/api/v1/paths/"+path.ID+"/assign", map[string]any{
		"studentIds": []string{"S2", "S3"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("assign status = %d", rec.Code)
	}

	// S2 completes a topic.
	topicID := path.Topics["Development"][0].ID
	rec = doJSON(t, mux, http.MethodPost, "/api/v1/paths/"+path.ID+"/topics/"+topicID+"/toggle", map[string]string{
		"studentId": "S2",
		"category":  "Development",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", rec.Code)
	}

	// S3 shares the path and sees 50% progress.
	rec = doJSON(t, mux, http.MethodGet, "/api/v1/students/S3", nil)
	resp := decodeBody[struct {
		Progress learnpath.Progress `json:"progress"`
	}](t, rec)
	if resp.Progress.Completed != 1 || resp.Progress.Total != 2 {
		t.Errorf("S3 progress = %d/%d, want 1/2", resp.Progress.Completed, resp.Progress.Total)
	}
}
