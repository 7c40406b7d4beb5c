package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kelsos/fadr-stems/internal/config"
)

// stemPlan schedules one task: it stays pending until readyAt polls, or turns
// failed at failAt. On readiness its stems and MIDI assets come into being.
type stemPlan struct {
	readyAt  int
	failAt   int
	stems    []string
	midi     []string
	stemless bool
}

type fakeTask struct {
	id      string
	assetID string
	plan    stemPlan
	polls   int
	stemIDs []string
	midiIDs []string
}

// fakeService imitates the remote service endpoints plus the presigned
// upload and download hosts.
type fakeService struct {
	t      *testing.T
	server *httptest.Server

	mu        sync.Mutex
	nextID    int
	plans     map[string]stemPlan
	assets    map[string]map[string]any
	files     map[string][]byte
	tasks     map[string]*fakeTask
	uploaded  []byte
	requests  int
	failFetch map[string]bool
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{
		t:         t,
		plans:     map[string]stemPlan{},
		assets:    map[string]map[string]any{},
		files:     map[string][]byte{},
		tasks:     map[string]*fakeTask{},
		failFetch: map[string]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /assets/upload2", f.handleUploadURL)
	mux.HandleFunc("PUT /upload/{key}", f.handleUpload)
	mux.HandleFunc("POST /assets", f.handleCreateAsset)
	mux.HandleFunc("POST /assets/analyze/stem", f.handleCreateTask)
	mux.HandleFunc("POST /tasks/query", f.handleQuery)
	mux.HandleFunc("GET /assets/{id}", f.handleGetAsset)
	mux.HandleFunc("GET /assets/download/{id}/{quality}", f.handleDownloadURL)
	mux.HandleFunc("GET /files/{id}", f.handleFile)

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests++
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

// plan sets the schedule for tasks created with the given stemType ("" is the primary split)
func (f *fakeService) plan(stemType string, p stemPlan) {
	f.plans[stemType] = p
}

func (f *fakeService) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *fakeService) service(t *testing.T) *StemService {
	t.Helper()
	cfg := config.NewConfig()
	cfg.APIKey = "test-key"
	cfg.APIURL = f.server.URL
	cfg.RequestTimeout = 2 * time.Second
	cfg.UploadTimeout = 2 * time.Second
	cfg.DownloadTimeout = 2 * time.Second
	return NewStemService(cfg).WithSleep(func(context.Context, time.Duration) error { return nil })
}

func (f *fakeService) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// addAsset registers a downloadable asset. Callers hold f.mu.
func (f *fakeService) addAsset(metaData map[string]any, content string) string {
	id := f.newID("asset")
	f.assets[id] = map[string]any{
		"_id":      id,
		"metaData": metaData,
	}
	f.files[id] = []byte(content)
	return id
}

func (f *fakeService) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		f.t.Errorf("encode response: %v", err)
	}
}

func (f *fakeService) decode(r *http.Request, v any) {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		f.t.Errorf("decode %s request: %v", r.URL.Path, err)
	}
}

func (f *fakeService) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name      string `json:"name"`
		Extension string `json:"extension"`
	}
	f.decode(r, &body)
	f.writeJSON(w, map[string]string{
		"url":    f.server.URL + "/upload/" + body.Name,
		"s3Path": "uploads/" + body.Name,
	})
}

func (f *fakeService) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "" {
		f.t.Errorf("presigned upload must not carry the API key")
	}
	data, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.uploaded = data
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (f *fakeService) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	f.decode(r, &body)

	f.mu.Lock()
	id := f.newID("source")
	asset := map[string]any{
		"_id":       id,
		"name":      body["name"],
		"extension": body["extension"],
		"group":     body["group"],
		"s3Path":    body["s3Path"],
		"metaData":  map[string]any{"name": body["name"]},
	}
	f.assets[id] = asset
	f.mu.Unlock()

	f.writeJSON(w, map[string]any{"asset": asset})
}

func (f *fakeService) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID       string `json:"_id"`
		StemType string `json:"stemType"`
	}
	f.decode(r, &body)

	f.mu.Lock()
	task := &fakeTask{id: f.newID("task"), assetID: body.ID, plan: f.plans[body.StemType]}
	f.tasks[task.id] = task
	f.mu.Unlock()

	f.writeJSON(w, map[string]any{"task": map[string]any{"_id": task.id, "status": "pending"}})
}

func (f *fakeService) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []string `json:"_ids"`
	}
	f.decode(r, &body)

	f.mu.Lock()
	defer f.mu.Unlock()

	var tasks []any
	for _, id := range body.IDs {
		task, ok := f.tasks[id]
		if !ok {
			continue
		}
		task.polls++

		status := "processing"
		switch {
		case task.plan.failAt > 0 && task.polls >= task.plan.failAt:
			status = "failed"
		case task.plan.readyAt > 0 && task.polls >= task.plan.readyAt:
			f.materialize(task)
		}

		tasks = append(tasks, map[string]any{
			"_id":    task.id,
			"status": status,
			"asset": map[string]any{
				"_id":   task.assetID,
				"stems": nonNil(task.stemIDs),
				"midi":  nonNil(task.midiIDs),
			},
		})
	}

	f.writeJSON(w, map[string]any{"tasks": nonNilAny(tasks)})
}

// materialize creates the task's output assets once and attaches them to the
// analysed asset. Callers hold f.mu.
func (f *fakeService) materialize(task *fakeTask) {
	if task.stemIDs != nil || task.midiIDs != nil {
		return
	}
	task.stemIDs = []string{}
	task.midiIDs = []string{}

	for _, stemType := range task.plan.stems {
		metaData := map[string]any{"stemType": stemType}
		if task.plan.stemless {
			metaData = map[string]any{}
		}
		task.stemIDs = append(task.stemIDs, f.addAsset(metaData, "audio:"+stemType))
	}
	for _, midiType := range task.plan.midi {
		task.midiIDs = append(task.midiIDs, f.addAsset(map[string]any{"midiType": midiType}, "midi:"+midiType))
	}

	if asset, ok := f.assets[task.assetID]; ok {
		asset["stems"] = task.stemIDs
		asset["midi"] = task.midiIDs
	}
}

func (f *fakeService) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	asset, ok := f.assets[id]
	failing := f.failFetch[id]
	var payload []byte
	if ok {
		payload, _ = json.Marshal(map[string]any{"asset": asset})
	}
	f.mu.Unlock()

	if !ok || failing {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"asset not found"}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func (f *fakeService) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("quality") != "hq" {
		f.t.Errorf("unexpected download quality %q", r.PathValue("quality"))
	}
	f.writeJSON(w, map[string]string{"url": f.server.URL + "/files/" + r.PathValue("id")})
}

func (f *fakeService) handleFile(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	data, ok := f.files[r.PathValue("id")]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(data)
}

// stemIDsOf returns the stems currently attached to an asset
func (f *fakeService) stemIDsOf(assetID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids, _ := f.assets[assetID]["stems"].([]string)
	return ids
}

func (f *fakeService) failAssetFetch(assetID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFetch[assetID] = true
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func nonNilAny(items []any) []any {
	if items == nil {
		return []any{}
	}
	return items
}
