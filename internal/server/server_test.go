package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"netsentry/internal/dataset"
	"netsentry/internal/events"
	"netsentry/internal/ingest"
	"netsentry/internal/ml"
	"netsentry/internal/model"
	"netsentry/internal/registry"
	"netsentry/internal/stream"
	"netsentry/internal/train"
)

// chunkAnalyzer streams canned chunks.
type chunkAnalyzer struct {
	chunks []string
	err    error
}

func (a *chunkAnalyzer) AnalyzeStream(ctx context.Context, prompt string, sendChunk func(string) error) error {
	for _, c := range a.chunks {
		if err := sendChunk(c); err != nil {
			return err
		}
	}
	return a.err
}

type testEnv struct {
	srv *httptest.Server
	mgr *dataset.Manager
	reg *registry.Registry
	eng *stream.Engine
}

func newTestEnv(t *testing.T, analyzer StreamAnalyzer) *testEnv {
	t.Helper()
	mgr, err := dataset.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create dataset manager: %v", err)
	}

	reg := registry.New()
	trainer := train.New(reg, nil)
	trainer.Config = ml.Config{Trees: 10, Epochs: 25, HiddenUnits: 16}
	eng := stream.New(reg, nil, nil, ingest.Factory(ingest.Options{Seed: 11}))
	hub := events.NewHub()

	srv := httptest.NewServer(New(reg, trainer, eng, mgr, hub, analyzer).Router())
	t.Cleanup(func() {
		eng.Stop()
		srv.Close()
		hub.Close()
	})
	return &testEnv{srv: srv, mgr: mgr, reg: reg, eng: eng}
}

// writeTrainingCSV stores a deterministic labeled table the full panel can
// learn in test time.
func writeTrainingCSV(t *testing.T, mgr *dataset.Manager, name string) int {
	t.Helper()
	tbl := &model.Table{Columns: []string{"protocol", "src_bytes", "count", "serror_rate", "label"}}
	rng := rand.New(rand.NewSource(7))
	emit := func(label, proto string, bytes, conns int, serror float64) {
		tbl.Rows = append(tbl.Rows, []string{
			proto,
			fmt.Sprintf("%d", bytes+rng.Intn(100)),
			fmt.Sprintf("%d", conns+rng.Intn(5)),
			fmt.Sprintf("%.3f", serror+rng.Float64()*0.05),
			label,
		})
	}
	for i := 0; i < 340; i++ {
		emit("normal", "tcp", 200, 5, 0.0)
	}
	for i := 0; i < 40; i++ {
		emit("dos", "tcp", 6000, 300, 0.8)
	}
	for i := 0; i < 20; i++ {
		emit("probe", "icmp", 40, 80, 0.1)
	}
	if err := dataset.WriteCSV(tbl, mgr.Dir()+"/"+name); err != nil {
		t.Fatalf("Failed to write training CSV: %v", err)
	}
	return len(tbl.Rows)
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &body)
	return body.Error
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := http.Get(env.srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("Failed to GET /healthz: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %q", body["status"])
	}
}

func TestUploadAndListDatasets(t *testing.T) {
	env := newTestEnv(t, nil)

	// 1. Upload a small CSV through the multipart endpoint.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "traffic.csv")
	if err != nil {
		t.Fatalf("Failed to build multipart body: %v", err)
	}
	fmt.Fprint(part, "duration,protocol,src_bytes,label\n1.0,tcp,200,normal\n0.1,udp,9000,dos\n2.2,tcp,150,normal\n")
	mw.Close()

	resp, err := http.Post(env.srv.URL+"/api/v1/datasets", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("Failed to upload dataset: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var uploaded struct {
		Message  string `json:"message"`
		Filename string `json:"filename"`
		DataInfo struct {
			Rows            int    `json:"rows"`
			SuggestedTarget string `json:"suggested_target"`
		} `json:"data_info"`
	}
	decodeBody(t, resp, &uploaded)
	if uploaded.Message != "File uploaded successfully" {
		t.Errorf("Unexpected message: %q", uploaded.Message)
	}
	if !strings.HasSuffix(uploaded.Filename, "_traffic.csv") {
		t.Errorf("Expected a uuid-prefixed stored name, got %q", uploaded.Filename)
	}
	if uploaded.DataInfo.Rows != 3 || uploaded.DataInfo.SuggestedTarget != "label" {
		t.Errorf("Unexpected analysis: rows %d, target %q", uploaded.DataInfo.Rows, uploaded.DataInfo.SuggestedTarget)
	}

	// 2. The stored dataset shows up in the listing next to the catalog.
	resp, err = http.Get(env.srv.URL + "/api/v1/datasets")
	if err != nil {
		t.Fatalf("Failed to list datasets: %v", err)
	}
	var listing struct {
		Datasets []string               `json:"datasets"`
		Catalog  []dataset.CatalogEntry `json:"catalog"`
	}
	decodeBody(t, resp, &listing)
	found := false
	for _, name := range listing.Datasets {
		if name == uploaded.Filename {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected %q in the dataset listing %v", uploaded.Filename, listing.Datasets)
	}
	if len(listing.Catalog) == 0 {
		t.Error("Expected a non-empty dataset catalog")
	}
}

func TestUploadRejections(t *testing.T) {
	env := newTestEnv(t, nil)

	// 1. A multipart body without a file part.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "no file here")
	mw.Close()
	resp, err := http.Post(env.srv.URL+"/api/v1/datasets", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("Failed to POST upload: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for a missing file, got %d", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != "No file provided" {
		t.Errorf("Unexpected error message: %q", msg)
	}

	// 2. A non-CSV upload.
	buf.Reset()
	mw = multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "notes.txt")
	fmt.Fprint(part, "not a dataset")
	mw.Close()
	resp, err = http.Post(env.srv.URL+"/api/v1/datasets", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("Failed to POST upload: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for a non-CSV upload, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGenerateDatasetEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := postJSON(t, env.srv.URL+"/api/v1/datasets/generate", `{"type":"flows","rows":40,"seed":3}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Filename string `json:"filename"`
	}
	decodeBody(t, resp, &body)
	if !strings.HasPrefix(body.Filename, "generated_flows_") {
		t.Errorf("Unexpected generated name: %q", body.Filename)
	}
	if _, err := env.mgr.Load(body.Filename); err != nil {
		t.Errorf("Failed to load the generated dataset: %v", err)
	}

	resp = postJSON(t, env.srv.URL+"/api/v1/datasets/generate", `{"type":"packets"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown kind, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTrainPredictModels(t *testing.T) {
	env := newTestEnv(t, nil)
	rows := writeTrainingCSV(t, env.mgr, "train.csv")

	// 1. Train the panel on the stored dataset.
	resp := postJSON(t, env.srv.URL+"/api/v1/train", `{"dataset":"train.csv"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from train, got %d", resp.StatusCode)
	}
	var trained struct {
		Message string                            `json:"message"`
		Results map[string]model.EvaluationResult `json:"results"`
	}
	decodeBody(t, resp, &trained)
	if trained.Message != "Models trained successfully" {
		t.Errorf("Unexpected message: %q", trained.Message)
	}
	ens, ok := trained.Results[ml.EnsembleName]
	if !ok {
		t.Fatalf("Expected an ensemble entry in %v", trained.Results)
	}
	if ens.Failed() {
		t.Fatalf("Ensemble failed: %s", ens.Err)
	}

	// 2. The registry summary lists the trained panel.
	resp, err := http.Get(env.srv.URL + "/api/v1/models")
	if err != nil {
		t.Fatalf("Failed to GET models: %v", err)
	}
	var models struct {
		Models  []string                          `json:"models"`
		Results map[string]model.EvaluationResult `json:"results"`
	}
	decodeBody(t, resp, &models)
	foundEnsemble := false
	for _, name := range models.Models {
		if name == ml.EnsembleName {
			foundEnsemble = true
		}
	}
	if !foundEnsemble {
		t.Errorf("Expected %q in the model listing %v", ml.EnsembleName, models.Models)
	}

	// 3. Batch prediction over the same table.
	resp = postJSON(t, env.srv.URL+"/api/v1/predict", `{"dataset":"train.csv"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from predict, got %d", resp.StatusCode)
	}
	var predicted struct {
		Predictions   []int     `json:"predictions"`
		Probabilities []float64 `json:"probabilities"`
		Summary       struct {
			TotalRecords     int     `json:"total_records"`
			ThreatsDetected  int     `json:"threats_detected"`
			BenignRecords    int     `json:"benign_records"`
			ThreatPercentage float64 `json:"threat_percentage"`
		} `json:"summary"`
		Detailed []map[string]any `json:"detailed_data"`
	}
	decodeBody(t, resp, &predicted)
	if len(predicted.Predictions) != rows || len(predicted.Probabilities) != rows {
		t.Fatalf("Expected %d predictions, got %d/%d", rows, len(predicted.Predictions), len(predicted.Probabilities))
	}
	if predicted.Summary.TotalRecords != rows {
		t.Errorf("Expected %d total records, got %d", rows, predicted.Summary.TotalRecords)
	}
	if predicted.Summary.ThreatsDetected+predicted.Summary.BenignRecords != rows {
		t.Errorf("Summary does not add up: %+v", predicted.Summary)
	}
	if len(predicted.Detailed) != detailedLimit {
		t.Errorf("Expected the detailed echo capped at %d rows, got %d", detailedLimit, len(predicted.Detailed))
	}
	for _, p := range predicted.Probabilities {
		if p < 0 || p > 1 {
			t.Fatalf("Probability %v outside [0,1]", p)
		}
	}

	// 4. A named panel member scores too.
	resp = postJSON(t, env.srv.URL+"/api/v1/predict", `{"dataset":"train.csv","model":"random_forest"}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from a named model, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// 5. An unknown model name is a 404.
	resp = postJSON(t, env.srv.URL+"/api/v1/predict", `{"dataset":"train.csv","model":"oracle"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown model, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTrainErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := postJSON(t, env.srv.URL+"/api/v1/train", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for a missing dataset field, got %d", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != "No dataset provided" {
		t.Errorf("Unexpected error message: %q", msg)
	}

	resp = postJSON(t, env.srv.URL+"/api/v1/train", `{"dataset":"absent.csv"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing file, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, env.srv.URL+"/api/v1/train", `{"dataset":"../escape.csv"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for a path-escaping name, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPredictBeforeTraining(t *testing.T) {
	env := newTestEnv(t, nil)
	writeTrainingCSV(t, env.mgr, "train.csv")

	resp := postJSON(t, env.srv.URL+"/api/v1/predict", `{"dataset":"train.csv"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 before any training, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestStreamEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	// 1. Start a fast synthetic stream.
	resp := postJSON(t, env.srv.URL+"/api/v1/stream/start", `{"source":"synthetic","interval_ms":1}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from stream start, got %d", resp.StatusCode)
	}
	var status model.StreamStatus
	decodeBody(t, resp, &status)
	if !status.Streaming {
		t.Fatal("Expected a streaming status after start")
	}
	if status.Source != "synthetic" {
		t.Errorf("Expected synthetic source, got %q", status.Source)
	}

	// 2. A second start reports the running session instead of failing.
	resp = postJSON(t, env.srv.URL+"/api/v1/stream/start", `{"source":"synthetic"}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from a redundant start, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// 3. Results accumulate while the loop runs.
	deadline := time.Now().Add(5 * time.Second)
	got := 0
	for time.Now().Before(deadline) {
		r, err := http.Get(env.srv.URL + "/api/v1/stream/results?limit=10")
		if err != nil {
			t.Fatalf("Failed to GET results: %v", err)
		}
		var body struct {
			Results []model.ScoringResult `json:"results"`
		}
		decodeBody(t, r, &body)
		if got = len(body.Results); got > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got == 0 {
		t.Fatal("Expected scored results from the running stream")
	}

	// 4. Threshold updates apply and reject bad values.
	req, _ := http.NewRequest(http.MethodPut, env.srv.URL+"/api/v1/alerts/threshold", strings.NewReader(`{"threshold":0.9}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to PUT threshold: %v", err)
	}
	var thr struct {
		Message   string  `json:"message"`
		Threshold float64 `json:"threshold"`
	}
	decodeBody(t, resp, &thr)
	if thr.Threshold != 0.9 || thr.Message != "Alert threshold set to 0.9" {
		t.Errorf("Unexpected threshold response: %+v", thr)
	}
	if env.eng.Threshold() != 0.9 {
		t.Errorf("Expected engine threshold 0.9, got %v", env.eng.Threshold())
	}

	req, _ = http.NewRequest(http.MethodPut, env.srv.URL+"/api/v1/alerts/threshold", strings.NewReader(`{"threshold":1.5}`))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to PUT threshold: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for an out-of-range threshold, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// 5. An omitted value resets to the default.
	req, _ = http.NewRequest(http.MethodPut, env.srv.URL+"/api/v1/alerts/threshold", strings.NewReader(`{}`))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to PUT threshold: %v", err)
	}
	decodeBody(t, resp, &thr)
	if thr.Threshold != defaultAlertThreshold {
		t.Errorf("Expected the default threshold %v, got %v", defaultAlertThreshold, thr.Threshold)
	}

	// 6. Alerts endpoint responds even when empty.
	r, err := http.Get(env.srv.URL + "/api/v1/alerts?limit=5")
	if err != nil {
		t.Fatalf("Failed to GET alerts: %v", err)
	}
	var alerts struct {
		Alerts []model.Alert `json:"alerts"`
	}
	decodeBody(t, r, &alerts)

	// 7. Stop tears the session down.
	resp = postJSON(t, env.srv.URL+"/api/v1/stream/stop", ``)
	decodeBody(t, resp, &status)
	if status.Streaming {
		t.Error("Expected an idle status after stop")
	}
}

func TestStreamStartUnknownSource(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := postJSON(t, env.srv.URL+"/api/v1/stream/start", `{"source":"teleport"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown source, got %d", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); !strings.Contains(msg, "unknown stream source") {
		t.Errorf("Unexpected error message: %q", msg)
	}
	if env.eng.Status().Streaming {
		t.Error("Expected the engine to stay idle after a rejected start")
	}
}

func TestAIAnalyzeEndpoint(t *testing.T) {
	// 1. A configured analyzer streams plain-text chunks.
	env := newTestEnv(t, &chunkAnalyzer{chunks: []string{"alpha ", "beta"}})
	resp := postJSON(t, env.srv.URL+"/api/v1/ai/analyze", `{"prompt":"assess the last hour"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("Failed to read streamed body: %v", err)
	}
	if string(body) != "alpha beta" {
		t.Errorf("Expected the concatenated chunks, got %q", string(body))
	}

	// 2. An empty prompt is rejected.
	resp = postJSON(t, env.srv.URL+"/api/v1/ai/analyze", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for an empty prompt, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// 3. Without an analyzer the endpoint reports unavailable.
	bare := newTestEnv(t, nil)
	resp = postJSON(t, bare.srv.URL+"/api/v1/ai/analyze", `{"prompt":"assess"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without an analyzer, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
