package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/api"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/bus"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
)

type uploadCall struct {
	name string
	size int
}

type fakeAnalyzer struct {
	mu         sync.Mutex
	uploads    []uploadCall
	analyzes   []api.AnalyzeRequest
	uploadID   string
	uploadErr  error
	analyzeErr error
	result     []incident.Incident
	// observed is set from inside AnalyzeLogs to check the in-flight flag.
	ctrl     *Controller
	observed bool
}

func (f *fakeAnalyzer) UploadLog(_ context.Context, name string, r io.Reader) (string, error) {
	data, _ := io.ReadAll(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, uploadCall{name: name, size: len(data)})
	return f.uploadID, f.uploadErr
}

func (f *fakeAnalyzer) AnalyzeLogs(_ context.Context, req api.AnalyzeRequest) ([]incident.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzes = append(f.analyzes, req)
	if f.ctrl != nil {
		f.observed = f.ctrl.InFlight()
	}
	return f.result, f.analyzeErr
}

type fakeBus struct {
	bus.NullBus
	mu   sync.Mutex
	msgs []bus.ActivityMessage
}

func (b *fakeBus) PublishActivity(_ context.Context, msg bus.ActivityMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
	return nil
}

type fakeRecorder struct {
	source, outcome string
	n               int
}

func (r *fakeRecorder) ObserveIngestion(source, outcome string, n int) {
	r.source, r.outcome, r.n = source, outcome, n
}

func seededStore() *incident.Store {
	st := incident.NewStore()
	st.ReplaceAll([]incident.Incident{{IncidentID: "c"}, {IncidentID: "d"}})
	return st
}

func storeIDs(st *incident.Store) []string {
	var out []string
	for _, inc := range st.All() {
		out = append(out, inc.IncidentID)
	}
	return out
}

func TestSubmitFileUploadsThenAnalyzesByUploadID(t *testing.T) {
	fa := &fakeAnalyzer{
		uploadID: "u1",
		result:   []incident.Incident{{IncidentID: "a"}, {IncidentID: "b"}},
	}
	st := seededStore()
	fb := &fakeBus{}
	rec := &fakeRecorder{}
	c := NewController(fa, st, Options{Bus: fb, Recorder: rec, Actor: func() string { return "ana@example.com" }})
	fa.ctrl = c

	f := LogFile{Name: "app.log", Size: 2048, Content: bytes.NewReader(make([]byte, 2048))}
	got, err := c.SubmitFile(context.Background(), f)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.Equal(t, []uploadCall{{name: "app.log", size: 2048}}, fa.uploads)
	require.Len(t, fa.analyzes, 1)
	assert.Equal(t, api.AnalyzeRequest{UploadID: "u1"}, fa.analyzes[0])
	assert.Empty(t, fa.analyzes[0].LogText)

	assert.Equal(t, []string{"a", "b", "c", "d"}, storeIDs(st))
	assert.True(t, fa.observed, "in-flight while waiting on the backend")
	assert.False(t, c.InFlight())

	require.Len(t, fb.msgs, 2)
	assert.Equal(t, bus.KindIngested, fb.msgs[0].Kind)
	assert.Equal(t, "a", fb.msgs[0].IncidentID)
	assert.Equal(t, "ana@example.com", fb.msgs[0].Actor)
	assert.NotEmpty(t, fb.msgs[0].SubmissionID)
	assert.Equal(t, fb.msgs[0].SubmissionID, fb.msgs[1].SubmissionID)

	assert.Equal(t, &fakeRecorder{source: SourceFile, outcome: "ok", n: 2}, rec)
}

func TestSubmitTextAnalyzesDirectly(t *testing.T) {
	fa := &fakeAnalyzer{result: []incident.Incident{{IncidentID: "x"}}}
	st := seededStore()
	c := NewController(fa, st, Options{})

	_, err := c.SubmitText(context.Background(), "500 error\n500 error")
	require.NoError(t, err)

	assert.Empty(t, fa.uploads)
	require.Len(t, fa.analyzes, 1)
	assert.Equal(t, api.AnalyzeRequest{LogText: "500 error\n500 error"}, fa.analyzes[0])
	assert.Equal(t, []string{"x", "c", "d"}, storeIDs(st))
}

func TestSubmitTextBlankIsNotSubmitted(t *testing.T) {
	fa := &fakeAnalyzer{}
	c := NewController(fa, seededStore(), Options{})

	_, err := c.SubmitText(context.Background(), "  \n\t")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Empty(t, fa.analyzes)
	assert.False(t, c.InFlight())
}

func TestAnalyzeFailureLeavesStoreUnchanged(t *testing.T) {
	fa := &fakeAnalyzer{
		analyzeErr: &api.APIError{Endpoint: api.EndpointAnalyze, StatusCode: 500, Body: "parse error"},
	}
	st := seededStore()
	rec := &fakeRecorder{}
	c := NewController(fa, st, Options{Recorder: rec})

	_, err := c.SubmitText(context.Background(), "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse error")
	assert.Equal(t, 500, api.StatusCode(err))

	assert.False(t, c.InFlight())
	assert.Equal(t, []string{"c", "d"}, storeIDs(st))
	assert.Equal(t, "error", rec.outcome)
}

func TestUploadFailureSkipsAnalyze(t *testing.T) {
	fa := &fakeAnalyzer{uploadErr: errors.New("connection refused")}
	st := seededStore()
	c := NewController(fa, st, Options{})

	_, err := c.SubmitFile(context.Background(), LogFile{Name: "app.log", Content: strings.NewReader("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload app.log")
	assert.Empty(t, fa.analyzes)
	assert.False(t, c.InFlight())
	assert.Equal(t, []string{"c", "d"}, storeIDs(st))
}

func TestSubmitFileWithoutSelection(t *testing.T) {
	fa := &fakeAnalyzer{}
	c := NewController(fa, seededStore(), Options{})

	_, err := c.SubmitFile(context.Background(), LogFile{})
	require.Error(t, err)
	assert.Empty(t, fa.uploads)
}

func TestOnInFlightCallback(t *testing.T) {
	var flips []bool
	fa := &fakeAnalyzer{}
	c := NewController(fa, seededStore(), Options{OnInFlight: func(v bool) { flips = append(flips, v) }})

	_, err := c.SubmitText(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, flips)
}

// gatedAnalyzer holds each AnalyzeLogs call until its request is released.
type gatedAnalyzer struct {
	entered chan string
	release map[string]chan struct{}
}

func (g *gatedAnalyzer) UploadLog(_ context.Context, name string, r io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	return name, nil
}

func (g *gatedAnalyzer) AnalyzeLogs(_ context.Context, req api.AnalyzeRequest) ([]incident.Incident, error) {
	key := req.UploadID
	if key == "" {
		key = req.LogText
	}
	g.entered <- key
	<-g.release[key]
	return nil, nil
}

func TestInFlightCoversOverlappingSubmissions(t *testing.T) {
	g := &gatedAnalyzer{
		entered: make(chan string, 2),
		release: map[string]chan struct{}{
			"drop.log": make(chan struct{}),
			"pasted":   make(chan struct{}),
		},
	}
	var mu sync.Mutex
	var flips []bool
	c := NewController(g, seededStore(), Options{OnInFlight: func(v bool) {
		mu.Lock()
		flips = append(flips, v)
		mu.Unlock()
	}})

	fileDone := make(chan error, 1)
	textDone := make(chan error, 1)
	go func() {
		_, err := c.SubmitFile(context.Background(), LogFile{Name: "drop.log", Content: strings.NewReader("x")})
		fileDone <- err
	}()
	go func() {
		_, err := c.SubmitText(context.Background(), "pasted")
		textDone <- err
	}()
	<-g.entered
	<-g.entered
	assert.True(t, c.InFlight())

	close(g.release["drop.log"])
	require.NoError(t, <-fileDone)
	assert.True(t, c.InFlight(), "text submission is still pending")

	close(g.release["pasted"])
	require.NoError(t, <-textDone)
	assert.False(t, c.InFlight())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, flips)
}
