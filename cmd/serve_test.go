package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scentlab/accord/internal/chat"
	"github.com/scentlab/accord/internal/config"
	"github.com/scentlab/accord/internal/knowledge"
	"github.com/scentlab/accord/internal/llm"
	"github.com/scentlab/accord/internal/model"
	"github.com/scentlab/accord/internal/pipeline"
	"github.com/scentlab/accord/internal/store"
)

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	return s.response, s.err
}

const stubAnalysisJSON = `{
	"summary": "Bright citrus.",
	"olfactive_family": ["citrus"],
	"top_notes": [], "heart_notes": [], "base_notes": [],
	"accords": [],
	"volatility_profile": {"top": 100, "heart": 0, "base": 0},
	"similar_popular_scents": [], "improvement_suggestions": [], "risks": []
}`

func newTestEnv(t *testing.T, client llm.Client) *pipelineEnv {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	base, err := knowledge.Load()
	require.NoError(t, err)

	llmCfg := config.LLMConfig{Model: "test-model", MaxTokens: 1200}
	pipeCfg := config.PipelineConfig{MatchThreshold: 85, MaxRetries: 2, Temperature: 0.2, PromptVersion: "v1"}

	return &pipelineEnv{
		Store:    st,
		Pipeline: pipeline.New(base, client, llmCfg, pipeCfg),
		Chat:     chat.New(client, "test-model", 1200),
	}
}

func createTestCompound(t *testing.T, mux *http.ServeMux, items []model.FormulaItem) model.Compound {
	t.Helper()

	body, err := json.Marshal(compoundRequest{Name: "Test Blend", Items: items})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/compounds", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)

	var compound model.Compound
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &compound))
	return compound
}

func bergamotItems() []model.FormulaItem {
	return []model.FormulaItem{{Label: "Bergamot Oil", WeightPercent: 10}}
}

func TestMux_Health(t *testing.T) {
	mux := newMux(newTestEnv(t, &stubLLM{response: stubAnalysisJSON}))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
}

func TestMux_CompoundCRUD(t *testing.T) {
	mux := newMux(newTestEnv(t, &stubLLM{response: stubAnalysisJSON}))

	compound := createTestCompound(t, mux, bergamotItems())

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/compounds/"+compound.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, _ := json.Marshal(compoundRequest{Name: "Renamed", Items: bergamotItems()})
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/compounds/"+compound.ID, bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Renamed")

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/compounds/"+compound.ID, nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/compounds/"+compound.ID, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMux_CreateCompound_MissingName(t *testing.T) {
	mux := newMux(newTestEnv(t, &stubLLM{response: stubAnalysisJSON}))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/compounds", bytes.NewReader([]byte(`{"items":[]}`))))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "name is required")
}

func TestMux_Analyze(t *testing.T) {
	mux := newMux(newTestEnv(t, &stubLLM{response: stubAnalysisJSON}))
	compound := createTestCompound(t, mux, bergamotItems())

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/compounds/"+compound.ID+"/analyze", nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	var analysis model.Analysis
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &analysis))
	assert.Equal(t, compound.ID, analysis.CompoundID)
	require.NotNil(t, analysis.Result)
	assert.Equal(t, "Bright citrus.", analysis.Result.Summary)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/compounds/"+compound.ID+"/analyses", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var analyses []model.Analysis
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &analyses))
	assert.Len(t, analyses, 1)
}

func TestMux_Analyze_EmptyFormula(t *testing.T) {
	mux := newMux(newTestEnv(t, &stubLLM{response: stubAnalysisJSON}))
	compound := createTestCompound(t, mux, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/compounds/"+compound.ID+"/analyze", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "no formula items")
}

func TestMux_Analyze_TransportError(t *testing.T) {
	mux := newMux(newTestEnv(t, &stubLLM{err: errors.New("connection refused")}))
	compound := createTestCompound(t, mux, bergamotItems())

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/compounds/"+compound.ID+"/analyze", nil))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "analysis service unavailable")
}

func TestMux_Chat_RequiresAnalysis(t *testing.T) {
	mux := newMux(newTestEnv(t, &stubLLM{response: stubAnalysisJSON}))
	compound := createTestCompound(t, mux, bergamotItems())

	body := []byte(`{"question": "How does it smell?"}`)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/compounds/"+compound.ID+"/chat", bytes.NewReader(body)))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "no analysis yet")
}

func TestMux_Chat_AfterAnalysis(t *testing.T) {
	mux := newMux(newTestEnv(t, &stubLLM{response: stubAnalysisJSON}))
	compound := createTestCompound(t, mux, bergamotItems())

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/compounds/"+compound.ID+"/analyze", nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	body := []byte(`{"question": "How does it smell?"}`)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/compounds/"+compound.ID+"/chat", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["answer"])
}
