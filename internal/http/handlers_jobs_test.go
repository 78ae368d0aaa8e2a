package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/streamnotify/channel-resolver/internal/core"
	"github.com/streamnotify/channel-resolver/internal/domain/model"
	"github.com/streamnotify/channel-resolver/internal/mocks"
)

func getJob(t *testing.T, store core.JobStore, jobID string) *httptest.ResponseRecorder {
	t.Helper()
	handler := &JobHandlers{Store: store}
	mux := http.NewServeMux()
	mux.Handle("GET /jobs/{id}", http.HandlerFunc(handler.GetJob))

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+jobID, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestGetJobFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockJobStore(ctrl)

	rec := model.NewJobRecord("@someone", "user@example.com", time.Now().UTC())
	store.EXPECT().Get(gomock.Any(), rec.JobID).Return(rec, nil)

	w := getJob(t, store, rec.JobID)
	require.Equal(t, http.StatusOK, w.Code)

	var got model.JobRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, rec.JobID, got.JobID)
	assert.Equal(t, model.JobStatusQueued, got.Status)
}

func TestGetJobNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockJobStore(ctrl)

	store.EXPECT().
		Get(gomock.Any(), "job_gone").
		Return(model.JobRecord{}, core.ErrRecordNotFound)

	w := getJob(t, store, "job_gone")
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp["error"])
}

func TestGetJobStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockJobStore(ctrl)

	store.EXPECT().
		Get(gomock.Any(), "job_1").
		Return(model.JobRecord{}, errors.New("store down"))

	w := getJob(t, store, "job_1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthz(t *testing.T) {
	router := NewRouter(RouterServices{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	head := httptest.NewRequest(http.MethodHead, "/healthz", nil)
	hw := httptest.NewRecorder()
	router.ServeHTTP(hw, head)
	assert.Equal(t, http.StatusOK, hw.Code)
	assert.Empty(t, hw.Body.String())
}

func TestRouterMethodNotAllowed(t *testing.T) {
	router := NewRouter(RouterServices{})

	req := httptest.NewRequest(http.MethodGet, "/submit", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
