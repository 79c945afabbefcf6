package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/acmtools/ranksync/internal/config"
	"github.com/acmtools/ranksync/internal/fetch"
	"github.com/acmtools/ranksync/internal/predict"
	"github.com/acmtools/ranksync/internal/pubsub"
	"github.com/acmtools/ranksync/internal/store"
	"github.com/acmtools/ranksync/internal/syncer"
)

type fixture struct {
	engine *gin.Engine
	store  *store.Store
	broker *pubsub.Broker
	cfg    *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Auth.APIKey = "test-key"
	cfg.Auth.JWT.Secret = "test-secret"
	cfg.Auth.JWT.ExpireHours = 1

	st := store.New()
	broker := pubsub.NewBroker()
	client := fetch.NewClient(fetch.Options{BaseURL: "http://127.0.0.1:0", Timeout: time.Second})
	messenger := fetch.NewHTTPMessenger("http://127.0.0.1:0", time.Second)
	sy, err := syncer.New(st, client, messenger, broker, predict.NewEloPredictor(), 16)
	require.NoError(t, err)

	return &fixture{
		engine: NewRouter(cfg, st, sy, broker),
		store:  st,
		broker: broker,
		cfg:    cfg,
	}
}

func (f *fixture) request(t *testing.T, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func envelope(t *testing.T, w *httptest.ResponseRecorder) (int, json.RawMessage) {
	t.Helper()
	var resp struct {
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code, resp.Data
}

func TestGetContestInfoNotLoaded(t *testing.T) {
	f := newFixture(t)
	w := f.request(t, http.MethodGet, "/api/v1/contests/weekly-1/info", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	code, _ := envelope(t, w)
	require.Equal(t, -1, code)
}

func TestGetContestInfoLoaded(t *testing.T) {
	f := newFixture(t)
	f.store.ApplyContestInfo("weekly-1", &store.ContestInfo{UserNum: 77})

	w := f.request(t, http.MethodGet, "/api/v1/contests/weekly-1/info", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	code, data := envelope(t, w)
	require.Equal(t, 0, code)

	var info store.ContestInfo
	require.NoError(t, json.Unmarshal(data, &info))
	require.Equal(t, 77, info.UserNum)
}

func TestGetUserPredictionSelectsSource(t *testing.T) {
	f := newFixture(t)
	coarse := 3.25
	f.store.ApplyPredictions("weekly-1", []store.PredictionEntry{
		{Username: "alice", Region: "CN", Delta: &coarse},
	})
	f.store.SetUserRating("weekly-1", store.Key("CN", "alice"), 1500, 3, 9)

	w := f.request(t, http.MethodGet, "/api/v1/contests/weekly-1/users/CN/alice/predict?real=false", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, data := envelope(t, w)
	var p store.RealPrediction
	require.NoError(t, json.Unmarshal(data, &p))
	require.Equal(t, 3.25, *p.Delta)
	require.Zero(t, p.Rank)

	w = f.request(t, http.MethodGet, "/api/v1/contests/weekly-1/users/CN/alice/predict", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, data = envelope(t, w)
	require.NoError(t, json.Unmarshal(data, &p))
	require.Equal(t, 9, p.Rank)
}

func TestGetPreviousStatus(t *testing.T) {
	f := newFixture(t)
	f.store.BeginPreviousFetch("weekly-1")

	w := f.request(t, http.MethodGet, "/api/v1/contests/weekly-1/previous/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, data := envelope(t, w)
	require.JSONEq(t, `{"status":"loading"}`, string(data))
}

func TestRefreshRequiresToken(t *testing.T) {
	f := newFixture(t)
	w := f.request(t, http.MethodPost, "/api/v1/contests/weekly-1/refresh/deltas", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenIssueAndUse(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/v1/auth/token", `{"api_key":"wrong"}`, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.request(t, http.MethodPost, "/api/v1/auth/token", `{"api_key":"test-key","client":"overlay"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, data := envelope(t, w)
	var tok struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(data, &tok))
	require.NotEmpty(t, tok.Token)

	header := http.Header{"Authorization": []string{"Bearer " + tok.Token}}
	w = f.request(t, http.MethodPost, "/api/v1/contests/weekly-1/refresh/deltas", "", header)
	require.Equal(t, http.StatusOK, w.Code)
	_, data = envelope(t, w)
	require.JSONEq(t, `{"computed":0}`, string(data))
}

func TestContestEventStream(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.engine)
	defer ts.Close()

	// Publish before connecting: the replay cache must deliver it anyway.
	f.broker.Publish("weekly-1", pubsub.FormatEvent("previous", "succeeded"))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws/contests/weekly-1/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"stream":"previous","data":"succeeded"}`, string(msg))

	f.broker.Publish("weekly-1", pubsub.FormatEvent("ranking", "global/1"))
	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"stream":"ranking","data":"global/1"}`, string(msg))
}
