package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeDashboard(t *testing.T) *httptest.Server {
	t.Helper()
	authorized := func(r *http.Request) bool { return r.Header.Get("Authorization") == "Bearer tok" }

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "Secret123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"INVALID_CREDENTIALS"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"tok","expires_in":86400}`))
	})
	mux.HandleFunc("/api/profile/image", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, header, err := r.FormFile("profile_image")
		if !assert.NoError(t, err) {
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"image_path":"/static/assets/img/profile_uploads/` + header.Filename + `"}`))
	})
	mux.HandleFunc("/api/dashboard/stats", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"total_users":3,"active_sessions":1,"daily_requests":9}`))
	})
	upgrader := websocket.Upgrader{}
	mux.HandleFunc("/ws/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]interface{}{"type": "stats", "content": map[string]int{"total_users": 3}})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_, _, _ = conn.ReadMessage()
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientLoginAndStats(t *testing.T) {
	srv := fakeDashboard(t)
	c := newClient(srv.URL + "/")
	ctx := context.Background()

	err := c.Login(ctx, "alice", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status: 401")

	require.NoError(t, c.Login(ctx, "alice", "Secret123"))
	assert.Equal(t, "tok", c.token)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(9), stats["daily_requests"])
}

func TestClientUploadImage(t *testing.T) {
	srv := fakeDashboard(t)
	c := newClient(srv.URL)
	require.NoError(t, c.Login(context.Background(), "alice", "Secret123"))

	path := filepath.Join(t.TempDir(), "me.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))

	stored, err := c.UploadImage(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "/static/assets/img/profile_uploads/me.png", stored)

	_, err = c.UploadImage(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestClientWatch(t *testing.T) {
	srv := fakeDashboard(t)
	c := newClient(srv.URL)
	require.NoError(t, c.Login(context.Background(), "alice", "Secret123"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var frames []map[string]interface{}
	err := c.Watch(ctx, func(stats map[string]interface{}) {
		frames = append(frames, stats)
	})
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, float64(3), frames[0]["total_users"])
}
