package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"rumorcore/internal/membership"
)

func TestClient_Stats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/stats", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]float64{"Rounds": 3})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, float64(3), stats["Rounds"])
}

func TestClient_Rumors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]map[string]string{
			"7": {"phase": "B", "age": "2"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	rumors, err := c.Rumors(context.Background())
	require.NoError(t, err)
	require.Len(t, rumors, 1)
	require.EqualValues(t, 7, rumors[0].ID)
	require.Equal(t, "B", rumors[0].Phase)
	require.Equal(t, 2, rumors[0].Age)
}

func TestClient_Bootstrap(t *testing.T) {
	reg := membership.NewRegistry(1, "127.0.0.1:9001")
	srv := httptest.NewServer(http.HandlerFunc(reg.HTTPHandler))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Bootstrap(context.Background(), 2, "127.0.0.1:9002")
	require.NoError(t, err)
	require.True(t, resp.Success)
}

func TestClient_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Stats(context.Background())
	require.Error(t, err)
}
