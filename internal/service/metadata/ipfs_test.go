package metadata

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKubo serves the two RPC calls the pinner makes.
func fakeKubo(t *testing.T, add http.HandlerFunc) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0/add", add)
	mux.HandleFunc("/api/v0/id", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"ID": "12D3KooWtest"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestIPFSPinnerPin(t *testing.T) {
	var body string
	var pin string
	addr := fakeKubo(t, func(w http.ResponseWriter, r *http.Request) {
		pin = r.URL.Query().Get("pin")
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"Name": "bafkreitest",
			"Hash": "bafkreitest",
			"Size": "17",
		})
	})

	p := NewIPFSPinner(addr, 5*time.Second)
	cid, err := p.Pin(context.Background(), []byte(`{"name":"Hello"}`))
	require.NoError(t, err)
	assert.Equal(t, "bafkreitest", cid)
	assert.Equal(t, "true", pin)
	assert.Contains(t, body, `{"name":"Hello"}`)

	assert.NoError(t, p.HealthCheck(context.Background()))
}

func TestIPFSPinnerPropagatesNodeErrors(t *testing.T) {
	addr := fakeKubo(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"Message": "blockstore full",
			"Code":    0,
			"Type":    "error",
		})
	})

	_, err := NewIPFSPinner(addr, 5*time.Second).Pin(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ipfs add")
}

func TestIPFSPinnerHonoursContext(t *testing.T) {
	release := make(chan struct{})
	addr := fakeKubo(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"Hash": "bafkreilate"})
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewIPFSPinner(addr, 5*time.Second).Pin(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIPFSPinnerHealthCheckUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	assert.Error(t, NewIPFSPinner(addr, time.Second).HealthCheck(context.Background()))
}
