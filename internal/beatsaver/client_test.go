package beatsaver_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"beatmatcher/internal/beatsaver"
	"beatmatcher/internal/config"
	"beatmatcher/internal/services"
)

func testClient(t *testing.T, handler http.Handler) *beatsaver.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := config.Default().BeatSaver
	cfg.BaseURL = server.URL
	cfg.RequestsPerSecond = 1000
	client, err := beatsaver.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestSearchTextParsesDocs(t *testing.T) {
	var gotPath, gotQuery string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"docs":[
			{"id":"1a2b","name":"One More Time","metadata":{"songName":"One More Time","songAuthorName":"Daft Punk"},"stats":{"upvotes":50,"downvotes":5,"downloads":1000,"score":0.9}},
			{"id":"","name":"broken record"},
			{"id":"ffff","name":"Valid","metadata":{"songName":"Valid"}}
		]}`))
	}))

	docs, err := client.SearchText(context.Background(), "one more time", 0)
	if err != nil {
		t.Fatalf("SearchText: %v", err)
	}
	if gotPath != "/search/text/0" {
		t.Fatalf("path = %q, want /search/text/0", gotPath)
	}
	if gotQuery != "one more time" {
		t.Fatalf("q = %q", gotQuery)
	}
	if len(docs) != 2 {
		t.Fatalf("docs = %d, want 2 (invalid record dropped)", len(docs))
	}
	if docs[0].ID != "1a2b" || docs[1].ID != "ffff" {
		t.Fatalf("unexpected ids: %s, %s", docs[0].ID, docs[1].ID)
	}
	if docs[0].SongAuthor() != "Daft Punk" {
		t.Fatalf("SongAuthor = %q", docs[0].SongAuthor())
	}
}

func TestSearchTextRejectsEmptyQuery(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not be made")
	}))
	if _, err := client.SearchText(context.Background(), "  ", 0); !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("err = %v, want ErrPermanent", err)
	}
}

func TestClientRateLimitClassification(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.SearchText(context.Background(), "anything", 0)
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	got, ok := services.RetryAfterFromError(err)
	if !ok || got != 7*time.Second {
		t.Fatalf("RetryAfter = %v (ok=%v), want 7s", got, ok)
	}
}

func TestClientServerErrorIsTransient(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	_, err := client.SearchText(context.Background(), "anything", 0)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient", err)
	}
	if !services.IsRetryable(err) {
		t.Fatalf("5xx should be retryable")
	}
}

func TestClientClientErrorIsPermanent(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	_, err := client.Map(context.Background(), "dead")
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("err = %v, want ErrPermanent", err)
	}
	if services.IsRetryable(err) {
		t.Fatalf("4xx must not be retryable")
	}
}

func TestMapFetchesDetail(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/maps/id/1a2b" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"id":"1a2b","name":"One More Time","versions":[
			{"hash":"old","createdAt":"2020-01-01T00:00:00Z","downloadURL":"https://cdn.example/old.zip"},
			{"hash":"new","createdAt":"2023-06-01T00:00:00Z","downloadURL":"https://cdn.example/new.zip"}
		]}`))
	}))

	detail, err := client.Map(context.Background(), "1a2b")
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	version := detail.LatestVersion()
	if version == nil || version.Hash != "new" {
		t.Fatalf("LatestVersion = %+v, want hash new", version)
	}
}

func TestDownloadToStreams(t *testing.T) {
	payload := []byte("PK\x03\x04 archive bytes")
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))

	var buf bytes.Buffer
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	n, err := client.DownloadTo(context.Background(), server.URL+"/archive.zip", &buf)
	if err != nil {
		t.Fatalf("DownloadTo: %v", err)
	}
	if n != int64(len(payload)) || !bytes.Equal(buf.Bytes(), payload) {
		t.Fatalf("downloaded %d bytes, want %d", n, len(payload))
	}
}

func TestUpvoteRatio(t *testing.T) {
	cases := []struct {
		name     string
		up, down int
		want     float64
	}{
		{"no votes", 0, 0, 0.5},
		{"unanimous large", 100, 0, 1.0},
		{"split large", 50, 50, 0.5},
		{"few votes damped", 2, 0, 0.6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stats := beatsaver.MapStats{Upvotes: tc.up, Downvotes: tc.down}
			got := stats.UpvoteRatio()
			if diff := got - tc.want; diff > 0.0001 || diff < -0.0001 {
				t.Fatalf("UpvoteRatio(%d, %d) = %v, want %v", tc.up, tc.down, got, tc.want)
			}
		})
	}
}
