package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFetcher(server *httptest.Server) *Fetcher {
	return New(
		WithHTTPClient(server.Client()),
		WithPollInterval(time.Millisecond),
	)
}

func TestFetch(t *testing.T) {
	content := []byte("artifact bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "hadoop-3.3.6.tar.gz")
	if err := newTestFetcher(server).Fetch(context.Background(), server.URL, dest, nil); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading destination: %v", err)
	}
	if string(data) != string(content) {
		t.Errorf("destination content mismatch")
	}

	// No temp file may survive a successful fetch.
	if _, err := os.Stat(dest + TempSuffix); !os.IsNotExist(err) {
		t.Errorf("temp file left behind after success")
	}
}

func TestFetch_IdempotentWhenDestinationExists(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("artifact"))
	}))
	defer server.Close()

	f := newTestFetcher(server)
	dest := filepath.Join(t.TempDir(), "artifact.tar.gz")

	if err := f.Fetch(context.Background(), server.URL, dest, nil); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	if err := f.Fetch(context.Background(), server.URL, dest, nil); err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}

	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1 (second call must skip the network)", got)
	}
}

func TestFetch_RemovesStaleEmptyDestination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fresh content"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "artifact.tar.gz")
	// A zero-length destination is the debris of a prior interrupted run.
	if err := os.WriteFile(dest, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if err := newTestFetcher(server).Fetch(context.Background(), server.URL, dest, nil); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	data, _ := os.ReadFile(dest)
	if string(data) != "fresh content" {
		t.Errorf("stale destination was not refetched, got %q", data)
	}
}

func TestFetch_AtomicityAfterInterruptedTransfer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("complete artifact"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "artifact.tar.gz")
	// Simulate a crash mid-transfer: temp file exists, destination does not.
	if err := os.WriteFile(dest+TempSuffix, []byte("partial garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := newTestFetcher(server).Fetch(context.Background(), server.URL, dest, nil); err != nil {
		t.Fatalf("Fetch after interruption failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "complete artifact" {
		t.Errorf("destination holds corrupt content %q", data)
	}
}

func TestFetch_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "artifact.tar.gz")
	err := newTestFetcher(server).Fetch(context.Background(), server.URL, dest, nil)

	var fe *Error
	if !errors.As(err, &fe) || fe.Kind != TransportFailure {
		t.Fatalf("error = %v, want TransportFailure", err)
	}

	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Errorf("destination exists after failed fetch")
	}
	if _, statErr := os.Stat(dest + TempSuffix); !os.IsNotExist(statErr) {
		t.Errorf("temp file left behind after failed fetch")
	}
}

func TestFetch_IncompleteTransfer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Announce more bytes than are sent.
		w.Header().Set("Content-Length", "100")
		w.Write([]byte("short"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "artifact.tar.gz")
	err := newTestFetcher(server).Fetch(context.Background(), server.URL, dest, nil)

	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *fetch.Error", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Errorf("destination exists after incomplete transfer")
	}
}

func TestFetch_EmptyBodyIsIncomplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "artifact.tar.gz")
	err := newTestFetcher(server).Fetch(context.Background(), server.URL, dest, nil)

	var fe *Error
	if !errors.As(err, &fe) || fe.Kind != IncompleteTransfer {
		t.Fatalf("error = %v, want IncompleteTransfer", err)
	}
}

func TestFetch_ReportsProgress(t *testing.T) {
	content := make([]byte, 64*1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.Write(content)
	}))
	defer server.Close()

	var samples []Progress
	sink := func(p Progress) { samples = append(samples, p) }

	dest := filepath.Join(t.TempDir(), "artifact.tar.gz")
	if err := newTestFetcher(server).Fetch(context.Background(), server.URL, dest, sink); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if len(samples) == 0 {
		t.Fatal("no progress samples emitted")
	}
	last := samples[len(samples)-1]
	if last.BytesReceived != int64(len(content)) {
		t.Errorf("final sample received %d bytes, want %d", last.BytesReceived, len(content))
	}
	if last.Percent != 100 {
		t.Errorf("final sample percent = %d, want 100", last.Percent)
	}
}
