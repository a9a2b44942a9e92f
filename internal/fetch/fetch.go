package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// TempSuffix is appended to the destination path while a transfer is in
// flight. The rename from temp to destination is the single commit point.
const TempSuffix = ".partial"

// ErrorKind classifies fetch failures.
type ErrorKind int

const (
	// TransportFailure covers network, DNS, and HTTP-status errors. Not
	// retried here: the whole provisioning run is the retry mechanism.
	TransportFailure ErrorKind = iota

	// IncompleteTransfer means the transfer ended but the resulting file
	// is absent, zero-length, or shorter than the announced size.
	IncompleteTransfer
)

func (k ErrorKind) String() string {
	switch k {
	case TransportFailure:
		return "transport failure"
	case IncompleteTransfer:
		return "incomplete transfer"
	default:
		return "unknown"
	}
}

// Error is a classified fetch failure.
type Error struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetching %s: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Progress is a point-in-time sample of an in-flight transfer.
// Percent is -1 while the total size is unknown.
type Progress struct {
	BytesReceived int64
	BytesTotal    int64
	Percent       int
}

// ProgressFunc receives progress samples. It is called from the fetching
// goroutine between polls; it must not block.
type ProgressFunc func(Progress)

// Fetcher downloads artifacts over HTTP.
type Fetcher struct {
	client    *http.Client
	pollEvery time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithPollInterval sets how often progress samples are emitted.
func WithPollInterval(d time.Duration) Option {
	return func(f *Fetcher) { f.pollEvery = d }
}

// New creates a Fetcher with the given options.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    http.DefaultClient,
		pollEvery: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads url to dest. If dest already exists with non-zero length
// the fetch succeeds immediately without network access; a zero-length dest
// is removed as the debris of a prior interrupted run and refetched.
//
// The transfer runs asynchronously while the calling goroutine polls for
// completion, emitting a progress sample to sink on each poll. Every exit
// path stops the poll ticker and removes the temp file on failure.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string, sink ProgressFunc) error {
	if info, err := os.Stat(dest); err == nil {
		if info.Size() > 0 {
			return nil
		}
		// Zero-length destination: a prior failed or interrupted download.
		if err := os.Remove(dest); err != nil {
			return &Error{Kind: TransportFailure, URL: url, Err: err}
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return &Error{Kind: TransportFailure, URL: url, Err: err}
	}

	tmp := dest + TempSuffix
	// Leftover temp from a crashed run: restart the transfer from scratch.
	_ = os.Remove(tmp)

	var received, total atomic.Int64
	total.Store(-1)
	done := make(chan error, 1)

	go f.transfer(ctx, url, tmp, &received, &total, done)

	ticker := time.NewTicker(f.pollEvery)
	defer ticker.Stop()

	var transferErr error
poll:
	for {
		select {
		case transferErr = <-done:
			break poll
		case <-ticker.C:
			emit(sink, received.Load(), total.Load())
		}
	}

	if transferErr != nil {
		_ = os.Remove(tmp)
		return &Error{Kind: TransportFailure, URL: url, Err: transferErr}
	}

	// Final sample so the caller always sees 100%.
	emit(sink, received.Load(), total.Load())

	info, err := os.Stat(tmp)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(tmp)
		return &Error{Kind: IncompleteTransfer, URL: url, Err: err}
	}
	if want := total.Load(); want > 0 && info.Size() != want {
		_ = os.Remove(tmp)
		return &Error{
			Kind: IncompleteTransfer,
			URL:  url,
			Err:  fmt.Errorf("got %d of %d bytes", info.Size(), want),
		}
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return &Error{Kind: IncompleteTransfer, URL: url, Err: err}
	}
	return nil
}

// transfer performs the HTTP GET and writes the body to tmp, publishing byte
// counts through the shared counters. It reports exactly one result on done.
func (f *Fetcher) transfer(ctx context.Context, url, tmp string, received, total *atomic.Int64, done chan<- error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		done <- fmt.Errorf("creating request: %w", err)
		return
	}
	req.Header.Set("User-Agent", "hadup-fetch")

	resp, err := f.client.Do(req)
	if err != nil {
		done <- err
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		done <- fmt.Errorf("server returned status %d", resp.StatusCode)
		return
	}
	total.Store(resp.ContentLength)

	out, err := os.Create(tmp)
	if err != nil {
		done <- fmt.Errorf("creating temp file: %w", err)
		return
	}

	_, copyErr := io.Copy(out, io.TeeReader(resp.Body, countingWriter{received}))
	closeErr := out.Close()
	if copyErr != nil {
		done <- fmt.Errorf("reading download stream: %w", copyErr)
		return
	}
	done <- closeErr
}

// countingWriter publishes the running byte count for the poll loop.
type countingWriter struct {
	n *atomic.Int64
}

func (w countingWriter) Write(p []byte) (int, error) {
	w.n.Add(int64(len(p)))
	return len(p), nil
}

func emit(sink ProgressFunc, received, total int64) {
	if sink == nil {
		return
	}
	percent := -1
	if total > 0 {
		percent = int(received * 100 / total)
	}
	sink(Progress{BytesReceived: received, BytesTotal: total, Percent: percent})
}
