package downloader

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nvalden/discsync/internal/catalog"
	"github.com/nvalden/discsync/internal/domain"
)

// mp3Payload builds a deterministic body shorter than the encrypted
// stripe, so the decrypt chain passes it through byte for byte. The
// leading frame-sync byte also keeps the depad stage hands-off.
func mp3Payload(n int) []byte {
	p := make([]byte, n)
	p[0] = 0xff
	for i := 1; i < n; i++ {
		p[i] = byte(i * 7)
	}
	return p
}

func sourceFor(url string) *fakeSource {
	return &fakeSource{results: map[domain.Quality]catalog.TrackURL{
		domain.QualityMP3320: {URL: url},
	}}
}

func TestTrack_ExistingFileShortCircuit(t *testing.T) {
	src := &fakeSource{}
	d := newTestDownloader(src)
	dir := t.TempDir()

	// The mp3 fallback of an earlier run satisfies a FLAC request.
	existing := filepath.Join(dir, "07 - Held.mp3")
	if err := os.WriteFile(existing, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	track := &domain.Track{ID: 7, Title: "Held", TrackNumber: 7, TrackToken: "tok-7"}
	path, err := d.Track(context.Background(), track, dir, domain.QualityFLAC)
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if path != existing {
		t.Errorf("Expected the existing path, got %q", path)
	}
	if len(src.calls) != 0 {
		t.Errorf("Expected no URL resolution for an existing file, got %d calls", len(src.calls))
	}
}

func TestTrack_WritesStream(t *testing.T) {
	payload := mp3Payload(1500)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write(payload)
	}))
	defer srv.Close()

	d := newTestDownloader(sourceFor(srv.URL))
	dir := t.TempDir()

	track := &domain.Track{ID: 3, Title: "Mirror", TrackNumber: 3, TrackToken: "tok-3"}
	path, err := d.Track(context.Background(), track, dir, domain.QualityMP3320)
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	if want := filepath.Join(dir, "03 - Mirror.mp3"); path != want {
		t.Errorf("Expected path %q, got %q", want, path)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read download: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Downloaded bytes differ: %d vs %d", len(got), len(payload))
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("Expected a single fetch, got %d", n)
	}
}

func TestTrack_EmptyStreamNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		// 200 with Content-Length: 0
	}))
	defer srv.Close()

	d := newTestDownloader(sourceFor(srv.URL))

	track := &domain.Track{ID: 4, Title: "Hollow", TrackNumber: 1, TrackToken: "tok-4"}
	_, err := d.Track(context.Background(), track, t.TempDir(), domain.QualityMP3320)
	if !errors.Is(err, ErrDownloadEmpty) {
		t.Fatalf("Expected ErrDownloadEmpty, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("Expected no retry for an empty stream, got %d fetches", n)
	}
}

func TestTrack_RetriesTransientFailures(t *testing.T) {
	payload := mp3Payload(800)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	d := newTestDownloader(sourceFor(srv.URL))
	dir := t.TempDir()

	track := &domain.Track{ID: 5, Title: "Third Time", TrackNumber: 2, TrackToken: "tok-5"}
	path, err := d.Track(context.Background(), track, dir, domain.QualityMP3320)
	if err != nil {
		t.Fatalf("Track failed after retries: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Errorf("Expected 3 fetch attempts, got %d", n)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read download: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("Downloaded bytes differ after retry")
	}
}

func TestTrack_GivesUpAfterRetries(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	}))
	defer srv.Close()

	d := newTestDownloader(sourceFor(srv.URL))
	dir := t.TempDir()

	track := &domain.Track{ID: 6, Title: "Stubborn", TrackNumber: 4, TrackToken: "tok-6"}
	_, err := d.Track(context.Background(), track, dir, domain.QualityMP3320)
	if err == nil {
		t.Fatal("Expected failure when every attempt dies")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("Expected the attempt count in the error, got %q", err.Error())
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", n)
	}

	// No partial file may survive a failed download.
	if _, statErr := os.Stat(filepath.Join(dir, "04 - Stubborn.mp3")); !os.IsNotExist(statErr) {
		t.Errorf("Expected no partial file, stat: %v", statErr)
	}
}

func TestTrack_StallTimesOut(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		// Hold the response open without sending anything.
		<-r.Context().Done()
	}))
	defer srv.Close()

	d := newTestDownloader(sourceFor(srv.URL))

	track := &domain.Track{ID: 8, Title: "Silence", TrackNumber: 1, TrackToken: "tok-8"}
	start := time.Now()
	_, err := d.Track(context.Background(), track, t.TempDir(), domain.QualityMP3320)
	if !errors.Is(err, ErrDownloadTimeout) {
		t.Fatalf("Expected ErrDownloadTimeout, got %v", err)
	}
	// Stalls are retried; every attempt must have hit the watchdog.
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Errorf("Expected 3 stalled attempts, got %d", n)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Expected the watchdog to cut attempts short, took %v", elapsed)
	}
}

func TestTrack_CeilingCancelsEndlessStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		block := make([]byte, 6144)
		for i := range block {
			block[i] = byte(i)
		}
		for {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			if _, err := w.Write(block); err != nil {
				return
			}
			flusher.Flush()
		}
	}))
	defer srv.Close()

	d := newTestDownloader(sourceFor(srv.URL))
	d.ceiling = 300 * time.Millisecond
	dir := t.TempDir()

	track := &domain.Track{ID: 9, Title: "Stream Forever", TrackNumber: 1, TrackToken: "tok-9"}
	start := time.Now()
	_, err := d.Track(context.Background(), track, dir, domain.QualityMP3320)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected the ceiling deadline, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected the ceiling to end the track quickly, took %v", elapsed)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "01 - Stream Forever.mp3")); !os.IsNotExist(statErr) {
		t.Errorf("Expected the partial file removed, stat: %v", statErr)
	}
}

func TestAlbum_PerTrackResults(t *testing.T) {
	payload := mp3Payload(1200)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	d := newTestDownloader(sourceFor(srv.URL))
	dir := t.TempDir()

	tracks := []domain.Track{
		{ID: 21, Title: "Opener", TrackNumber: 1, TrackToken: "tok-21"},
		{ID: 22, Title: "Ghost", TrackNumber: 2}, // no access hints at all
	}
	results := d.Album(context.Background(), tracks, dir, domain.QualityMP3320)

	if len(results) != 2 {
		t.Fatalf("Expected one result per track, got %d", len(results))
	}
	if !results[0].Success || results[0].TrackID != 21 {
		t.Errorf("Expected the first track downloaded, got %+v", results[0])
	}
	if want := filepath.Join(dir, "01 - Opener.mp3"); results[0].Path != want {
		t.Errorf("Expected path %q, got %q", want, results[0].Path)
	}
	if _, err := os.Stat(results[0].Path); err != nil {
		t.Errorf("Expected the file on disk: %v", err)
	}

	if results[1].Success || results[1].TrackID != 22 {
		t.Errorf("Expected the second track failed, got %+v", results[1])
	}
	if !strings.Contains(results[1].Error, "no stream source") {
		t.Errorf("Expected the resolution diagnosis, got %q", results[1].Error)
	}
}
