package downloader

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nvalden/discsync/internal/catalog"
	"github.com/nvalden/discsync/internal/decrypt"
	"github.com/nvalden/discsync/internal/domain"
	"github.com/nvalden/discsync/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "text"})
}

type fakeCall struct {
	tokens  []string
	quality domain.Quality
}

type fakeSource struct {
	mu      sync.Mutex
	calls   []fakeCall
	results map[domain.Quality]catalog.TrackURL
	err     error
}

func (f *fakeSource) TrackURLs(_ context.Context, tokens []string, q domain.Quality) ([]catalog.TrackURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, fakeCall{tokens: tokens, quality: q})
	if f.err != nil {
		return nil, f.err
	}
	out := make([]catalog.TrackURL, len(tokens))
	for i := range out {
		out[i] = f.results[q]
	}
	return out, nil
}

func (f *fakeSource) qualities() []domain.Quality {
	f.mu.Lock()
	defer f.mu.Unlock()

	qs := make([]domain.Quality, len(f.calls))
	for i, c := range f.calls {
		qs[i] = c.quality
	}
	return qs
}

func newTestDownloader(src URLSource) *Downloader {
	d := New(src, testLogger())
	d.ceiling = 5 * time.Second
	d.firstByte = 200 * time.Millisecond
	d.inactivity = 200 * time.Millisecond
	d.retryBase = 10 * time.Millisecond
	d.retryCap = 20 * time.Millisecond
	d.interTrackDelay = time.Millisecond
	return d
}

func TestResolveURL_MediaFirst(t *testing.T) {
	src := &fakeSource{results: map[domain.Quality]catalog.TrackURL{
		domain.QualityFLAC: {URL: "https://cdn.example/signed.flac"},
	}}
	d := newTestDownloader(src)

	track := &domain.Track{ID: 1, TrackToken: "tok-1", MD5Origin: strings.Repeat("a", 32)}
	got, err := d.resolveURL(context.Background(), track, domain.QualityFLAC)
	if err != nil {
		t.Fatalf("resolveURL failed: %v", err)
	}
	if got.url != "https://cdn.example/signed.flac" {
		t.Errorf("Expected signed URL, got %q", got.url)
	}
	if got.quality != domain.QualityFLAC {
		t.Errorf("Expected quality flac, got %q", got.quality)
	}

	if len(src.calls) != 1 {
		t.Fatalf("Expected 1 media call, got %d", len(src.calls))
	}
	if len(src.calls[0].tokens) != 1 || src.calls[0].tokens[0] != "tok-1" {
		t.Errorf("Expected token tok-1, got %v", src.calls[0].tokens)
	}
}

func TestResolveURL_TierFallbackOrder(t *testing.T) {
	src := &fakeSource{results: map[domain.Quality]catalog.TrackURL{
		domain.QualityFLAC:   {Err: catalog.ErrUnavailable},
		domain.QualityMP3320: {URL: "https://cdn.example/signed.mp3"},
	}}
	d := newTestDownloader(src)

	track := &domain.Track{ID: 2, TrackToken: "tok-2"}
	got, err := d.resolveURL(context.Background(), track, domain.QualityFLAC)
	if err != nil {
		t.Fatalf("resolveURL failed: %v", err)
	}
	if got.quality != domain.QualityMP3320 {
		t.Errorf("Expected fallback to mp3_320, got %q", got.quality)
	}

	want := []domain.Quality{domain.QualityFLAC, domain.QualityMP3320}
	qs := src.qualities()
	if len(qs) != len(want) {
		t.Fatalf("Expected %d media calls, got %d", len(want), len(qs))
	}
	for i := range want {
		if qs[i] != want[i] {
			t.Errorf("Call %d: expected tier %q, got %q", i, want[i], qs[i])
		}
	}
}

func TestResolveURL_RestrictedFallsToLegacy(t *testing.T) {
	geo := catalog.TrackURL{Err: catalog.ErrGeoRestricted}
	src := &fakeSource{results: map[domain.Quality]catalog.TrackURL{
		domain.QualityFLAC:   geo,
		domain.QualityMP3320: geo,
		domain.QualityMP3128: geo,
	}}
	d := newTestDownloader(src)

	md5 := strings.Repeat("b", 32)
	track := &domain.Track{
		ID:             3,
		TrackToken:     "tok-3",
		MD5Origin:      md5,
		MediaVersion:   "4",
		FileSizeMP3320: 9000,
	}
	got, err := d.resolveURL(context.Background(), track, domain.QualityFLAC)
	if err != nil {
		t.Fatalf("resolveURL failed: %v", err)
	}

	want := decrypt.LegacyURL(md5, domain.QualityMP3320.Code(), "3", "4")
	if got.url != want {
		t.Errorf("Expected legacy URL %q, got %q", want, got.url)
	}
	if got.quality != domain.QualityMP3320 {
		t.Errorf("Expected the tier with a size hint, got %q", got.quality)
	}
}

func TestResolveURL_LegacyLowestTierWithoutSizes(t *testing.T) {
	d := newTestDownloader(&fakeSource{})

	track := &domain.Track{ID: 4, MD5Origin: strings.Repeat("c", 32), MediaVersion: "1"}
	got, err := d.resolveURL(context.Background(), track, domain.QualityFLAC)
	if err != nil {
		t.Fatalf("resolveURL failed: %v", err)
	}
	if got.quality != domain.QualityMP3128 {
		t.Errorf("Expected lowest tier without size hints, got %q", got.quality)
	}
}

func TestResolveURL_GeoSurfacesWhenNoLegacy(t *testing.T) {
	geo := catalog.TrackURL{Err: catalog.ErrGeoRestricted}
	src := &fakeSource{results: map[domain.Quality]catalog.TrackURL{
		domain.QualityFLAC:   geo,
		domain.QualityMP3320: geo,
		domain.QualityMP3128: geo,
	}}
	d := newTestDownloader(src)

	track := &domain.Track{ID: 5, TrackToken: "tok-5"}
	_, err := d.resolveURL(context.Background(), track, domain.QualityFLAC)
	if err == nil {
		t.Fatal("Expected error when every tier is restricted and no legacy source exists")
	}
	if !errors.Is(err, catalog.ErrGeoRestricted) {
		t.Errorf("Expected geo restriction in the chain, got %v", err)
	}
	if !strings.Contains(err.Error(), "no md5 origin") {
		t.Errorf("Expected legacy diagnosis in message, got %q", err.Error())
	}
}

func TestResolveURL_NamesMissingPreconditions(t *testing.T) {
	d := newTestDownloader(&fakeSource{})

	track := &domain.Track{ID: 6}
	_, err := d.resolveURL(context.Background(), track, domain.QualityFLAC)
	if err == nil {
		t.Fatal("Expected error for a track with no access hints")
	}
	for _, want := range []string{"no track token", "no md5 origin"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in diagnosis, got %q", want, err.Error())
		}
	}
}

func TestResolveURL_ExpiredToken(t *testing.T) {
	src := &fakeSource{}
	d := newTestDownloader(src)

	track := &domain.Track{
		ID:               8,
		TrackToken:       "tok-8",
		TrackTokenExpire: time.Now().Add(-time.Hour).Unix(),
	}
	_, err := d.resolveURL(context.Background(), track, domain.QualityFLAC)
	if err == nil {
		t.Fatal("Expected error for expired token")
	}
	if !strings.Contains(err.Error(), "track token expired") {
		t.Errorf("Expected expiry diagnosis, got %q", err.Error())
	}
	if len(src.calls) != 0 {
		t.Errorf("Expected no media calls for expired token, got %d", len(src.calls))
	}
}
