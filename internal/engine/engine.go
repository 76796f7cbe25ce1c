// Package engine orchestrates one sync run: discover the artists the
// library already holds, check each against the catalog under a
// bounded-concurrency ceiling, and download whatever releases are
// missing. No artist failure aborts a run; every failure lands in the
// summary and the durable failure log, and the run always completes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nvalden/discsync/internal/catalog"
	"github.com/nvalden/discsync/internal/constants"
	"github.com/nvalden/discsync/internal/domain"
	"github.com/nvalden/discsync/internal/logger"
	"github.com/nvalden/discsync/internal/resolver"
	"github.com/nvalden/discsync/internal/scanner"
	"github.com/nvalden/discsync/internal/store"
)

// ErrSyncActive is returned when a run is requested while another is
// still in flight. One run owns the library at a time.
var ErrSyncActive = errors.New("a sync run is already active")

// Catalog is the slice of the catalog client the engine drives.
type Catalog interface {
	SearchArtist(ctx context.Context, name string) (*domain.Artist, error)
	Discography(ctx context.Context, artistID int64) (*catalog.Discography, error)
	AlbumTracks(ctx context.Context, albumID int64) ([]domain.Track, error)
}

// AlbumDownloader fetches one album's tracks into a folder and reports
// a result per track.
type AlbumDownloader interface {
	Album(ctx context.Context, tracks []domain.Track, dir string, quality domain.Quality) []domain.DownloadResult
}

// Params configure one sync run. Zero values fall back to sane
// defaults; an empty Artist means the whole library.
type Params struct {
	Root         string
	Quality      domain.Quality
	Concurrency  int
	RecheckHours int
	FullSync     bool
	DryRun       bool
	Artist       string
}

// Engine drives sync runs against one state store. At most one run is
// active at a time.
type Engine struct {
	catalog    Catalog
	downloader AlbumDownloader
	db         *store.DB
	log        *logger.Logger
	base       *logger.Logger

	running atomic.Bool
	mu      sync.Mutex
	last    *domain.Summary
}

func New(cat Catalog, dl AlbumDownloader, db *store.DB, log *logger.Logger) *Engine {
	return &Engine{
		catalog:    cat,
		downloader: dl,
		db:         db,
		log:        log.WithComponent("engine"),
		base:       log,
	}
}

// Running reports whether a sync run is currently in flight.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// LastSummary returns the most recently completed run's summary, nil
// before the first run finishes.
func (e *Engine) LastSummary() *domain.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Sync runs one pass over the library and blocks until it completes.
// The error return covers preconditions only (a concurrent run, an
// unreadable library root); once artist checks start, failures are
// collected into the summary instead.
func (e *Engine) Sync(ctx context.Context, p Params) (*domain.Summary, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrSyncActive
	}
	defer e.running.Store(false)

	if p.Concurrency < 1 {
		p.Concurrency = constants.DefaultConcurrency
	}
	if p.Quality == "" {
		p.Quality = domain.Quality(constants.DefaultQuality)
	}
	if p.RecheckHours < 0 {
		p.RecheckHours = 0
	}

	runLog := e.log.WithRun(uuid.New().String())
	start := time.Now()

	artists, err := e.discover(p)
	if err != nil {
		return nil, fmt.Errorf("library scan: %w", err)
	}

	runLog.Info("Starting sync run",
		"artists", len(artists),
		"quality", string(p.Quality),
		"concurrency", p.Concurrency,
		"full_sync", p.FullSync,
		"dry_run", p.DryRun)

	res := resolver.New(p.Root, e.base)
	interval := time.Duration(p.RecheckHours) * time.Hour

	summary := &domain.Summary{Errors: []domain.ArtistError{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Concurrency)

	for _, artist := range artists {
		artist := artist
		g.Go(func() error {
			out := e.checkArtist(gctx, artist, res, interval, p)

			mu.Lock()
			if out.skipped {
				summary.ArtistsSkipped++
			} else {
				summary.ArtistsChecked++
			}
			summary.NewReleases += out.newReleases
			summary.TracksDownloaded += out.downloaded
			summary.TracksFailed += out.failed
			summary.Errors = append(summary.Errors, out.errs...)
			mu.Unlock()

			// sibling checks continue no matter what happened here
			return nil
		})
	}
	_ = g.Wait()

	if p.Artist == "" {
		if err := e.db.SetLastFullSync(time.Now()); err != nil {
			runLog.Warn("Failed to record full sync time", "error", err)
		}
	}

	summary.Duration = time.Since(start)
	runLog.Info("Sync run complete",
		"checked", summary.ArtistsChecked,
		"skipped", summary.ArtistsSkipped,
		"new_releases", summary.NewReleases,
		"downloaded", summary.TracksDownloaded,
		"failed", summary.TracksFailed,
		"errors", len(summary.Errors),
		"duration", summary.Duration)

	e.mu.Lock()
	e.last = summary
	e.mu.Unlock()
	return summary, nil
}

// discover lists the artists this run will check: the single requested
// name, or everything the library scan finds.
func (e *Engine) discover(p Params) ([]domain.DiscoveredArtist, error) {
	if p.Artist != "" {
		return []domain.DiscoveredArtist{{Name: p.Artist}}, nil
	}
	return scanner.New(p.Root, e.base).Discover()
}
