package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/nvalden/discsync/internal/domain"
	"github.com/nvalden/discsync/internal/logger"
	"github.com/nvalden/discsync/internal/resolver"
	"github.com/nvalden/discsync/internal/storage"
)

// checkOutcome is what one artist check contributes to the summary.
type checkOutcome struct {
	skipped     bool
	newReleases int
	downloaded  int
	failed      int
	errs        []domain.ArtistError
}

// checkArtist runs the pipeline for one discovered artist: resolve the
// name against the catalog, fetch the discography, map releases onto
// disk and download the ones that are missing. Nothing escapes: a
// panic or error in one check must never cost a sibling its turn.
func (e *Engine) checkArtist(ctx context.Context, discovered domain.DiscoveredArtist, res *resolver.Resolver, interval time.Duration, p Params) (out checkOutcome) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Panic during artist check", "artist", discovered.Name, "panic", r)
			out.errs = append(out.errs, domain.ArtistError{
				Artist: discovered.Name,
				Error:  fmt.Sprintf("panic: %v", r),
			})
		}
	}()

	artist, err := e.catalog.SearchArtist(ctx, discovered.Name)
	if err != nil {
		return e.checkFailed(discovered.Name, 0, fmt.Errorf("resolve artist: %w", err))
	}

	log := e.log.WithArtist(artist.ID, artist.Name)

	state, err := e.db.GetState(artist.ID)
	if err != nil {
		log.Warn("State lookup failed", "error", err)
		state = nil
	}

	// The boundary is strict: checked exactly one interval ago means
	// due again.
	if !p.FullSync && state != nil && time.Since(state.LastChecked) < interval {
		log.Debug("Skipping artist, checked recently", "last_checked", state.LastChecked)
		out.skipped = true
		return out
	}

	disc, err := e.catalog.Discography(ctx, artist.ID)
	if err != nil {
		return e.checkFailed(artist.Name, artist.ID, fmt.Errorf("discography: %w", err))
	}

	resolved := res.Resolve(artist.Name, disc.All())
	var fresh []domain.ResolvedRelease
	for _, rel := range resolved {
		if !rel.Exists {
			fresh = append(fresh, rel)
		}
	}
	out.newReleases = len(fresh)
	log.Debug("Resolved discography", "releases", len(resolved), "new", len(fresh))

	lastRelease := ""
	if state != nil {
		lastRelease = state.LastReleaseDate
	}

	switch {
	case len(fresh) == 0:
		// nothing to do, the check still counts
	case p.DryRun:
		for _, rel := range fresh {
			log.Info("Would download release",
				"release", rel.Title,
				"type", string(rel.Type),
				"tracks", rel.TrackCount,
				"path", rel.Path)
			out.downloaded += len(mockResults(rel))
		}
	default:
		// All folders exist before the first track streams.
		if err := res.EnsureFolders(fresh); err != nil {
			return e.checkFailed(artist.Name, artist.ID, fmt.Errorf("create folders: %w", err))
		}
		for _, rel := range fresh {
			downloaded, failed, relErr := e.downloadRelease(ctx, log, artist, rel, p.Quality)
			out.downloaded += downloaded
			out.failed += failed
			if relErr != "" {
				out.errs = append(out.errs, domain.ArtistError{Artist: artist.Name, Error: relErr})
			}
			if downloaded > 0 && rel.ReleaseDate > lastRelease {
				lastRelease = rel.ReleaseDate
			}
		}
	}

	if err := e.db.UpsertState(&domain.SyncState{
		ArtistID:        artist.ID,
		Name:            artist.Name,
		LastChecked:     time.Now(),
		LastReleaseDate: lastRelease,
	}); err != nil {
		log.Warn("State update failed", "error", err)
	}

	return out
}

// downloadRelease fetches one album into its folder and reports how
// many tracks landed and how many failed. A release whose every track
// failed leaves no folder behind, so the next run sees it as new and
// retries. The third return is a non-empty summary error when the
// release as a whole went wrong.
func (e *Engine) downloadRelease(ctx context.Context, log *logger.Logger, artist *domain.Artist, rel domain.ResolvedRelease, quality domain.Quality) (downloaded, failed int, relErr string) {
	relLog := log.WithRelease(rel.ID, rel.Title)

	tracks, err := e.catalog.AlbumTracks(ctx, rel.ID)
	if err != nil {
		relLog.Warn("Track listing failed", "error", err)
		e.recordFailure(&domain.FailureLogEntry{
			Artist:    artist.Name,
			ArtistID:  artist.ID,
			ReleaseID: rel.ID,
			Error:     fmt.Sprintf("track listing: %v", err),
			Category:  domain.FailureReleaseDownload,
		})
		_ = storage.DeleteFolderIfEmpty(rel.Path)
		return 0, 0, fmt.Sprintf("release %q: track listing: %v", rel.Title, err)
	}
	if len(tracks) == 0 {
		relLog.Warn("Release has no tracks")
		_ = storage.DeleteFolderIfEmpty(rel.Path)
		return 0, 0, ""
	}

	results := e.downloader.Album(ctx, tracks, rel.Path, quality)
	for _, r := range results {
		if r.Success {
			downloaded++
			continue
		}
		failed++
		e.recordFailure(&domain.FailureLogEntry{
			Artist:    artist.Name,
			ArtistID:  artist.ID,
			ReleaseID: rel.ID,
			Error:     fmt.Sprintf("%s: %s", r.Title, r.Error),
			Category:  domain.FailureTrackDownload,
		})
	}

	if downloaded == 0 {
		relLog.Warn("Release failed completely, removing folder", "path", rel.Path)
		if err := storage.DeleteFolder(rel.Path); err != nil {
			relLog.Warn("Failed to remove release folder", "error", err)
		}
		return downloaded, failed, fmt.Sprintf("release %q: all %d tracks failed", rel.Title, failed)
	}

	relLog.Info("Release downloaded", "tracks", downloaded, "failed", failed)
	return downloaded, failed, ""
}

// checkFailed records one artist-level failure in both the summary
// error list and the durable log.
func (e *Engine) checkFailed(name string, artistID int64, err error) checkOutcome {
	e.log.Warn("Artist check failed", "artist", name, "error", err)
	e.recordFailure(&domain.FailureLogEntry{
		Artist:   name,
		ArtistID: artistID,
		Error:    err.Error(),
		Category: domain.FailureArtistCheck,
	})
	return checkOutcome{errs: []domain.ArtistError{{Artist: name, Error: err.Error()}}}
}

func (e *Engine) recordFailure(entry *domain.FailureLogEntry) {
	if err := e.db.AppendFailure(entry); err != nil {
		e.log.Error("Failed to append failure log entry", "error", err)
	}
}

// mockResults synthesizes the per-track outcomes a dry run reports in
// place of real downloads, one success per reported track.
func mockResults(rel domain.ResolvedRelease) []domain.DownloadResult {
	results := make([]domain.DownloadResult, rel.TrackCount)
	for i := range results {
		results[i] = domain.DownloadResult{Success: true, Path: rel.Path}
	}
	return results
}
