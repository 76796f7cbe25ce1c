// Package downloader fetches, decrypts and tags tracks. URL resolution
// walks an ordered strategy list, and the byte stream is bounded by a
// stall watchdog plus a hard per-track ceiling.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nvalden/discsync/internal/catalog"
	"github.com/nvalden/discsync/internal/constants"
	"github.com/nvalden/discsync/internal/decrypt"
	"github.com/nvalden/discsync/internal/domain"
	"github.com/nvalden/discsync/internal/logger"
	"github.com/nvalden/discsync/internal/storage"
	"github.com/nvalden/discsync/internal/tagging"
)

var (
	ErrDownloadEmpty   = errors.New("stream has zero content length")
	ErrDownloadTimeout = errors.New("download timed out")
)

// URLSource resolves signed stream URLs for track tokens.
type URLSource interface {
	TrackURLs(ctx context.Context, trackTokens []string, quality domain.Quality) ([]catalog.TrackURL, error)
}

type Downloader struct {
	source URLSource
	client *http.Client
	log    *logger.Logger

	ceiling         time.Duration
	firstByte       time.Duration
	inactivity      time.Duration
	retryBase       time.Duration
	retryCap        time.Duration
	interTrackDelay time.Duration
}

func New(source URLSource, log *logger.Logger) *Downloader {
	return &Downloader{
		source: source,
		// No client-wide timeout: the watchdog and the per-track
		// ceiling own cancellation.
		client:          &http.Client{},
		log:             log.WithComponent("downloader"),
		ceiling:         constants.TrackDownloadCeiling,
		firstByte:       constants.FirstByteTimeout,
		inactivity:      constants.InactivityTimeout,
		retryBase:       constants.DefaultRetryBase,
		retryCap:        constants.DefaultRetryCap,
		interTrackDelay: constants.InterTrackDelay,
	}
}

// Album downloads an album's tracks sequentially into dir and returns one
// result per track, failures included. Cover art is fetched once, written
// next to the tracks when absent, and embedded into every tag.
func (d *Downloader) Album(ctx context.Context, tracks []domain.Track, dir string, quality domain.Quality) []domain.DownloadResult {
	results := make([]domain.DownloadResult, 0, len(tracks))
	cover := d.fetchCover(ctx, tracks, dir)

	for i := range tracks {
		if i > 0 {
			_ = sleepCtx(ctx, d.interTrackDelay)
		}

		track := &tracks[i]
		result := domain.DownloadResult{TrackID: track.ID, Title: track.FullTitle()}

		path, err := d.Track(ctx, track, dir, quality)
		if err != nil {
			result.Error = err.Error()
			d.log.Warn("Track download failed", "track_id", track.ID, "title", result.Title, "error", err)
		} else {
			result.Success = true
			result.Path = path
			if tagErr := tagging.TagFile(path, track, cover); tagErr != nil {
				d.log.Warn("Tagging failed", "track_id", track.ID, "path", path, "error", tagErr)
			}
		}

		results = append(results, result)
	}

	return results
}

// Track downloads one track into dir and returns the written path. An
// existing file at any obtainable tier short-circuits the fetch.
func (d *Downloader) Track(ctx context.Context, track *domain.Track, dir string, quality domain.Quality) (string, error) {
	title := track.FullTitle()

	for _, ext := range candidateExts(quality) {
		path := filepath.Join(dir, storage.TrackFileName(track.TrackNumber, title, ext))
		if storage.FileExists(path) {
			return path, nil
		}
	}

	// Hard ceiling for the whole track, retries and backoff included.
	ctx, cancel := context.WithTimeout(ctx, d.ceiling)
	defer cancel()

	src, err := d.resolveURL(ctx, track, quality)
	if err != nil {
		return "", err
	}

	destPath := filepath.Join(dir, storage.TrackFileName(track.TrackNumber, title, src.quality.Ext()))
	key := decrypt.TrackKey(strconv.FormatInt(track.ID, 10))

	var lastErr error
	for attempt := 0; attempt < constants.DefaultRetryCount; attempt++ {
		if attempt > 0 {
			delay := d.retryBase << (attempt - 1)
			if delay > d.retryCap {
				delay = d.retryCap
			}
			if err := sleepCtx(ctx, delay); err != nil {
				return "", err
			}
		}

		err := d.fetchAttempt(ctx, src.url, destPath, key)
		if err == nil {
			d.log.Debug("Track downloaded", "track_id", track.ID, "quality", string(src.quality), "path", destPath)
			return destPath, nil
		}

		_ = storage.RemoveFile(destPath)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !retryable(err) {
			return "", err
		}

		lastErr = err
		d.log.Warn("Download attempt failed", "track_id", track.ID, "attempt", attempt+1, "error", err)
	}

	return "", fmt.Errorf("download failed after %d attempts: %w", constants.DefaultRetryCount, lastErr)
}

// fetchAttempt streams one URL through the decrypt chain to destPath.
// The watchdog cancels the attempt when no bytes arrive: once before the
// first byte, then rolling while the body streams.
func (d *Downloader) fetchAttempt(ctx context.Context, url, destPath string, key []byte) error {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchdog := time.AfterFunc(d.firstByte, cancel)
	defer watchdog.Stop()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", constants.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return attemptErr(ctx, attemptCtx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream returned status %d", resp.StatusCode)
	}
	if resp.ContentLength == 0 {
		return ErrDownloadEmpty
	}

	stream, err := decrypt.NewStripeReader(resp.Body, key)
	if err != nil {
		return err
	}
	stream = decrypt.NewDepadReader(stream)

	out, err := storage.CreateFile(destPath)
	if err != nil {
		return err
	}

	buf := make([]byte, 32*1024)
	for {
		n, readErr := stream.Read(buf)
		if n > 0 {
			watchdog.Reset(d.inactivity)
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				out.Close()
				return writeErr
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			return attemptErr(ctx, attemptCtx, readErr)
		}
	}

	return out.Close()
}

// fetchCover downloads the album art once and writes it next to the
// tracks unless a cover file is already there. Failures only cost the
// embedded art, never the download.
func (d *Downloader) fetchCover(ctx context.Context, tracks []domain.Track, dir string) []byte {
	coverID := ""
	for i := range tracks {
		if tracks[i].CoverID != "" {
			coverID = tracks[i].CoverID
			break
		}
	}
	if coverID == "" {
		return nil
	}

	cover, err := tagging.DownloadImage(ctx, catalog.CoverURL(coverID, constants.DefaultCover))
	if err != nil {
		d.log.Warn("Cover download failed", "cover_id", coverID, "error", err)
		return nil
	}

	coverPath := filepath.Join(dir, constants.CoverFileName)
	if !storage.FileExists(coverPath) {
		if err := tagging.SaveImageToFile(cover, coverPath); err != nil {
			d.log.Warn("Cover save failed", "path", coverPath, "error", err)
		}
	}

	return cover
}

// attemptErr maps a cancellation caused by the stall watchdog to
// ErrDownloadTimeout; cancellation of the caller's context passes
// through untouched.
func attemptErr(ctx, attemptCtx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if attemptCtx.Err() != nil {
		return ErrDownloadTimeout
	}
	return err
}

// retryable reports whether another attempt could succeed. Caller
// cancellation and empty streams are terminal.
func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrDownloadEmpty):
		return false
	}
	return true
}

// candidateExts lists the extensions a finished download of this request
// could have produced, requested tier first.
func candidateExts(q domain.Quality) []string {
	if q == domain.QualityFLAC {
		return []string{constants.ExtFLAC, constants.ExtMP3}
	}
	return []string{constants.ExtMP3}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
