package downloader

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nvalden/discsync/internal/catalog"
	"github.com/nvalden/discsync/internal/decrypt"
	"github.com/nvalden/discsync/internal/domain"
)

// streamSource is a resolved stream location and the tier it serves.
type streamSource struct {
	url     string
	quality domain.Quality
}

// A urlStrategy yields a playable source for a track, or an error naming
// the precondition that rules the strategy out.
type urlStrategy struct {
	name    string
	resolve func(ctx context.Context, track *domain.Track, requested domain.Quality) (*streamSource, error)
}

func (d *Downloader) strategies() []urlStrategy {
	return []urlStrategy{
		{name: "media", resolve: d.mediaSource},
		{name: "legacy", resolve: d.legacySource},
	}
}

// resolveURL tries each strategy in order and returns the first source.
// When none applies the error lists every strategy's diagnosis.
func (d *Downloader) resolveURL(ctx context.Context, track *domain.Track, requested domain.Quality) (*streamSource, error) {
	var errs []error
	for _, s := range d.strategies() {
		src, err := s.resolve(ctx, track, requested)
		if err == nil {
			return src, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}
	return nil, fmt.Errorf("no stream source: %w", errors.Join(errs...))
}

// mediaSource asks the media endpoint for a signed URL, walking the
// fallback tiers. Geo and license refusals are kept as the diagnosis in
// case no tier works; plain unavailability falls through silently.
func (d *Downloader) mediaSource(ctx context.Context, track *domain.Track, requested domain.Quality) (*streamSource, error) {
	if track.TrackToken == "" {
		return nil, errors.New("no track token")
	}
	if track.TrackTokenExpire > 0 && time.Now().Unix() > track.TrackTokenExpire {
		return nil, errors.New("track token expired")
	}

	var restricted error
	for _, tier := range domain.FallbackOrder(requested) {
		urls, err := d.source.TrackURLs(ctx, []string{track.TrackToken}, tier)
		if err != nil {
			return nil, err
		}

		res := urls[0]
		switch {
		case res.Err == nil && res.URL != "":
			return &streamSource{url: res.URL, quality: tier}, nil
		case errors.Is(res.Err, catalog.ErrGeoRestricted) || errors.Is(res.Err, catalog.ErrLicenseRestricted):
			restricted = fmt.Errorf("%s: %w", tier, res.Err)
			d.log.Debug("Tier restricted", "track_id", track.ID, "quality", string(tier), "error", res.Err)
		}
	}

	if restricted != nil {
		return nil, restricted
	}
	return nil, errors.New("no tier available")
}

// legacySource derives the CDN URL from the track's md5 origin. Tiers
// with a positive size hint are preferred in fallback order; with no
// size data at all the lowest tier is the safest guess.
func (d *Downloader) legacySource(_ context.Context, track *domain.Track, requested domain.Quality) (*streamSource, error) {
	if len(track.MD5Origin) != 32 {
		return nil, errors.New("no md5 origin")
	}

	tier := domain.QualityMP3128
	for _, q := range domain.FallbackOrder(requested) {
		if track.FileSize(q) > 0 {
			tier = q
			break
		}
	}

	url := decrypt.LegacyURL(track.MD5Origin, tier.Code(), strconv.FormatInt(track.ID, 10), track.MediaVersion)
	return &streamSource{url: url, quality: tier}, nil
}
