package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nvalden/discsync/internal/constants"
	"github.com/nvalden/discsync/internal/domain"
)

// TrackURL is the per-track outcome of a media URL request. Exactly
// one of URL and Err is set.
type TrackURL struct {
	URL string
	Err error
}

type mediaError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type mediaEntry struct {
	Media []struct {
		Sources []struct {
			URL string `json:"url"`
		} `json:"sources"`
	} `json:"media"`
	Errors []mediaError `json:"errors"`
}

// TrackURLs resolves signed stream URLs for a batch of track tokens at
// one quality. The media service answers positionally, so the returned
// slice always has len(trackTokens) entries, each carrying either a
// URL or the reason that track cannot stream.
func (c *Client) TrackURLs(ctx context.Context, trackTokens []string, quality domain.Quality) ([]TrackURL, error) {
	c.mu.Lock()
	licenseToken := c.licenseToken
	c.mu.Unlock()
	if licenseToken == "" {
		return nil, fmt.Errorf("media request before login")
	}

	body := map[string]any{
		"license_token": licenseToken,
		"media": []map[string]any{
			{
				"type": "FULL",
				"formats": []map[string]string{
					{"cipher": "BF_CBC_STRIPE", "format": quality.Format()},
				},
			},
		},
		"track_tokens": trackTokens,
	}

	var payload struct {
		Data   []mediaEntry `json:"data"`
		Errors []mediaError `json:"errors"`
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := c.postMedia(ctx, body, &payload)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isTransient(err) {
			return nil, err
		}
		c.log.Warn("Media service connection fault, retrying", "error", err)
		if werr := sleepCtx(ctx, c.transientDelay); werr != nil {
			return nil, werr
		}
	}

	if len(payload.Errors) > 0 {
		e := payload.Errors[0]
		return nil, &ProtocolError{Method: "media.get_url", Code: fmt.Sprintf("%d", e.Code), Message: e.Message}
	}

	out := make([]TrackURL, len(trackTokens))
	for i := range out {
		if i >= len(payload.Data) {
			out[i] = TrackURL{Err: ErrUnavailable}
			continue
		}
		out[i] = trackOutcome(payload.Data[i])
	}
	return out, nil
}

func trackOutcome(entry mediaEntry) TrackURL {
	if len(entry.Errors) > 0 {
		switch entry.Errors[0].Code {
		case 2002:
			return TrackURL{Err: ErrGeoRestricted}
		case 2000, 2001:
			return TrackURL{Err: ErrLicenseRestricted}
		default:
			return TrackURL{Err: &ProtocolError{
				Method:  "media.get_url",
				Code:    fmt.Sprintf("%d", entry.Errors[0].Code),
				Message: entry.Errors[0].Message,
			}}
		}
	}
	if len(entry.Media) == 0 || len(entry.Media[0].Sources) == 0 {
		return TrackURL{Err: ErrUnavailable}
	}
	return TrackURL{URL: entry.Media[0].Sources[0].URL}
}

func (c *Client) postMedia(ctx context.Context, body map[string]any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.mediaURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", constants.UserAgent)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "arl", Value: c.arl})

	resp, err := c.gateway.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("media service status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode media response: %w", err)
	}
	return nil
}
