package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/nvalden/discsync/internal/constants"
	"github.com/nvalden/discsync/internal/domain"
)

// SearchArtist resolves a name to the catalog's top artist match via
// the public search API. The first hit wins, the caller decides
// whether the match is close enough.
func (c *Client) SearchArtist(ctx context.Context, name string) (*domain.Artist, error) {
	u := fmt.Sprintf("%s/search/artist?q=%s&limit=1", c.apiURL, url.QueryEscape(name))

	resp, err := c.rest.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("artist search: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Data []struct {
			ID      json.Number `json:"id"`
			Name    string      `json:"name"`
			Picture string      `json:"picture_xl"`
		} `json:"data"`
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode artist search: %w", err)
	}

	// REST failures arrive inside a 200 body.
	if payload.Error != nil {
		return nil, &ProtocolError{
			Method:  "search/artist",
			Code:    fmt.Sprintf("%d", payload.Error.Code),
			Message: payload.Error.Message,
		}
	}
	if len(payload.Data) == 0 {
		return nil, fmt.Errorf("%q: %w", name, ErrArtistNotFound)
	}

	top := payload.Data[0]
	id, err := top.ID.Int64()
	if err != nil {
		return nil, fmt.Errorf("artist id %q: %w", top.ID.String(), err)
	}

	return &domain.Artist{
		ID:      id,
		Name:    top.Name,
		Picture: top.Picture,
	}, nil
}

// CoverURL builds the CDN URL for a cover image at a square pixel
// size. An empty cover id still yields a fetchable placeholder URL.
func CoverURL(coverID string, size int) string {
	if size <= 0 {
		size = constants.DefaultCover
	}
	return fmt.Sprintf(constants.CoverURL, coverID, size, size)
}
