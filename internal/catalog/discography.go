package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nvalden/discsync/internal/constants"
	"github.com/nvalden/discsync/internal/domain"
)

// Discography partitions an artist's catalog entries by how the artist
// relates to them. Primary holds official releases the artist owns,
// More holds owned but unofficial entries, Featured everything the
// artist merely appears on.
type Discography struct {
	Primary  []domain.Release
	Featured []domain.Release
	More     []domain.Release
}

// All returns the releases attributed to the artist, primary first.
// Featured appearances stay out since they belong in other artists'
// folders.
func (d *Discography) All() []domain.Release {
	out := make([]domain.Release, 0, len(d.Primary)+len(d.More))
	out = append(out, d.Primary...)
	out = append(out, d.More...)
	return out
}

// gwAlbum is one discography entry as the gateway reports it.
type gwAlbum struct {
	ID           FlexInt64  `json:"ALB_ID"`
	Title        string     `json:"ALB_TITLE"`
	ArtistID     FlexInt64  `json:"ART_ID"`
	ArtistName   string     `json:"ART_NAME"`
	Cover        FlexString `json:"ALB_PICTURE"`
	Type         FlexString `json:"TYPE"`
	RoleID       FlexInt64  `json:"ROLE_ID"`
	Official     FlexBool   `json:"ARTISTS_ALBUMS_IS_OFFICIAL"`
	TrackCount   FlexInt64  `json:"NUMBER_TRACK"`
	DiscCount    FlexInt64  `json:"NUMBER_DISK"`
	OriginalDate string     `json:"ORIGINAL_RELEASE_DATE"`
	PhysicalDate string     `json:"PHYSICAL_RELEASE_DATE"`
	DigitalDate  string     `json:"DIGITAL_RELEASE_DATE"`
	Explicit     struct {
		LyricsStatus FlexInt64 `json:"EXPLICIT_LYRICS_STATUS"`
	} `json:"EXPLICIT_ALBUM_CONTENT"`
}

func (a gwAlbum) release() domain.Release {
	return domain.Release{
		ID:          int64(a.ID),
		Title:       a.Title,
		ArtistID:    int64(a.ArtistID),
		Artist:      a.ArtistName,
		CoverID:     string(a.Cover),
		RecordType:  recordTypeFromCode(string(a.Type)),
		Official:    bool(a.Official),
		RoleID:      int(a.RoleID),
		TrackCount:  int(a.TrackCount),
		DiscCount:   int(a.DiscCount),
		ReleaseDate: firstNonEmpty(a.OriginalDate, a.PhysicalDate, a.DigitalDate),
		Explicit:    a.Explicit.LyricsStatus == 1,
	}
}

// Discography fetches and partitions the artist's complete catalog,
// paging until the reported total is reached. Entries showing up on
// multiple pages count once.
func (c *Client) Discography(ctx context.Context, artistID int64) (*Discography, error) {
	d := &Discography{}
	seen := make(map[int64]bool)
	start := 0

	for {
		res, err := c.Call(ctx, constants.MethodDiscography, map[string]any{
			"ART_ID":           strconv.FormatInt(artistID, 10),
			"discography_mode": "all",
			"nb":               constants.DiscographyPageSize,
			"nb_songs":         0,
			"start":            start,
		})
		if err != nil {
			return nil, fmt.Errorf("discography page at %d: %w", start, err)
		}

		var page struct {
			Data  []gwAlbum `json:"data"`
			Total FlexInt64 `json:"total"`
		}
		if err := json.Unmarshal(res, &page); err != nil {
			return nil, fmt.Errorf("decode discography page: %w", err)
		}
		if len(page.Data) == 0 {
			break
		}

		for _, entry := range page.Data {
			id := int64(entry.ID)
			if id == 0 || seen[id] {
				continue
			}
			seen[id] = true

			r := entry.release()
			owned := r.ArtistID == artistID && r.RoleID == 0
			switch {
			case owned && r.Official:
				d.Primary = append(d.Primary, r)
			case owned:
				d.More = append(d.More, r)
			default:
				d.Featured = append(d.Featured, r)
			}
		}

		start += len(page.Data)
		if start >= int(page.Total) {
			break
		}
	}

	c.log.Debug("Fetched discography",
		"artist_id", artistID,
		"primary", len(d.Primary),
		"featured", len(d.Featured),
		"more", len(d.More))
	return d, nil
}

// gwTrack is one song row as the gateway reports it, including the
// stream access hints.
type gwTrack struct {
	ID         FlexInt64 `json:"SNG_ID"`
	Title      string    `json:"SNG_TITLE"`
	Version    string    `json:"VERSION"`
	ArtistName string    `json:"ART_NAME"`
	Artists    []struct {
		Name string `json:"ART_NAME"`
	} `json:"ARTISTS"`
	AlbumID      FlexInt64  `json:"ALB_ID"`
	AlbumTitle   string     `json:"ALB_TITLE"`
	Cover        FlexString `json:"ALB_PICTURE"`
	TrackNumber  FlexInt64  `json:"TRACK_NUMBER"`
	DiscNumber   FlexInt64  `json:"DISK_NUMBER"`
	Duration     FlexInt64  `json:"DURATION"`
	ISRC         string     `json:"ISRC"`
	Gain         FlexFloat  `json:"GAIN"`
	Explicit     FlexBool   `json:"EXPLICIT_LYRICS"`
	ReleaseDate  string     `json:"PHYSICAL_RELEASE_DATE"`
	TrackToken   string     `json:"TRACK_TOKEN"`
	TokenExpire  FlexInt64  `json:"TRACK_TOKEN_EXPIRE"`
	MD5Origin    string     `json:"MD5_ORIGIN"`
	MediaVersion FlexString `json:"MEDIA_VERSION"`
	SizeFLAC     FlexInt64  `json:"FILESIZE_FLAC"`
	SizeMP3320   FlexInt64  `json:"FILESIZE_MP3_320"`
	SizeMP3128   FlexInt64  `json:"FILESIZE_MP3_128"`
}

func (t gwTrack) track() domain.Track {
	var artists []string
	for _, a := range t.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}
	return domain.Track{
		ID:               int64(t.ID),
		Title:            t.Title,
		Version:          t.Version,
		Artist:           t.ArtistName,
		Artists:          artists,
		AlbumID:          int64(t.AlbumID),
		AlbumTitle:       t.AlbumTitle,
		CoverID:          string(t.Cover),
		TrackNumber:      int(t.TrackNumber),
		DiscNumber:       int(t.DiscNumber),
		Duration:         int(t.Duration),
		ISRC:             t.ISRC,
		Gain:             float64(t.Gain),
		ExplicitLyrics:   bool(t.Explicit),
		ReleaseDate:      t.ReleaseDate,
		TrackToken:       t.TrackToken,
		TrackTokenExpire: int64(t.TokenExpire),
		MD5Origin:        t.MD5Origin,
		MediaVersion:     string(t.MediaVersion),
		FileSizeFLAC:     int64(t.SizeFLAC),
		FileSizeMP3320:   int64(t.SizeMP3320),
		FileSizeMP3128:   int64(t.SizeMP3128),
	}
}

// AlbumTracks fetches every track of an album in catalog order.
func (c *Client) AlbumTracks(ctx context.Context, albumID int64) ([]domain.Track, error) {
	res, err := c.Call(ctx, constants.MethodAlbumTracks, map[string]any{
		"ALB_ID": strconv.FormatInt(albumID, 10),
		"start":  0,
		"nb":     constants.AlbumTracksPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("album tracks: %w", err)
	}

	var page struct {
		Data []gwTrack `json:"data"`
	}
	if err := json.Unmarshal(res, &page); err != nil {
		return nil, fmt.Errorf("decode album tracks: %w", err)
	}

	tracks := make([]domain.Track, 0, len(page.Data))
	for _, row := range page.Data {
		tracks = append(tracks, row.track())
	}
	return tracks, nil
}

// recordTypeFromCode maps the gateway's numeric type codes to record
// type names. Non-numeric values pass through lowercased, some
// endpoints already send the word.
func recordTypeFromCode(code string) string {
	switch code {
	case "0":
		return domain.RecordTypeSingle
	case "1":
		return domain.RecordTypeAlbum
	case "2":
		return domain.RecordTypeCompile
	case "3":
		return domain.RecordTypeEP
	default:
		return strings.ToLower(code)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
