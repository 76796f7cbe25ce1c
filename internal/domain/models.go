package domain

import (
	"strings"
	"time"
)

// Record types as reported by the catalog.
const (
	RecordTypeAlbum   = "album"
	RecordTypeSingle  = "single"
	RecordTypeEP      = "ep"
	RecordTypeCompile = "compile"
	RecordTypeBundle  = "bundle"
)

// ReleaseType is the on-disk classification used for folder naming.
type ReleaseType string

const (
	ReleaseTypeAlbum  ReleaseType = "Album"
	ReleaseTypeEP     ReleaseType = "EP"
	ReleaseTypeSingle ReleaseType = "Single"
)

// Artist is a catalog artist resolved from search.
type Artist struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// Key returns the normalized comparison key for the artist name.
func (a Artist) Key() string {
	return NormalizeName(a.Name)
}

// ArtistSource says where a discovered artist name came from.
type ArtistSource string

const (
	SourceFolder ArtistSource = "folder"
	SourceTag    ArtistSource = "tag"
)

// DiscoveredArtist is an artist name found in the local library,
// either as a folder name or inside embedded file tags.
type DiscoveredArtist struct {
	Name     string       `json:"name"`
	Source   ArtistSource `json:"source"`
	PathHint string       `json:"path_hint,omitempty"`
}

// Release is one discography entry for an artist.
type Release struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ArtistID    int64  `json:"artist_id"`
	Artist      string `json:"artist"`
	CoverID     string `json:"cover_id,omitempty"`
	RecordType  string `json:"record_type,omitempty"`
	Official    bool   `json:"official"`
	RoleID      int    `json:"role_id"`
	TrackCount  int    `json:"track_count"`
	DiscCount   int    `json:"disc_count,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	Explicit    bool   `json:"explicit,omitempty"`
}

// Track is one playable item of a release, with the access hints
// needed to resolve a media URL. Fetched per album, never persisted.
type Track struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	Version          string   `json:"version,omitempty"`
	Artist           string   `json:"artist"`
	Artists          []string `json:"artists,omitempty"`
	AlbumID          int64    `json:"album_id"`
	AlbumTitle       string   `json:"album_title"`
	AlbumArtist      string   `json:"album_artist,omitempty"`
	CoverID          string   `json:"cover_id,omitempty"`
	TrackNumber      int      `json:"track_number"`
	DiscNumber       int      `json:"disc_number,omitempty"`
	Duration         int      `json:"duration"`
	ISRC             string   `json:"isrc,omitempty"`
	Gain             float64  `json:"gain,omitempty"`
	ExplicitLyrics   bool     `json:"explicit_lyrics,omitempty"`
	ReleaseDate      string   `json:"release_date,omitempty"`
	TrackToken       string   `json:"-"`
	TrackTokenExpire int64    `json:"-"`
	MD5Origin        string   `json:"-"`
	MediaVersion     string   `json:"-"`
	FileSizeFLAC     int64    `json:"-"`
	FileSizeMP3320   int64    `json:"-"`
	FileSizeMP3128   int64    `json:"-"`
}

// FullTitle returns the title with the version suffix when the catalog
// reports one ("Song" + "(Remastered)" -> "Song (Remastered)").
func (t *Track) FullTitle() string {
	v := strings.TrimSpace(t.Version)
	if v == "" {
		return t.Title
	}
	return t.Title + " " + v
}

// FileSize reports the catalog's size hint for a quality tier, 0 when unknown.
func (t *Track) FileSize(q Quality) int64 {
	switch q {
	case QualityFLAC:
		return t.FileSizeFLAC
	case QualityMP3320:
		return t.FileSizeMP3320
	case QualityMP3128:
		return t.FileSizeMP3128
	}
	return 0
}

// Year extracts the year from the release date, 0 when unknown.
func (t *Track) Year() int {
	if len(t.ReleaseDate) < 4 {
		return 0
	}
	year := 0
	for _, r := range t.ReleaseDate[:4] {
		if r < '0' || r > '9' {
			return 0
		}
		year = year*10 + int(r-'0')
	}
	return year
}

// ResolvedRelease pairs a release with its computed folder for the
// current run. Recomputed every sync, never persisted.
type ResolvedRelease struct {
	Release
	Path   string      `json:"path"`
	Type   ReleaseType `json:"type"`
	Exists bool        `json:"exists"`
}

// SyncState is the durable per-artist check record. One row per
// artist id, last-write-wins.
type SyncState struct {
	ArtistID        int64     `json:"artist_id" db:"artist_id"`
	Name            string    `json:"name" db:"name"`
	LastChecked     time.Time `json:"last_checked" db:"last_checked"`
	LastReleaseDate string    `json:"last_release_date,omitempty" db:"last_release_date"`
}

// FailureCategory classifies a durable failure log entry.
type FailureCategory string

const (
	FailureArtistCheck     FailureCategory = "artist_check"
	FailureReleaseDownload FailureCategory = "release_download"
	FailureTrackDownload   FailureCategory = "track_download"
)

// FailureLogEntry is one appended failure, kept in a capped ring.
type FailureLogEntry struct {
	ID        int64           `json:"id" db:"id"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
	Artist    string          `json:"artist" db:"artist"`
	ArtistID  int64           `json:"artist_id,omitempty" db:"artist_id"`
	ReleaseID int64           `json:"release_id,omitempty" db:"release_id"`
	Error     string          `json:"error" db:"error"`
	Category  FailureCategory `json:"category" db:"category"`
}

// DownloadResult is the per-track outcome of an album download.
type DownloadResult struct {
	TrackID int64  `json:"track_id"`
	Title   string `json:"title"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

// ArtistError is one named failure in a sync summary.
type ArtistError struct {
	Artist string `json:"artist"`
	Error  string `json:"error"`
}

// Summary is the result of one sync run. The run always completes and
// returns one of these, even when every artist fails.
type Summary struct {
	ArtistsChecked   int           `json:"artists_checked"`
	ArtistsSkipped   int           `json:"artists_skipped"`
	NewReleases      int           `json:"new_releases"`
	TracksDownloaded int           `json:"tracks_downloaded"`
	TracksFailed     int           `json:"tracks_failed"`
	Duration         time.Duration `json:"duration"`
	Errors           []ArtistError `json:"errors"`
}
