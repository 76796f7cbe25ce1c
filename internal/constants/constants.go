// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort         = "8080"
	DefaultDBPath       = "discsync.db"
	DefaultQuality      = "flac"
	DefaultConcurrency  = 3
	DefaultRecheckHours = 24
	DefaultTagDepth     = 3
)

// Catalog endpoints
const (
	GatewayURL   = "https://www.deezer.com/ajax/gw-light.php"
	APIBaseURL   = "https://api.deezer.com"
	MediaURL     = "https://media.deezer.com/v1/get_url"
	LegacyCDNURL = "https://e-cdns-proxy-%s.dzcdn.net/mobile/1/%s"
	CoverURL     = "https://e-cdns-images.dzcdn.net/images/cover/%s/%dx%d-000000-80-0-0.jpg"
	DefaultCover = 1200
)

// Gateway methods
const (
	MethodUserData    = "deezer.getUserData"
	MethodDiscography = "album.getDiscography"
	MethodAlbumTracks = "song.getListByAlbum"
)

// Browser profile sent on catalog and CDN requests
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Pagination
const (
	DiscographyPageSize = 100
	AlbumTracksPageSize = 500
)

// Timeouts and retry policy
const (
	DefaultHTTPTimeout   = 30 * time.Second
	ImageHTTPTimeout     = 30 * time.Second
	TrackDownloadCeiling = 2 * time.Minute
	FirstByteTimeout     = 20 * time.Second
	InactivityTimeout    = 30 * time.Second
	TransientRetryDelay  = 2 * time.Second
	DefaultRetryCount    = 3
	DefaultRetryBase     = 1 * time.Second
	DefaultRetryCap      = 5 * time.Second
	InterTrackDelay      = 1 * time.Second
	RESTMinInterval      = 110 * time.Millisecond
)

// Failure log retention
const MaxFailureEntries = 1000

// File Extensions
const (
	ExtFLAC = ".flac"
	ExtMP3  = ".mp3"
	ExtM4A  = ".m4a"
	ExtJPG  = ".jpg"
)

// File Names
const (
	CoverFileName        = "cover.jpg"
	VariousArtistsFolder = "Various Artists"
)

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// Characters to sanitize from filesystem paths
const InvalidPathChars = "<>:\"/\\|?*"
