package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nvalden/discsync/internal/domain"
)

func TestDiscography_PaginationAndPartition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var args struct {
			ArtID   string `json:"ART_ID"`
			Mode    string `json:"discography_mode"`
			Nb      int    `json:"nb"`
			NbSongs int    `json:"nb_songs"`
			Start   int    `json:"start"`
		}
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			t.Errorf("decode discography args: %v", err)
			return
		}
		if args.ArtID != "77" || args.Mode != "all" {
			t.Errorf("args = %+v, want ART_ID 77 mode all", args)
		}

		if args.Start == 0 {
			fmt.Fprint(w, gwOK(`{
				"data": [
					{
						"ALB_ID": "1", "ALB_TITLE": "First Light", "ART_ID": "77",
						"ART_NAME": "Moonshade", "ALB_PICTURE": "cov1", "TYPE": "1",
						"ROLE_ID": "0", "ARTISTS_ALBUMS_IS_OFFICIAL": true,
						"NUMBER_TRACK": "12", "NUMBER_DISK": "1",
						"ORIGINAL_RELEASE_DATE": "2001-03-01",
						"PHYSICAL_RELEASE_DATE": "2001-05-01",
						"DIGITAL_RELEASE_DATE": "2010-01-01",
						"EXPLICIT_ALBUM_CONTENT": {"EXPLICIT_LYRICS_STATUS": 1}
					},
					{
						"ALB_ID": "2", "ALB_TITLE": "Outtakes", "ART_ID": 77,
						"ART_NAME": "Moonshade", "ALB_PICTURE": "cov2", "TYPE": "3",
						"ROLE_ID": 0, "ARTISTS_ALBUMS_IS_OFFICIAL": "0",
						"NUMBER_TRACK": 4,
						"DIGITAL_RELEASE_DATE": "2011-06-15"
					},
					{
						"ALB_ID": "3", "ALB_TITLE": "Guest Spot", "ART_ID": "88",
						"ART_NAME": "Other Band", "TYPE": "0", "ROLE_ID": "0",
						"ARTISTS_ALBUMS_IS_OFFICIAL": true, "NUMBER_TRACK": 1
					}
				],
				"total": 5
			}`))
			return
		}

		fmt.Fprint(w, gwOK(`{
			"data": [
				{
					"ALB_ID": "4", "ALB_TITLE": "Remix Feature", "ART_ID": "77",
					"ART_NAME": "Moonshade", "TYPE": "1", "ROLE_ID": "5",
					"ARTISTS_ALBUMS_IS_OFFICIAL": true, "NUMBER_TRACK": 2
				},
				{
					"ALB_ID": "1", "ALB_TITLE": "First Light", "ART_ID": "77",
					"ART_NAME": "Moonshade", "TYPE": "1", "ROLE_ID": "0",
					"ARTISTS_ALBUMS_IS_OFFICIAL": true, "NUMBER_TRACK": 12
				}
			],
			"total": 5
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	d, err := c.Discography(context.Background(), 77)
	if err != nil {
		t.Fatalf("Discography failed: %v", err)
	}

	if len(d.Primary) != 1 || d.Primary[0].ID != 1 {
		t.Errorf("Primary = %+v, want only album 1", d.Primary)
	}
	if len(d.More) != 1 || d.More[0].ID != 2 {
		t.Errorf("More = %+v, want only album 2", d.More)
	}
	if len(d.Featured) != 2 {
		t.Errorf("Featured = %+v, want albums 3 and 4", d.Featured)
	}

	all := d.All()
	if len(all) != 2 || all[0].ID != 1 || all[1].ID != 2 {
		t.Errorf("All() = %+v, want primary then more", all)
	}

	first := d.Primary[0]
	if first.RecordType != domain.RecordTypeAlbum {
		t.Errorf("record type = %q, want album", first.RecordType)
	}
	if first.ReleaseDate != "2001-03-01" {
		t.Errorf("release date = %q, want original date to win", first.ReleaseDate)
	}
	if !first.Explicit {
		t.Error("explicit = false, want true for lyrics status 1")
	}
	if first.TrackCount != 12 || first.DiscCount != 1 {
		t.Errorf("counts = %d/%d, want 12/1", first.TrackCount, first.DiscCount)
	}

	second := d.More[0]
	if second.RecordType != domain.RecordTypeEP {
		t.Errorf("record type = %q, want ep", second.RecordType)
	}
	if second.ReleaseDate != "2011-06-15" {
		t.Errorf("release date = %q, want digital fallback", second.ReleaseDate)
	}
}

func TestDiscography_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, gwOK(`{"data": [], "total": 0}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	d, err := c.Discography(context.Background(), 5)
	if err != nil {
		t.Fatalf("Discography failed: %v", err)
	}
	if len(d.All()) != 0 {
		t.Errorf("All() = %+v, want empty", d.All())
	}
}

func TestAlbumTracks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var args struct {
			AlbID string `json:"ALB_ID"`
			Nb    int    `json:"nb"`
		}
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			t.Errorf("decode track args: %v", err)
			return
		}
		if args.AlbID != "500" {
			t.Errorf("ALB_ID = %q, want 500", args.AlbID)
		}
		if args.Nb != 500 {
			t.Errorf("nb = %d, want 500", args.Nb)
		}

		fmt.Fprint(w, gwOK(`{
			"data": [
				{
					"SNG_ID": "9001", "SNG_TITLE": "Opening", "VERSION": "(Live)",
					"ART_NAME": "Moonshade",
					"ARTISTS": [{"ART_NAME": "Moonshade"}, {"ART_NAME": "Guest"}],
					"ALB_ID": "500", "ALB_TITLE": "First Light", "ALB_PICTURE": "cov1",
					"TRACK_NUMBER": "1", "DISK_NUMBER": "1", "DURATION": "215",
					"ISRC": "USX9P0000001", "GAIN": "-3.4", "EXPLICIT_LYRICS": "1",
					"PHYSICAL_RELEASE_DATE": "2001-05-01",
					"TRACK_TOKEN": "tok-9001", "TRACK_TOKEN_EXPIRE": "1700000000",
					"MD5_ORIGIN": "f1e2d3c4b5a6978887969504132231f0", "MEDIA_VERSION": "4",
					"FILESIZE_FLAC": "31477942", "FILESIZE_MP3_320": "8605052",
					"FILESIZE_MP3_128": "3442020"
				},
				{
					"SNG_ID": 9002, "SNG_TITLE": "Second", "ART_NAME": "Moonshade",
					"ALB_ID": 500, "ALB_TITLE": "First Light",
					"TRACK_NUMBER": 2, "DISK_NUMBER": 1, "DURATION": 180,
					"GAIN": -1.1, "EXPLICIT_LYRICS": 0,
					"TRACK_TOKEN": "tok-9002", "MEDIA_VERSION": 1,
					"FILESIZE_FLAC": 0, "FILESIZE_MP3_320": 7201345, "FILESIZE_MP3_128": 2880538
				}
			]
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	tracks, err := c.AlbumTracks(context.Background(), 500)
	if err != nil {
		t.Fatalf("AlbumTracks failed: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(tracks))
	}

	first := tracks[0]
	if first.ID != 9001 || first.Title != "Opening" || first.Version != "(Live)" {
		t.Errorf("track identity = %d/%q/%q, want 9001/Opening/(Live)", first.ID, first.Title, first.Version)
	}
	if first.FullTitle() != "Opening (Live)" {
		t.Errorf("FullTitle() = %q, want Opening (Live)", first.FullTitle())
	}
	if len(first.Artists) != 2 || first.Artists[1] != "Guest" {
		t.Errorf("artists = %v, want two entries", first.Artists)
	}
	if first.TrackNumber != 1 || first.Duration != 215 {
		t.Errorf("number/duration = %d/%d, want 1/215", first.TrackNumber, first.Duration)
	}
	if first.Gain != -3.4 {
		t.Errorf("gain = %v, want -3.4", first.Gain)
	}
	if !first.ExplicitLyrics {
		t.Error("explicit = false, want true")
	}
	if first.TrackToken != "tok-9001" || first.TrackTokenExpire != 1700000000 {
		t.Errorf("token = %q/%d, want tok-9001/1700000000", first.TrackToken, first.TrackTokenExpire)
	}
	if first.MD5Origin != "f1e2d3c4b5a6978887969504132231f0" || first.MediaVersion != "4" {
		t.Errorf("origin = %q/%q, unexpected", first.MD5Origin, first.MediaVersion)
	}
	if first.FileSize(domain.QualityFLAC) != 31477942 {
		t.Errorf("flac size = %d, want 31477942", first.FileSize(domain.QualityFLAC))
	}

	second := tracks[1]
	if second.ID != 9002 || second.MediaVersion != "1" {
		t.Errorf("second track = %d/%q, want 9002 with media version 1", second.ID, second.MediaVersion)
	}
	if second.FileSize(domain.QualityFLAC) != 0 {
		t.Errorf("flac size = %d, want 0 for missing tier", second.FileSize(domain.QualityFLAC))
	}
}
