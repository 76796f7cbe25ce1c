// Package tagging embeds track metadata and cover art into downloaded
// audio files. FLAC files get Vorbis comments plus a picture block,
// MP3 files get ID3v2.4 frames. Tagging failures are reported but a
// file with missing tags is still a valid download.
package tagging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"

	"github.com/nvalden/discsync/internal/constants"
	"github.com/nvalden/discsync/internal/domain"
	"github.com/nvalden/discsync/internal/httpclient"
	"github.com/nvalden/discsync/internal/storage"
)

// TagFile writes metadata tags to the audio file at filePath.
func TagFile(filePath string, track *domain.Track, coverData []byte) error {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case constants.ExtFLAC:
		return tagFLAC(filePath, track, coverData)
	case constants.ExtMP3:
		return tagMP3(filePath, track, coverData)
	default:
		return fmt.Errorf("unsupported file format: %s", ext)
	}
}

// tagFLAC replaces the Vorbis comment and picture blocks of a FLAC
// file, keeping every other metadata block untouched.
func tagFLAC(filePath string, track *domain.Track, coverData []byte) error {
	f, err := flac.ParseFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	var kept []*flac.MetaDataBlock
	for _, block := range f.Meta {
		if block.Type == flac.VorbisComment || block.Type == flac.Picture {
			continue
		}
		kept = append(kept, block)
	}

	cmt := newVorbisComment(track)
	cmtBlock := cmt.Marshal()
	kept = append(kept, &cmtBlock)

	if len(coverData) > 0 {
		pic, err := flacpicture.NewFromImageData(
			flacpicture.PictureTypeFrontCover, "Front Cover", coverData, imageMIME(coverData))
		if err != nil {
			return fmt.Errorf("failed to build picture block: %w", err)
		}
		picBlock := pic.Marshal()
		kept = append(kept, &picBlock)
	}

	f.Meta = kept
	if err := f.Save(filePath); err != nil {
		return fmt.Errorf("failed to save FLAC file: %w", err)
	}
	return nil
}

func newVorbisComment(track *domain.Track) flacvorbis.MetaDataBlockVorbisComment {
	cmt := flacvorbis.New()
	cmt.Vendor = "discsync"

	addTag := func(name, value string) {
		if value == "" {
			return
		}
		// field names here are fixed ASCII, Add cannot reject them
		_ = cmt.Add(name, value)
	}

	addTag(flacvorbis.FIELD_TITLE, track.FullTitle())

	// Multiple artists get individual ARTIST tags.
	if len(track.Artists) > 0 {
		for _, a := range track.Artists {
			addTag(flacvorbis.FIELD_ARTIST, a)
		}
	} else {
		addTag(flacvorbis.FIELD_ARTIST, track.Artist)
	}

	addTag("ALBUMARTIST", track.AlbumArtist)
	addTag(flacvorbis.FIELD_ALBUM, track.AlbumTitle)

	if track.TrackNumber > 0 {
		addTag(flacvorbis.FIELD_TRACKNUMBER, strconv.Itoa(track.TrackNumber))
	}
	if track.DiscNumber > 0 {
		addTag("DISCNUMBER", strconv.Itoa(track.DiscNumber))
	}
	if y := track.Year(); y > 0 {
		addTag(flacvorbis.FIELD_DATE, strconv.Itoa(y))
	}

	addTag("RELEASEDATE", track.ReleaseDate)
	addTag(flacvorbis.FIELD_ISRC, track.ISRC)

	if track.Gain != 0 {
		addTag("REPLAYGAIN_TRACK_GAIN", fmt.Sprintf("%.2f dB", track.Gain))
	}
	if track.ExplicitLyrics {
		addTag("ITUNESADVISORY", "1")
	}

	return *cmt
}

// tagMP3 writes ID3v2.4 frames to an MP3 file.
func tagMP3(filePath string, track *domain.Track, coverData []byte) error {
	tag, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer tag.Close()

	tag.SetVersion(4)

	tag.SetTitle(track.FullTitle())
	if len(track.Artists) > 0 {
		tag.AddTextFrame("TPE1", tag.DefaultEncoding(), strings.Join(track.Artists, "\x00"))
	} else if track.Artist != "" {
		tag.SetArtist(track.Artist)
	}
	if track.AlbumTitle != "" {
		tag.SetAlbum(track.AlbumTitle)
	}
	if track.AlbumArtist != "" {
		tag.AddTextFrame(tag.CommonID("Band/Orchestra/Accompaniment"), tag.DefaultEncoding(), track.AlbumArtist)
	}

	if track.TrackNumber > 0 {
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"), tag.DefaultEncoding(),
			strconv.Itoa(track.TrackNumber))
	}
	if track.DiscNumber > 0 {
		tag.AddTextFrame(tag.CommonID("Part of a set"), tag.DefaultEncoding(),
			strconv.Itoa(track.DiscNumber))
	}
	if y := track.Year(); y > 0 {
		tag.SetYear(strconv.Itoa(y))
	}
	if track.ReleaseDate != "" {
		tag.AddTextFrame(tag.CommonID("Release time"), tag.DefaultEncoding(), track.ReleaseDate)
	}
	if track.ISRC != "" {
		tag.AddTextFrame(tag.CommonID("ISRC"), tag.DefaultEncoding(), track.ISRC)
	}
	if track.Gain != 0 {
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: "REPLAYGAIN_TRACK_GAIN",
			Value:       fmt.Sprintf("%.2f dB", track.Gain),
		})
	}
	if track.ExplicitLyrics {
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: "ITUNESADVISORY",
			Value:       "1",
		})
	}

	if len(coverData) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    imageMIME(coverData),
			PictureType: id3v2.PTFrontCover,
			Description: "Front Cover",
			Picture:     coverData,
		})
	}

	return tag.Save()
}

// imageMIME sniffs the MIME type from image header bytes so PNG covers
// are not labelled as image/jpeg.
func imageMIME(data []byte) string {
	mime := http.DetectContentType(data)
	if idx := strings.Index(mime, ";"); idx != -1 {
		mime = strings.TrimSpace(mime[:idx])
	}
	return mime
}

var imageClient = httpclient.NewClient(&http.Client{Timeout: constants.ImageHTTPTimeout}, 0)

// DownloadImage fetches an image and returns the raw bytes. An empty
// URL yields no data and no error.
func DownloadImage(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, nil
	}

	resp, err := imageClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d (URL: %s)", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// SaveImageToFile persists image bytes to the given file path,
// creating parent directories as needed.
func SaveImageToFile(imageData []byte, filePath string) error {
	if len(imageData) == 0 {
		return nil
	}

	if err := storage.EnsureDir(filepath.Dir(filePath)); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := storage.WriteFile(filePath, imageData); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}
	return nil
}
