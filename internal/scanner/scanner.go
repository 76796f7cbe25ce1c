// Package scanner discovers the artists a local music library already
// holds. Names come from two places: immediate subfolders of the root
// that directly contain audio files, and artist tags embedded in the
// files themselves. Tag-derived names win on conflict since folder
// names tend to drift from canonical spellings.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhowden/tag"

	"github.com/nvalden/discsync/internal/constants"
	"github.com/nvalden/discsync/internal/domain"
	"github.com/nvalden/discsync/internal/logger"
)

var audioExts = map[string]bool{
	constants.ExtMP3:  true,
	constants.ExtFLAC: true,
	constants.ExtM4A:  true,
	".wav":            true,
	".aac":            true,
	".ogg":            true,
}

// Scanner walks one library root.
type Scanner struct {
	root     string
	maxDepth int
	log      *logger.Logger
}

// New creates a scanner over the given library root. The tag walk is
// bounded to constants.DefaultTagDepth path levels below the root.
func New(root string, log *logger.Logger) *Scanner {
	return &Scanner{
		root:     root,
		maxDepth: constants.DefaultTagDepth,
		log:      log.WithComponent("scanner"),
	}
}

// Discover returns the deduplicated artist set of the library, sorted
// by name. Names matching the various-artists alias set are filing
// targets, not catalog artists, and are dropped. Unreadable folders
// and files are skipped, only an unreadable root is an error.
func (s *Scanner) Discover() ([]domain.DiscoveredArtist, error) {
	found := make(map[string]domain.DiscoveredArtist)

	if err := s.folderArtists(found); err != nil {
		return nil, err
	}
	s.tagArtists(found)

	artists := make([]domain.DiscoveredArtist, 0, len(found))
	for _, a := range found {
		artists = append(artists, a)
	}
	sort.Slice(artists, func(i, j int) bool {
		return domain.NormalizeName(artists[i].Name) < domain.NormalizeName(artists[j].Name)
	})

	s.log.Info("Library scan complete", "artists", len(artists))
	return artists, nil
}

// folderArtists records every immediate subfolder of the root that
// directly holds at least one recognized audio file. Nested-only
// layouts (artist/album/track) are covered by the tag walk instead.
func (s *Scanner) folderArtists(found map[string]domain.DiscoveredArtist) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(s.root, entry.Name())
		if !hasDirectAudio(dir) {
			continue
		}
		s.record(found, entry.Name(), domain.SourceFolder, dir)
	}
	return nil
}

func hasDirectAudio(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if audioExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			return true
		}
	}
	return false
}

// tagArtists walks audio files up to maxDepth levels deep and reads
// the embedded artist names, preferring the album-artist tag over the
// track artist over the composer.
func (s *Scanner) tagArtists(found map[string]domain.DiscoveredArtist) {
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.log.Debug("Skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		depth := strings.Count(rel, string(os.PathSeparator)) + 1

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || depth >= s.maxDepth {
				return fs.SkipDir
			}
			return nil
		}

		if depth > s.maxDepth || !audioExts[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		if name := readArtistTag(path); name != "" {
			s.record(found, name, domain.SourceTag, "")
		}
		return nil
	})
	if err != nil {
		s.log.Warn("Tag walk aborted", "error", err)
	}
}

func readArtistTag(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return ""
	}

	for _, name := range []string{meta.AlbumArtist(), meta.Artist(), meta.Composer()} {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return ""
}

// record merges one discovered name into the set. Tag-derived entries
// replace folder-derived ones but keep the folder's path hint when
// the tag side has none.
func (s *Scanner) record(found map[string]domain.DiscoveredArtist, name string, source domain.ArtistSource, pathHint string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	key := domain.NormalizeName(name)
	if key == "" || domain.IsVariousArtists(name) {
		return
	}

	existing, ok := found[key]
	if !ok {
		found[key] = domain.DiscoveredArtist{Name: name, Source: source, PathHint: pathHint}
		return
	}

	if existing.Source == domain.SourceFolder && source == domain.SourceTag {
		hint := pathHint
		if hint == "" {
			hint = existing.PathHint
		}
		found[key] = domain.DiscoveredArtist{Name: name, Source: domain.SourceTag, PathHint: hint}
	}
}
