// Package resolver maps catalog releases onto canonical library
// folders. A release lives at {root}/{artist}/{sanitized title} -
// {Album|EP|Single}, except compilations, which are filed under a
// shared Various Artists folder. Existing folders are matched fuzzily
// so rescans do not re-download releases whose folders drifted from
// the canonical spelling.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nvalden/discsync/internal/constants"
	"github.com/nvalden/discsync/internal/domain"
	"github.com/nvalden/discsync/internal/logger"
	"github.com/nvalden/discsync/internal/storage"
)

// Resolver computes on-disk paths under one library root. It never
// creates folders except through EnsureFolders.
type Resolver struct {
	root string
	log  *logger.Logger
}

func New(root string, log *logger.Logger) *Resolver {
	return &Resolver{
		root: root,
		log:  log.WithComponent("resolver"),
	}
}

// ArtistDir returns the artist's folder: a case-insensitive match
// against existing root subfolders when one exists, otherwise the
// prospective sanitized path. Nothing is created.
func (r *Resolver) ArtistDir(name string) string {
	sanitized := storage.Sanitize(name)

	entries, err := os.ReadDir(r.root)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() && strings.EqualFold(entry.Name(), sanitized) {
				return filepath.Join(r.root, entry.Name())
			}
		}
	}
	return filepath.Join(r.root, sanitized)
}

// Resolve computes the folder, release type and existence flag for
// each release of one artist. Existence means a matching folder is
// present, its contents are not inspected.
func (r *Resolver) Resolve(artistName string, releases []domain.Release) []domain.ResolvedRelease {
	artistDir := r.ArtistDir(artistName)
	var vaDir string
	listings := make(map[string][]string)

	resolved := make([]domain.ResolvedRelease, 0, len(releases))
	for _, rel := range releases {
		parent := artistDir
		if rel.RecordType == domain.RecordTypeCompile || domain.IsVariousArtists(rel.Artist) {
			if vaDir == "" {
				vaDir = r.ArtistDir(constants.VariousArtistsFolder)
			}
			parent = vaDir
		}

		typ := releaseType(rel.RecordType, rel.TrackCount)
		canonical := storage.Sanitize(rel.Title) + " - " + string(typ)

		existing, ok := listings[parent]
		if !ok {
			existing = listFolders(parent)
			listings[parent] = existing
		}

		path := filepath.Join(parent, canonical)
		exists := false
		if match := fuzzyMatch(canonical, existing); match != "" {
			if match != canonical {
				r.log.Debug("Matched existing release folder", "release", rel.Title, "folder", match)
			}
			path = filepath.Join(parent, match)
			exists = true
		}

		resolved = append(resolved, domain.ResolvedRelease{
			Release: rel,
			Path:    path,
			Type:    typ,
			Exists:  exists,
		})
	}
	return resolved
}

// EnsureFolders creates the folders for the given releases, artist
// levels included, deduplicating shared parents.
func (r *Resolver) EnsureFolders(releases []domain.ResolvedRelease) error {
	seen := make(map[string]bool)
	for _, rel := range releases {
		if seen[rel.Path] {
			continue
		}
		seen[rel.Path] = true
		if err := storage.EnsureDir(rel.Path); err != nil {
			return fmt.Errorf("create release folder %s: %w", rel.Path, err)
		}
	}
	return nil
}

// releaseType trusts the catalog's record type when it names a folder
// type directly, otherwise classifies by track count.
func releaseType(recordType string, trackCount int) domain.ReleaseType {
	switch strings.ToLower(recordType) {
	case domain.RecordTypeAlbum:
		return domain.ReleaseTypeAlbum
	case domain.RecordTypeEP:
		return domain.ReleaseTypeEP
	case domain.RecordTypeSingle:
		return domain.ReleaseTypeSingle
	}

	switch {
	case trackCount <= 2:
		return domain.ReleaseTypeSingle
	case trackCount <= 6:
		return domain.ReleaseTypeEP
	default:
		return domain.ReleaseTypeAlbum
	}
}

// fuzzyMatch finds an existing folder for the canonical name: exact
// normalized match first, then a match with the release-type suffix
// stripped from both sides, then bidirectional containment. Folders
// are tried in sorted order so the first hit is stable.
func fuzzyMatch(canonical string, folders []string) string {
	target := domain.NormalizeName(canonical)
	if target == "" {
		return ""
	}

	norm := make([]string, len(folders))
	for i, f := range folders {
		norm[i] = domain.NormalizeName(f)
	}

	for i, nf := range norm {
		if nf == target {
			return folders[i]
		}
	}

	stripped := stripReleaseSuffix(target)
	if stripped == "" {
		return ""
	}
	for i, nf := range norm {
		if stripReleaseSuffix(nf) == stripped {
			return folders[i]
		}
	}

	for i, nf := range norm {
		sf := stripReleaseSuffix(nf)
		if sf == "" {
			continue
		}
		if strings.Contains(sf, stripped) || strings.Contains(stripped, sf) {
			return folders[i]
		}
	}
	return ""
}

// stripReleaseSuffix removes a trailing release-type word from a
// normalized name ("abbey road album" -> "abbey road").
func stripReleaseSuffix(normalized string) string {
	for _, suffix := range []string{" album", " ep", " single"} {
		if strings.HasSuffix(normalized, suffix) {
			return strings.TrimSuffix(normalized, suffix)
		}
	}
	return normalized
}

func listFolders(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}
