package storage

import (
	"os"
	"strings"

	"github.com/nvalden/discsync/internal/constants"
)

// Sanitize strips characters that are invalid in file and folder names
// and trims trailing dots and spaces.
func Sanitize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(constants.InvalidPathChars, r) {
			return -1
		}
		return r
	}, s)

	return strings.TrimRight(mapped, ". ")
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, constants.DirPermissions)
}

// FileExists reports whether a regular stat of path succeeds.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, constants.FilePermissions)
}

// CreateFile opens path for writing, truncating any previous content.
func CreateFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, constants.FilePermissions)
}

func RemoveFile(path string) error {
	return os.Remove(path)
}

// DeleteFolder removes a folder and everything beneath it.
func DeleteFolder(dirPath string) error {
	return os.RemoveAll(dirPath)
}

func DeleteFolderIfEmpty(dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(entries) == 0 {
		return os.Remove(dirPath)
	}
	return nil
}

func IsNotExist(err error) bool {
	return os.IsNotExist(err)
}
