package ingest

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/flower-explorer/vistool/internal/errors"
)

// UnreadableDir is a directory below the data root that could not be listed.
type UnreadableDir struct {
	Path string
	Err  error
}

// Discover returns the camera folders exactly three levels below root whose name is one of
// cameras. Names are compared with the directory entries as stored, so they match
// case-sensitively even on case-insensitive filesystems. The result is sorted by folder path.
//
// Only an unreadable root is an error. Directories below it that cannot be listed are
// skipped and returned in unreadable.
func Discover(root string, cameras []string) (folders []CameraFolder, unreadable []UnreadableDir, err error) {
	if len(cameras) == 0 {
		return nil, nil, nil
	}
	if _, err := os.ReadDir(root); err != nil {
		return nil, nil, errors.FileError(err, root)
	}

	parents := []string{root}
	for range 3 {
		var next []string
		for _, dir := range parents {
			subdirs, err := subdirectories(dir)
			if err != nil {
				unreadable = append(unreadable, UnreadableDir{Path: dir, Err: err})
				continue
			}
			next = append(next, subdirs...)
		}
		parents = next
	}

	for _, parent := range parents {
		subdirs, err := subdirectories(parent)
		if err != nil {
			unreadable = append(unreadable, UnreadableDir{Path: parent, Err: err})
			continue
		}
		for _, dir := range subdirs {
			if !slices.Contains(cameras, filepath.Base(dir)) {
				continue
			}
			folder, err := ParseCameraPath(root, dir)
			if err != nil {
				return nil, nil, err
			}
			folders = append(folders, folder)
		}
	}

	slices.SortFunc(folders, func(a, b CameraFolder) int {
		return strings.Compare(a.Dir, b.Dir)
	})
	return folders, unreadable, nil
}

// subdirectories lists the directories directly inside dir. Symlinks to directories count.
func subdirectories(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.FileError(err, dir)
	}

	dirs := make([]string, 0, len(entries))
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			dirs = append(dirs, path)
			continue
		}
		if e.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				dirs = append(dirs, path)
			}
		}
	}
	return dirs, nil
}
