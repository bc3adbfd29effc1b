// Package pathmap derives a site's URL structure from a directory tree.
//
// Two modes exist. Page mode snapshots file contents at setup, collapses
// index.html onto its folder and strips extensions. Asset mode re-reads the
// file on every request and keeps the file name verbatim.
package pathmap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/freekieb7/bastro/filesystem"
	"github.com/pkg/errors"
)

const IndexFile = "index.html"

var ErrOutsideFolder = errors.New("pathmap: file is not inside folder")

type Mode int

const (
	ModePage Mode = iota
	ModeAsset
)

func (mode Mode) String() string {
	switch mode {
	case ModePage:
		return "page"
	case ModeAsset:
		return "asset"
	default:
		return fmt.Sprintf("Mode(%d)", int(mode))
	}
}

func ParseMode(name string) (Mode, error) {
	switch name {
	case "page":
		return ModePage, nil
	case "asset":
		return ModeAsset, nil
	default:
		return 0, fmt.Errorf("pathmap: unknown mode %q", name)
	}
}

// EnumerateFiles walks folder depth first and returns every file below it.
// Directories are never returned. Entries of one directory are visited in
// name order so the result is stable across filesystems.
func EnumerateFiles(fsys filesystem.Filesystem, folder string) ([]string, error) {
	files := make([]string, 0)
	if err := walk(fsys, folder, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func walk(fsys filesystem.Filesystem, dir string, files *[]string) error {
	entries, err := fsys.ListDirectory(dir)
	if err != nil {
		return errors.Wrapf(err, "pathmap: list %s", dir)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		// Stat through symlinks, the entry itself may only be a link.
		isDir, err := fsys.IsDirectory(path)
		if err != nil {
			return errors.Wrapf(err, "pathmap: stat %s", path)
		}

		if isDir {
			if err := walk(fsys, path, files); err != nil {
				return err
			}
			continue
		}

		if entry.Mode().IsRegular() || entry.Mode()&os.ModeSymlink != 0 {
			*files = append(*files, path)
		}
	}

	return nil
}

// DeriveRoute strips folder from file and splits the remainder at its last
// separator. subpath is empty or starts with "/" and always uses forward
// slashes. The prefix is compared as a plain string, so folder names holding
// characters like '.', '*' or '+' need no escaping.
func DeriveRoute(folder, file string) (subpath string, fileName string, err error) {
	root := filepath.Clean(folder)
	path := filepath.Clean(file)

	var rest string
	switch {
	case root == ".":
		if filepath.IsAbs(path) || path == ".." || strings.HasPrefix(path, ".."+string(filepath.Separator)) {
			return "", "", errors.Wrapf(ErrOutsideFolder, "%s not in %s", file, folder)
		}
		rest = string(filepath.Separator) + path
	case root == string(filepath.Separator) || strings.HasSuffix(root, string(filepath.Separator)):
		// filesystem roots ("/" or a volume root) keep their trailing separator
		trimmed, found := strings.CutPrefix(path, root)
		if !found {
			return "", "", errors.Wrapf(ErrOutsideFolder, "%s not in %s", file, folder)
		}
		rest = string(filepath.Separator) + trimmed
	default:
		trimmed, found := strings.CutPrefix(path, root)
		if !found || !strings.HasPrefix(trimmed, string(filepath.Separator)) {
			return "", "", errors.Wrapf(ErrOutsideFolder, "%s not in %s", file, folder)
		}
		rest = trimmed
	}

	rest = filepath.ToSlash(rest)
	i := strings.LastIndex(rest, "/")
	if i == len(rest)-1 {
		return "", "", errors.Wrapf(ErrOutsideFolder, "%s is the folder itself", file)
	}

	return rest[:i], rest[i+1:], nil
}

// PageURL is rootURL+subpath for index.html and rootURL+subpath+"/"+base
// otherwise, where base is fileName cut at its first dot.
func PageURL(rootURL, subpath, fileName string) string {
	if fileName == IndexFile {
		return joinURL(rootURL, subpath)
	}

	base, _, _ := strings.Cut(fileName, ".")
	return joinURL(rootURL, subpath+"/"+base)
}

// AssetURL joins the non-empty components of rootURL, subpath and fileName
// with "/". The file name is kept as is.
func AssetURL(rootURL, subpath, fileName string) string {
	components := []string{strings.TrimSuffix(rootURL, "/")}
	components = append(components, strings.Split(subpath, "/")...)
	components = append(components, fileName)

	nonEmpty := make([]string, 0, len(components))
	for _, component := range components {
		if component != "" {
			nonEmpty = append(nonEmpty, component)
		}
	}

	url := strings.Join(nonEmpty, "/")
	if !strings.HasPrefix(url, "/") {
		url = "/" + url
	}
	return url
}

// URL derives the route for file under folder according to mode.
func URL(mode Mode, rootURL, folder, file string) (string, error) {
	subpath, fileName, err := DeriveRoute(folder, file)
	if err != nil {
		return "", err
	}

	if mode == ModeAsset {
		return AssetURL(rootURL, subpath, fileName), nil
	}
	return PageURL(rootURL, subpath, fileName), nil
}

func joinURL(rootURL, tail string) string {
	url := strings.TrimRight(rootURL, "/") + tail
	if !strings.HasPrefix(url, "/") {
		url = "/" + url
	}
	return url
}
