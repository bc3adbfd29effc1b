package filesystem

import (
	"errors"
	"os"
	"sort"

	"github.com/spf13/afero"
)

var (
	ErrFileNotFound      = errors.New("filesystem: file not found")
	ErrDirectoryNotFound = errors.New("filesystem: directory not found")
	ErrNotADirectory     = errors.New("filesystem: not a directory")
	ErrInvalidPath       = errors.New("filesystem: invalid path")
)

// Filesystem is the read-only view the path mapper works against.
type Filesystem interface {
	ReadFile(path string) ([]byte, error)
	FileExists(path string) (bool, error)

	IsDirectory(path string) (bool, error)
	// ListDirectory returns the entries of path sorted by name.
	ListDirectory(path string) ([]os.FileInfo, error)
}

type aferoFileSystem struct {
	fs afero.Fs
}

func NewFileSystem(fs afero.Fs) Filesystem {
	return &aferoFileSystem{fs: fs}
}

// NewLocalFileSystem reads from the OS filesystem; writes are refused.
func NewLocalFileSystem() Filesystem {
	return NewFileSystem(afero.NewReadOnlyFs(afero.NewOsFs()))
}

func (filesystem *aferoFileSystem) ReadFile(path string) ([]byte, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}

	content, err := afero.ReadFile(filesystem.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Join(ErrFileNotFound, err)
		}
		return nil, err
	}

	return content, nil
}

func (filesystem *aferoFileSystem) FileExists(path string) (bool, error) {
	info, err := filesystem.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return !info.IsDir(), nil
}

func (filesystem *aferoFileSystem) IsDirectory(path string) (bool, error) {
	isDir, err := afero.IsDir(filesystem.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return isDir, nil
}

func (filesystem *aferoFileSystem) ListDirectory(path string) ([]os.FileInfo, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}

	exists, err := afero.DirExists(filesystem.fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		isFile, err := filesystem.FileExists(path)
		if err != nil {
			return nil, err
		}
		if isFile {
			return nil, ErrNotADirectory
		}
		return nil, ErrDirectoryNotFound
	}

	infos, err := afero.ReadDir(filesystem.fs, path)
	if err != nil {
		return nil, err
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name() < infos[j].Name()
	})

	return infos, nil
}
