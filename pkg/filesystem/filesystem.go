package filesystem

import (
	"time"
)

// File is a physical template resource located by a FileSystem.
type File interface {
	// Path returns the physical path of the file, including its root.
	Path() string
	// Extension returns the extension without the leading dot.
	Extension() string
	IsDir() bool
	Read() ([]byte, error)
	// ModTime reports the modification time when the backing store knows it.
	ModTime() (time.Time, bool)
}

// Directory is a listable directory handle.
type Directory interface {
	Path() string
	// Read returns the direct children of the directory.
	Read() ([]File, error)
}

// FileSystem mirrors the lookup contract consumed by the resolver.
type FileSystem interface {
	// Exists returns the first regular file found at the root-relative path.
	Exists(path string) (File, bool)
	// Directories returns one handle per root holding a directory at path.
	Directories(path string) ([]Directory, error)
	// RelativePath strips the root prefix from a file's physical path.
	RelativePath(file File) string
}
