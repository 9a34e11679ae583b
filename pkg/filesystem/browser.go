package filesystem

import (
	"errors"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Browser looks files up across an ordered list of roots on an afero.Fs.
// Roots listed first take precedence for Exists; Directories returns a
// handle for every root that contains the requested directory.
type Browser struct {
	fs    afero.Fs
	roots []string
}

var _ FileSystem = (*Browser)(nil)

// NewBrowser builds a Browser over the provided roots. An empty root list
// mounts the file system root ("").
func NewBrowser(files afero.Fs, roots ...string) *Browser {
	if files == nil {
		files = afero.NewOsFs()
	}

	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		cleaned = append(cleaned, cleanRoot(root))
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, "")
	}

	return &Browser{fs: files, roots: cleaned}
}

// NewOSBrowser mounts directories of the host file system.
func NewOSBrowser(roots ...string) *Browser {
	return NewBrowser(afero.NewOsFs(), roots...)
}

// NewIOFSBrowser mounts an io/fs.FS, typically an embed.FS, as a single
// read-only root.
func NewIOFSBrowser(files fs.FS) *Browser {
	return NewBrowser(afero.FromIOFS{FS: files})
}

// Roots returns the mounted roots in lookup order.
func (b *Browser) Roots() []string {
	out := make([]string, len(b.roots))
	copy(out, b.roots)
	return out
}

// Exists implements FileSystem.
func (b *Browser) Exists(name string) (File, bool) {
	name = cleanRelative(name)
	if name == "" {
		return nil, false
	}

	for _, root := range b.roots {
		full := joinRoot(root, name)
		info, err := b.fs.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		return &aferoFile{fs: b.fs, path: full, info: info}, true
	}
	return nil, false
}

// Directories implements FileSystem.
func (b *Browser) Directories(name string) ([]Directory, error) {
	name = cleanRelative(name)

	var out []Directory
	for _, root := range b.roots {
		full := joinRoot(root, name)
		info, err := b.fs.Stat(full)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if !info.IsDir() {
			continue
		}
		out = append(out, &aferoDirectory{fs: b.fs, path: full})
	}
	return out, nil
}

// RelativePath implements FileSystem.
func (b *Browser) RelativePath(file File) string {
	if file == nil {
		return ""
	}
	full := file.Path()
	for _, root := range b.roots {
		if root == "" {
			continue
		}
		if rel, ok := strings.CutPrefix(full, root+"/"); ok {
			return rel
		}
	}
	return strings.TrimPrefix(full, "/")
}

type aferoFile struct {
	fs   afero.Fs
	path string
	info fs.FileInfo
}

func (f *aferoFile) Path() string { return f.path }

func (f *aferoFile) Extension() string {
	return strings.TrimPrefix(path.Ext(f.path), ".")
}

func (f *aferoFile) IsDir() bool {
	return f.info != nil && f.info.IsDir()
}

func (f *aferoFile) Read() ([]byte, error) {
	return afero.ReadFile(f.fs, f.path)
}

func (f *aferoFile) ModTime() (time.Time, bool) {
	if f.info == nil {
		return time.Time{}, false
	}
	mod := f.info.ModTime()
	if mod.IsZero() {
		return time.Time{}, false
	}
	return mod, true
}

type aferoDirectory struct {
	fs   afero.Fs
	path string
}

func (d *aferoDirectory) Path() string { return d.path }

func (d *aferoDirectory) Read() ([]File, error) {
	infos, err := afero.ReadDir(d.fs, d.path)
	if err != nil {
		return nil, err
	}
	out := make([]File, 0, len(infos))
	for _, info := range infos {
		out = append(out, &aferoFile{
			fs:   d.fs,
			path: joinRoot(d.path, info.Name()),
			info: info,
		})
	}
	return out, nil
}

func cleanRoot(root string) string {
	root = strings.TrimSpace(root)
	if root == "" || root == "." {
		return ""
	}
	if root == "/" {
		return "/"
	}
	return strings.TrimRight(path.Clean(root), "/")
}

func cleanRelative(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, "/")
	if name == "" {
		return ""
	}
	return path.Clean(name)
}

func joinRoot(root, name string) string {
	switch {
	case root == "" || root == ".":
		if name == "" || name == "." {
			return "."
		}
		return name
	case name == "" || name == ".":
		return root
	case root == "/":
		return "/" + name
	default:
		return root + "/" + name
	}
}
