package loader

import (
	"io"
	"io/fs"
	"os"
)

// loaderBackend opens resource files by name. Implementations decide where names resolve;
// the loader handles retrying and decoding.
type loaderBackend interface {
	// Open opens the named resource for reading.
	//
	// Parameters:
	//   - name: the resource path
	//
	// Returns:
	//   - io.ReadCloser: the open resource
	//   - error: error if the resource cannot be opened
	Open(name string) (io.ReadCloser, error)
}

// osLoaderBackend resolves names against the local filesystem.
type osLoaderBackend struct{}

func (osLoaderBackend) Open(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// fsLoaderBackend resolves names inside an fs.FS, such as an embed.FS.
type fsLoaderBackend struct {
	fsys fs.FS
}

func (b fsLoaderBackend) Open(name string) (io.ReadCloser, error) {
	return b.fsys.Open(name)
}
