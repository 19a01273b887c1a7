// Package loader decodes textures and produces meshes off the render goroutine.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/model"
	"github.com/cenkalti/backoff/v4"
)

// ResultKind identifies what a Result carries.
type ResultKind int

const (
	// ResultTexture carries decoded texture pixels.
	ResultTexture ResultKind = iota

	// ResultGeometry carries a validated mesh.
	ResultGeometry
)

// Result is one completed load. Exactly one of Texture or Mesh is set when Err is nil.
type Result struct {
	Name    string
	Kind    ResultKind
	Texture common.TextureStagingData
	Mesh    *model.Mesh
	Err     error
}

// MeshProducer builds a mesh, for example by generating or parsing it.
type MeshProducer func() (*model.Mesh, error)

// ErrClosed is returned by loads submitted after Close.
var ErrClosed = errors.New("loader is closed")

// loader is the implementation of the Loader interface.
type loader struct {
	mu *sync.Mutex

	backend loaderBackend
	pool    worker.DynamicWorkerPool
	workers int
	queue   int

	retries       uint64
	retryInterval time.Duration

	textureCache map[string]common.TextureStagingData
	results      chan Result
	pending      *sync.WaitGroup
	inFlight     int
	nextTaskID   int
	closed       bool
}

// Loader runs texture decodes and mesh producers on a worker pool and reports each completion
// on a channel. Nothing here touches the GPU: the receiver uploads the result on the goroutine
// that owns the device.
type Loader interface {
	// LoadTexture decodes an image file. Decoded textures are cached by path.
	// Transient open and read failures are retried with exponential backoff; missing files
	// and decode failures are not.
	//
	// Parameters:
	//   - path: the image path (PNG, JPEG, BMP, TIFF or WebP)
	//
	// Returns:
	//   - error: ErrClosed if the loader was closed
	LoadTexture(path string) error

	// LoadGeometry runs a mesh producer and validates its mesh.
	//
	// Parameters:
	//   - name: the name reported in the Result
	//   - produce: the mesh producer
	//
	// Returns:
	//   - error: ErrClosed if the loader was closed
	LoadGeometry(name string, produce MeshProducer) error

	// Results returns the completion channel. It is closed by Close once every pending load
	// has been delivered.
	//
	// Returns:
	//   - <-chan Result: the completion channel
	Results() <-chan Result

	// Pending returns the number of loads submitted but not yet delivered.
	//
	// Returns:
	//   - int: the number of pending loads
	Pending() int

	// Texture returns a cached decoded texture.
	//
	// Parameters:
	//   - path: the image path
	//
	// Returns:
	//   - common.TextureStagingData: the pixels
	//   - bool: whether the texture was cached
	Texture(path string) (common.TextureStagingData, bool)

	// Close stops accepting loads, waits for pending loads to be received and closes the
	// results channel. The caller must keep draining Results until it is closed.
	Close()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader reading from the local filesystem unless configured otherwise.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:            &sync.Mutex{},
		backend:       osLoaderBackend{},
		workers:       max(runtime.NumCPU()/2, 1),
		queue:         64,
		retries:       3,
		retryInterval: 50 * time.Millisecond,
		textureCache:  make(map[string]common.TextureStagingData),
		pending:       &sync.WaitGroup{},
	}

	for _, option := range options {
		option(l)
	}

	l.results = make(chan Result, l.queue)
	l.pool = worker.NewDynamicWorkerPool(l.workers, l.queue, 1*time.Second)
	return l
}

func (l *loader) LoadTexture(path string) error {
	return l.submit(func() Result {
		if data, ok := l.Texture(path); ok {
			return Result{Name: path, Kind: ResultTexture, Texture: data}
		}
		data, err := l.decode(path)
		if err != nil {
			return Result{Name: path, Kind: ResultTexture, Err: fmt.Errorf("failed to load texture %s: %w", path, err)}
		}
		l.mu.Lock()
		l.textureCache[path] = data
		l.mu.Unlock()
		return Result{Name: path, Kind: ResultTexture, Texture: data}
	})
}

func (l *loader) LoadGeometry(name string, produce MeshProducer) error {
	return l.submit(func() Result {
		mesh, err := produce()
		if err == nil && mesh == nil {
			err = errors.New("producer returned no mesh")
		}
		if err == nil {
			err = mesh.Validate()
		}
		if err != nil {
			return Result{Name: name, Kind: ResultGeometry, Err: fmt.Errorf("failed to load geometry %s: %w", name, err)}
		}
		return Result{Name: name, Kind: ResultGeometry, Mesh: mesh}
	})
}

func (l *loader) Results() <-chan Result {
	return l.results
}

func (l *loader) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

func (l *loader) Texture(path string) (common.TextureStagingData, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, ok := l.textureCache[path]
	return data, ok
}

func (l *loader) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	l.pending.Wait()
	close(l.results)
}

// submit queues a job on the pool. The job's result is delivered on the results channel.
func (l *loader) submit(job func() Result) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	id := l.nextTaskID
	l.nextTaskID++
	l.inFlight++
	l.pending.Add(1)
	l.mu.Unlock()

	l.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			defer l.pending.Done()
			res := job()
			if res.Err != nil {
				common.Logger().Warn("load failed", "name", res.Name, "error", res.Err)
			}
			l.results <- res
			l.mu.Lock()
			l.inFlight--
			l.mu.Unlock()
			return nil, res.Err
		},
	})
	return nil
}

// decode reads and decodes an image, retrying transient read failures.
func (l *loader) decode(path string) (common.TextureStagingData, error) {
	var data common.TextureStagingData
	operation := func() error {
		r, err := l.backend.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
				return backoff.Permanent(err)
			}
			return err
		}
		defer r.Close()

		data, err = common.DecodeImage(r)
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.retryInterval
	notify := func(err error, wait time.Duration) {
		common.Logger().Warn("retrying texture read", "path", path, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(operation, backoff.WithMaxRetries(b, l.retries), notify); err != nil {
		return common.TextureStagingData{}, err
	}
	return data, nil
}
