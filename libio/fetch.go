package libio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/h2non/filetype"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/sync/semaphore"
)

type Kind int

const (
	KindBinary Kind = iota
	KindText
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindBinary:
		return "binary"
	case KindText:
		return "text"
	case KindImage:
		return "image"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type DownloaderOptions struct {
	// MaxConcurrent limits parallel reads, defaults to 4.
	MaxConcurrent int64
	Logger        *slog.Logger
}

// Downloader reads files from a file system in the background.
//
// Completion callbacks never run on the reading goroutine. They are queued and
// executed by Poll, which the owner calls from its render thread, so callbacks
// are free to issue GPU calls.
type Downloader struct {
	fsys   fs.FS
	log    *slog.Logger
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc

	outstanding atomic.Int32
	wg          sync.WaitGroup

	mu    sync.Mutex
	queue []func()
}

func NewDownloader(fsys fs.FS, opts DownloaderOptions) *Downloader {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Downloader{
		fsys:   fsys,
		log:    opts.Logger,
		sem:    semaphore.NewWeighted(opts.MaxConcurrent),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Fetch reads path asynchronously. done receives nil if the file is missing,
// unreadable or not of the expected kind. It runs during a later Poll.
func (d *Downloader) Fetch(path string, kind Kind, done func([]byte)) {
	d.outstanding.Add(1)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		var data []byte
		if err := d.sem.Acquire(d.ctx, 1); err == nil {
			data = d.Load(path, kind)
			d.sem.Release(1)
		}
		d.outstanding.Add(-1)

		d.mu.Lock()
		d.queue = append(d.queue, func() { done(data) })
		d.mu.Unlock()
	}()
}

// Load reads path synchronously and returns nil on failure.
func (d *Downloader) Load(path string, kind Kind) []byte {
	data, err := d.read(path, kind)
	if err != nil {
		d.log.Warn("download failed", "path", path, "kind", kind, "error", err)
		return nil
	}
	return data
}

func (d *Downloader) read(path string, kind Kind) ([]byte, error) {
	data, err := fs.ReadFile(d.fsys, strings.TrimPrefix(path, "./"))
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".lz4") {
		data, err = io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("decompress: %w", err)
		}
	}
	if kind == KindImage && !filetype.IsImage(data) {
		return nil, fmt.Errorf("not an image")
	}
	return data, nil
}

// Outstanding returns the number of reads that have not finished yet.
func (d *Downloader) Outstanding() int {
	return int(d.outstanding.Load())
}

// Poll runs the callbacks of finished reads and returns how many ran.
func (d *Downloader) Poll() int {
	d.mu.Lock()
	queue := d.queue
	d.queue = nil
	d.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
	return len(queue)
}

// Flush waits for all reads, including ones started by callbacks, and runs
// their callbacks.
func (d *Downloader) Flush() {
	for {
		d.wg.Wait()
		if d.Poll() == 0 && d.Outstanding() == 0 {
			return
		}
	}
}

// Close aborts reads that are still waiting for a slot. Their callbacks
// receive nil.
func (d *Downloader) Close() {
	d.cancel()
	d.wg.Wait()
}
