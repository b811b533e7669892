package source

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/poiesic/recall/core"
)

// DirectorySource ingests every supported file under a directory tree.
// With watching enabled it is also incremental: files created or
// modified after registration are pushed as additional chunk streams
// on Updates until Close is called.
type DirectorySource struct {
	base
	dir       string
	watch     bool
	chunkOpts []Option
	watcher   *fsnotify.Watcher
	updates   chan Stream
	done      chan struct{}
	logger    *slog.Logger
}

var (
	_ Source            = (*DirectorySource)(nil)
	_ IncrementalSource = (*DirectorySource)(nil)
)

// DirOption configures a DirectorySource.
type DirOption func(*DirectorySource)

// WithWatch enables filesystem watching, turning the source into an
// incremental one.
func WithWatch() DirOption {
	return func(s *DirectorySource) {
		s.watch = true
	}
}

// WithFileOptions sets the chunking hints passed to the per-file
// sources built for each discovered file.
func WithFileOptions(opts ...Option) DirOption {
	return func(s *DirectorySource) {
		s.chunkOpts = opts
	}
}

// NewDirectory creates a source for a directory tree. The unique key is
// derived from the absolute path.
func NewDirectory(dir string, opts ...DirOption) *DirectorySource {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	s := &DirectorySource{
		base: newBase("DirectorySource", abs, map[string]string{
			"source": abs,
			"path":   abs,
		}),
		dir:     abs,
		updates: make(chan Stream),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "directory-source", "dir", abs),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init stores the scoped state and, when watching is enabled, starts
// the filesystem watcher.
func (s *DirectorySource) Init(ctx context.Context, state ScopedState) error {
	if err := s.base.Init(ctx, state); err != nil {
		return err
	}
	if !s.watch {
		close(s.updates)
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher
	go s.watchLoop()
	return nil
}

// Updates yields a chunk stream per changed file. The channel closes
// when the source is closed or watching is disabled.
func (s *DirectorySource) Updates() <-chan Stream {
	return s.updates
}

// Close stops the watcher and closes the updates channel. Safe to call
// only once.
func (s *DirectorySource) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *DirectorySource) watchLoop() {
	defer close(s.updates)
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !supportedFile(event.Name) {
				continue
			}
			s.logger.Debug("file changed", "path", event.Name, "op", event.Op.String())
			select {
			case s.updates <- s.fileStream(event.Name):
			case <-s.done:
				return
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watch error", "error", err)
		}
	}
}

// fileStream builds the chunk stream for a single file, stamping each
// chunk with this source's type so ingestion attributes it here.
func (s *DirectorySource) fileStream(path string) Stream {
	inner, err := ForFile(path, s.chunkOpts...)
	if err != nil {
		return streamError(err)
	}
	return func(yield func(*core.RawChunk, error) bool) {
		for chunk, err := range inner.Chunks(context.Background()) {
			if err != nil {
				yield(nil, err)
				return
			}
			chunk.Metadata["type"] = s.sourceType
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Chunks walks the directory tree and yields the chunks of every
// supported file. Unsupported files are skipped with a debug log.
func (s *DirectorySource) Chunks(ctx context.Context) Stream {
	return func(yield func(*core.RawChunk, error) bool) {
		err := filepath.WalkDir(s.dir, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				return nil
			}
			if !supportedFile(path) {
				s.logger.Debug("skipping unsupported file", "path", path)
				return nil
			}
			for chunk, err := range s.fileStream(path) {
				if err != nil {
					return err
				}
				if !yield(chunk, nil) {
					return filepath.SkipAll
				}
			}
			return ctx.Err()
		})
		if err != nil {
			yield(nil, err)
		}
	}
}
