// Package bridge drains remote seedbox folders into a local media library.
//
// A folder is drained depth first: every child folder is drained, marked
// processed and deleted, then every file is downloaded. Only when all of that
// succeeded does the caller mark and delete the folder itself. The registry
// key (id, last modified) is the unit of idempotence. Files carry no key and
// are simply overwritten when a folder is retried, except the loose files of
// a fixed root: that folder outlives the pass, so each of its files is marked
// under a "file:" key once downloaded.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"github.com/mediabridge/mediabridge/internal/mediapath"
	"github.com/mediabridge/mediabridge/internal/metrics"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

type Synchronizer struct {
	remote     RemoteStore
	registry   Registry
	downloader Downloader
	notifier   Notifier

	workers int
	exclude []string
	fs      afero.Fs
	logger  *slog.Logger
	now     func() time.Time
}

func New(remote RemoteStore, reg Registry, dl Downloader, notifier Notifier, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		remote:     remote,
		registry:   reg,
		downloader: dl,
		notifier:   notifier,
		workers:    1,
		fs:         afero.NewOsFs(),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// pass is the state of one Sync call.
type pass struct {
	root     Root
	resolver *mediapath.Resolver
	logger   *slog.Logger

	matched      atomic.Int64
	deleted      atomic.Int64
	skipped      atomic.Int64
	skippedFiles atomic.Int64
	downloaded   atomic.Int64
	excluded     atomic.Int64
	bytes        atomic.Int64
}

// Sync drains one root. The returned report is never nil; the error joins
// every node that stayed unprocessed. A registry persist failure stops the
// pass at once and is returned as is.
func (s *Synchronizer) Sync(ctx context.Context, root Root) (*Report, error) {
	started := s.now()
	p := &pass{
		root:   root,
		logger: s.logger.With("root", root.Name),
	}

	err := s.syncRoot(ctx, p)

	report := &Report{
		Root:            root.Name,
		StartedAt:       started,
		Duration:        s.now().Sub(started).Round(time.Millisecond).String(),
		FoldersMatched:  int(p.matched.Load()),
		FoldersDeleted:  int(p.deleted.Load()),
		FoldersSkipped:  int(p.skipped.Load()),
		FilesSkipped:    int(p.skippedFiles.Load()),
		FilesDownloaded: int(p.downloaded.Load()),
		FilesExcluded:   int(p.excluded.Load()),
		BytesDownloaded: p.bytes.Load(),
	}

	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
		report.Error = err.Error()
	}
	metrics.SyncDuration.WithLabelValues(root.Name, result).Observe(s.now().Sub(started).Seconds())

	// Files that did land are announced even when a sibling failed.
	if err == nil || report.FilesDownloaded > 0 {
		if nerr := s.notifier.Refresh(ctx); nerr != nil {
			metrics.NotifyFailures.Inc()
			report.NotifyError = nerr.Error()
			p.logger.Warn("media server refresh failed", "error", nerr)
		}
	}

	p.logger.Info("sync done",
		"downloaded", report.FilesDownloaded,
		"bytes", humanize.IBytes(uint64(report.BytesDownloaded)),
		"deleted", report.FoldersDeleted,
		"skipped", report.FoldersSkipped,
		"skipped_files", report.FilesSkipped,
		"duration", report.Duration,
		"error", err,
	)
	return report, err
}

func (s *Synchronizer) syncRoot(ctx context.Context, p *pass) error {
	root := p.root
	selectors := 0
	for _, v := range []string{root.FolderID, root.FolderName, root.Prefix} {
		if v != "" {
			selectors++
		}
	}
	if selectors != 1 {
		return fmt.Errorf("root %q: %w", root.Name, ErrInvalidRoot)
	}

	switch {
	case root.Prefix != "":
		return s.syncPrefix(ctx, p)
	case root.FolderName != "":
		listing, err := s.remote.ListRoot(ctx)
		if err != nil {
			return fmt.Errorf("list root: %w", err)
		}
		for _, f := range listing.Folders {
			if f.Name == root.FolderName {
				return s.syncFixed(ctx, p, f)
			}
		}
		if root.DeleteRoot {
			// a drained root is gone until something new is staged
			p.logger.Debug("root folder absent", "folder", root.FolderName)
			return nil
		}
		return fmt.Errorf("root %q: folder %q: %w", root.Name, root.FolderName, ErrRootNotFound)
	default:
		return s.syncFixed(ctx, p, Folder{ID: root.FolderID})
	}
}

// syncPrefix drains every top-level folder whose name starts with the root
// prefix, ignoring case. Other folders are left alone.
func (s *Synchronizer) syncPrefix(ctx context.Context, p *pass) error {
	p.resolver = mediapath.New(p.root.BasePath, p.root.Prefix, mediapath.WithFs(s.fs))

	listing, err := s.remote.ListRoot(ctx)
	if err != nil {
		return fmt.Errorf("list root: %w", err)
	}

	prefix := strings.ToLower(p.root.Prefix)
	var matched []Folder
	for _, f := range listing.Folders {
		if strings.HasPrefix(strings.ToLower(f.Name), prefix) {
			matched = append(matched, f)
		}
	}
	p.matched.Store(int64(len(matched)))
	p.logger.Debug("prefix matched", "prefix", p.root.Prefix, "folders", len(matched), "listed", len(listing.Folders))

	tasks := make([]func(context.Context) error, 0, len(matched))
	for _, f := range matched {
		tasks = append(tasks, func(ctx context.Context) error {
			return s.processFolder(ctx, p, f)
		})
	}
	return s.run(ctx, tasks)
}

// syncFixed drains one configured folder. The folder is a standing staging
// container and survives unless the root asks for its deletion, so its own
// files are tracked one by one.
func (s *Synchronizer) syncFixed(ctx context.Context, p *pass, f Folder) error {
	if f.LastModified != "" && s.registry.IsProcessed(f.ID, f.LastModified) {
		p.skipped.Add(1)
		return nil
	}

	listing, err := s.remote.ListFolder(ctx, f.ID)
	if err != nil {
		return fmt.Errorf("list folder %s: %w", f.ID, err)
	}
	p.matched.Store(1)

	name := f.Name
	if name == "" {
		name = listing.Name
	}
	p.resolver = mediapath.New(p.root.BasePath, name, mediapath.WithFs(s.fs))

	if err := s.drainTasks(ctx, p, listing, name, true); err != nil {
		return err
	}
	if !p.root.DeleteRoot {
		return nil
	}
	if f.LastModified == "" {
		// keyless: a failed delete just means the folder is listed again
		return s.delete(ctx, p, f.ID)
	}
	f.Name = name
	return s.commit(ctx, p, f)
}

// processFolder drains f and commits it, unless this version of f was
// committed before.
func (s *Synchronizer) processFolder(ctx context.Context, p *pass, f Folder) error {
	if s.registry.IsProcessed(f.ID, f.LastModified) {
		p.skipped.Add(1)
		p.logger.Debug("folder already processed", "folder", f.ID, "name", f.Name)
		return nil
	}

	listing, err := s.remote.ListFolder(ctx, f.ID)
	if err != nil {
		metrics.NodeErrors.WithLabelValues(p.root.Name, "folder").Inc()
		return fmt.Errorf("list folder %s (%q): %w", f.ID, f.Name, err)
	}
	if err := s.drainListing(ctx, p, listing, f.Name); err != nil {
		return err
	}
	return s.commit(ctx, p, f)
}

func (s *Synchronizer) drainListing(ctx context.Context, p *pass, listing *Listing, contextName string) error {
	return s.drainTasks(ctx, p, listing, contextName, false)
}

// drainTasks runs the children of listing. With fileKeys set every file is
// checked against and recorded in the registry on its own.
func (s *Synchronizer) drainTasks(ctx context.Context, p *pass, listing *Listing, contextName string, fileKeys bool) error {
	tasks := make([]func(context.Context) error, 0, len(listing.Folders)+len(listing.Files))
	for _, child := range listing.Folders {
		tasks = append(tasks, func(ctx context.Context) error {
			return s.processFolder(ctx, p, child)
		})
	}
	for _, file := range listing.Files {
		tasks = append(tasks, func(ctx context.Context) error {
			return s.processFile(ctx, p, contextName, file, fileKeys)
		})
	}
	return s.run(ctx, tasks)
}

// commit marks f processed and then deletes it remotely. A crash in between
// leaves a committed folder on the remote, never an unmarked deleted one.
func (s *Synchronizer) commit(ctx context.Context, p *pass, f Folder) error {
	if err := s.registry.MarkProcessed(f.ID, f.LastModified); err != nil {
		return err
	}
	return s.delete(ctx, p, f.ID)
}

func (s *Synchronizer) delete(ctx context.Context, p *pass, id string) error {
	if err := s.remote.DeleteFolder(ctx, id); err != nil {
		metrics.NodeErrors.WithLabelValues(p.root.Name, "folder").Inc()
		return fmt.Errorf("delete folder %s: %w", id, err)
	}
	p.deleted.Add(1)
	metrics.FoldersDeleted.WithLabelValues(p.root.Name).Inc()
	p.logger.Info("folder deleted", "folder", id)
	return nil
}

func (s *Synchronizer) processFile(ctx context.Context, p *pass, contextName string, f File, keyed bool) error {
	if s.excluded(contextName, f.Name) {
		p.excluded.Add(1)
		metrics.FilesExcluded.WithLabelValues(p.root.Name).Inc()
		p.logger.Debug("file excluded", "file", f.ID, "name", f.Name)
		return nil
	}
	if keyed && s.registry.IsProcessed(fileKey(f.ID), f.LastModified) {
		p.skippedFiles.Add(1)
		p.logger.Debug("file already processed", "file", f.ID, "name", f.Name)
		return nil
	}

	dest, err := p.resolver.Resolve(contextName, f.Name)
	if err != nil {
		metrics.NodeErrors.WithLabelValues(p.root.Name, "path").Inc()
		return &PathResolutionError{FileID: f.ID, Name: f.Name, Err: err}
	}
	if err := p.resolver.Ensure(dest); err != nil {
		metrics.NodeErrors.WithLabelValues(p.root.Name, "file").Inc()
		return fmt.Errorf("file %s: %w", f.ID, err)
	}

	started := s.now()
	if err := s.downloader.Download(ctx, f.ID, f.Size, dest); err != nil {
		metrics.NodeErrors.WithLabelValues(p.root.Name, "file").Inc()
		return fmt.Errorf("download %s (%q): %w", f.ID, f.Name, err)
	}

	if keyed {
		if err := s.registry.MarkProcessed(fileKey(f.ID), f.LastModified); err != nil {
			return err
		}
	}

	p.downloaded.Add(1)
	p.bytes.Add(f.Size)
	metrics.FilesDownloaded.WithLabelValues(p.root.Name).Inc()
	metrics.BytesDownloaded.WithLabelValues(p.root.Name).Add(float64(f.Size))
	p.logger.Info("file downloaded",
		"file", f.ID,
		"dest", dest,
		"size", humanize.IBytes(uint64(f.Size)),
		"took", s.now().Sub(started).Round(time.Millisecond),
	)
	return nil
}

// fileKey keeps file ids apart from folder ids in the registry.
func fileKey(id string) string {
	return "file:" + id
}

func (s *Synchronizer) excluded(contextName, name string) bool {
	if len(s.exclude) == 0 {
		return false
	}
	remotePath := path.Join(strings.ReplaceAll(contextName, `\`, "/"), strings.ReplaceAll(name, `\`, "/"))
	base := path.Base(remotePath)
	for _, pattern := range s.exclude {
		if ok, _ := doublestar.Match(pattern, remotePath); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// run executes sibling tasks, at most s.workers at a time. A failing task
// does not stop its siblings; the failures are joined. Persist failures and
// cancellation stop everything.
func (s *Synchronizer) run(ctx context.Context, tasks []func(context.Context) error) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	collect := func(ctx context.Context, err error) error {
		if err == nil {
			return nil
		}
		if aborts(ctx, err) {
			return err
		}
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
		return nil
	}

	if s.workers <= 1 {
		for _, task := range tasks {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := collect(ctx, task(ctx)); err != nil {
				return err
			}
		}
		return errors.Join(errs...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, task := range tasks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return collect(gctx, task(gctx))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(errs...)
}
