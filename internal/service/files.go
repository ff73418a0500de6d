package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
)

const maxFileSize = 10 << 20 // 10 MB

// FileIngestor wraps the Mediator with filesystem-sourced ingestion. The
// identifying key for a file is its absolute path, so reingesting the same
// file from a different working directory still resolves to the same document.
type FileIngestor struct {
	mediator    *Mediator
	concurrency int
}

// NewFileIngestor creates a FileIngestor. concurrency bounds how many files a
// directory ingest reads and embeds at once.
func NewFileIngestor(mediator *Mediator, concurrency int) *FileIngestor {
	if concurrency <= 0 {
		concurrency = 4
	}

	return &FileIngestor{mediator: mediator, concurrency: concurrency}
}

// IngestFile reads one file and ingests it through the Mediator.
func (f *FileIngestor) IngestFile(ctx context.Context, path, collection string, mode models.IngestMode, md models.Metadata) (*models.IngestResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", path, err)
	}

	content, err := readFile(abs)
	if err != nil {
		return nil, err
	}

	return f.mediator.Ingest(ctx, IngestRequest{
		Collection:     collection,
		IdentifyingKey: abs,
		Title:          filepath.Base(abs),
		Content:        content,
		SourceType:     models.SourceFile,
		Mode:           mode,
		Metadata:       md,
	})
}

// IngestDirectory ingests every file under dir whose extension matches one of
// extensions (all files when empty). Files are read and embedded concurrently
// up to the configured limit; each file's delete-then-create sequence still
// runs sequentially inside its own Ingest call. Per-file failures are
// collected in the result, not raised, so one unreadable file does not sink
// the batch.
func (f *FileIngestor) IngestDirectory(ctx context.Context, dir, collection string, mode models.IngestMode, extensions []string, md models.Metadata) ([]models.FileResult, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}

	paths, err := matchFiles(abs, extensions)
	if err != nil {
		return nil, err
	}

	results := make([]models.FileResult, len(paths))

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			res, err := f.IngestFile(gctx, path, collection, mode, md.Clone())

			mu.Lock()
			defer mu.Unlock()

			results[i] = models.FileResult{Path: path, Result: res}
			if err != nil {
				results[i].Err = err.Error()
			}

			// Per-file errors are recorded, never propagated; only
			// context cancellation stops the batch.
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	return results, nil
}

// matchFiles walks dir and returns absolute paths of regular files matching
// the extension filter, sorted for deterministic batch ordering.
func matchFiles(dir string, extensions []string) ([]string, error) {
	allowed := make(map[string]bool, len(extensions))

	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}

		allowed[strings.ToLower(ext)] = true
	}

	var paths []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		if len(allowed) > 0 && !allowed[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		paths = append(paths, path)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory %q: %w", dir, err)
	}

	sort.Strings(paths)

	return paths, nil
}

func readFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("reading file %q: %w", path, err)
	}

	if info.Size() > maxFileSize {
		return "", fmt.Errorf("file %q exceeds maximum size of %d bytes", path, maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading file %q: %w", path, err)
	}

	return string(data), nil
}
