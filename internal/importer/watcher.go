// Package importer watches a drop folder and feeds JSON files dropped
// into it through the import-merge pipeline.
package importer

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"shelf/internal/storage"
	"shelf/internal/vaultservice"
)

// settleDelay gives the writing process time to finish before a
// dropped file is consumed.
const settleDelay = 300 * time.Millisecond

// Suffixes appended to consumed files so they are not picked up again.
const (
	doneSuffix   = ".imported"
	failedSuffix = ".failed"
)

// Watch runs an fsnotify watcher on dir and processes dropped .json
// files until ctx is cancelled. Consumed files are renamed in place
// with a status suffix.
func Watch(ctx context.Context, svc *vaultservice.Service, dir string, logger *slog.Logger) error {
	drop, err := storage.NewDir(dir)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(drop.Root()); err != nil {
		return err
	}

	logger.Info("importer: watching drop folder", slog.String("dir", drop.Root()))

	// Debounce per file: repeated write events reset the timer, and
	// the file is consumed once it settles.
	pending := make(map[string]*time.Timer)
	settled := make(chan string, 64)

	schedule := func(name string) {
		if t, ok := pending[name]; ok {
			t.Reset(settleDelay)
			return
		}
		pending[name] = time.AfterFunc(settleDelay, func() {
			select {
			case settled <- name:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			for _, t := range pending {
				t.Stop()
			}
			logger.Info("importer: stopped")
			return nil

		case name := <-settled:
			delete(pending, name)
			consume(ctx, svc, drop, name, logger)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
				continue
			}
			schedule(name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("importer: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// consume imports one dropped file and renames it with the outcome
// suffix.
func consume(ctx context.Context, svc *vaultservice.Service, drop *storage.Dir, name string, logger *slog.Logger) {
	data, err := drop.Read(name)
	if err != nil {
		logger.Warn("importer: read failed", slog.String("file", name), slog.String("error", err.Error()))
		return
	}

	summary, err := svc.Import(ctx, data)
	if err != nil {
		logger.Warn("importer: import rejected",
			slog.String("file", name),
			slog.String("error", err.Error()))
		if renameErr := drop.Rename(name, name+failedSuffix); renameErr != nil {
			logger.Warn("importer: mark failed", slog.String("error", renameErr.Error()))
		}
		return
	}

	logger.Info("importer: merged",
		slog.String("file", name),
		slog.Int("accepted", summary.Accepted),
		slog.Int("skipped", summary.Skipped))
	if renameErr := drop.Rename(name, name+doneSuffix); renameErr != nil {
		logger.Warn("importer: mark done", slog.String("error", renameErr.Error()))
	}
}
