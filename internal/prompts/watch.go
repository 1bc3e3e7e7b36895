package prompts

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nizami/nizami-backend/internal/repository"
)

// Watch reloads the prompt directory whenever a prompt file changes. It
// returns once the watcher is running and stops when ctx is done.
func (r *Registry) Watch(ctx context.Context) error {
	r.mu.RLock()
	dir := r.dir
	r.mu.RUnlock()
	if dir == "" {
		return fmt.Errorf("no prompts dir loaded")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isPromptFile(event.Name) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := r.LoadDir(dir); err != nil {
					r.logger.WithError(err).Warn("Failed to reload prompts, keeping previous set")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.WithError(err).Error("Prompt watcher error")
			}
		}
	}()

	r.logger.WithField("dir", dir).Info("Watching prompt files")
	return nil
}

// RefreshEvery reloads database overrides from repo every interval until ctx
// is done. A failed reload keeps the previous overrides.
func (r *Registry) RefreshEvery(ctx context.Context, repo repository.PromptRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.Refresh(ctx, repo); err != nil {
					r.logger.WithError(err).Warn("Failed to refresh prompt overrides")
				}
			}
		}
	}()
}
