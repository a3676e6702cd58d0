package nelson

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watch evaluates the input, then evaluates it again each time the file is written or replaced until ctx is
// cancelled.  The parent directory is watched so that saves which rename a temporary file over the input are
// seen.  A failed re-evaluation, e.g. a half written file, is logged and the chart keeps its previous state.
func (c *Command) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(c.Input)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", c.Input, err)
	}
	if _, err := c.Evaluate(ctx); err != nil {
		return err
	}
	c.logger.Info("watching for changes", "path", c.Input)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if _, err := c.Evaluate(ctx); err != nil {
				c.logger.Error("re-evaluation failed", "path", c.Input, "err", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Error("watcher error", "err", err)
		}
	}
}
