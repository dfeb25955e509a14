package legacy

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kisernl/flashcard-app/internal/store"
)

// Watch runs an fsnotify watcher on the legacy directory until ctx is
// cancelled. A legacy dump dropped into the directory while the app is
// running (an export copied over from an old install) triggers a debounced
// migration pass, so users do not have to restart to import it.
//
// Migration failures are logged, never fatal: the key files stay in place
// and the pass retries on the next event or the next start.
func Watch(ctx context.Context, st store.Store, flat *Files, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(flat.root); err != nil {
		return err
	}

	logger.Info("legacy watcher: started", slog.String("root", flat.root))

	// Debounce timer: dumps are often written as two files in quick
	// succession, so coalesce events before migrating.
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(200 * time.Millisecond)
			timerCh = timer.C
		} else {
			timer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("legacy watcher: stopped")
			return nil

		case <-timerCh:
			if err := Migrate(ctx, st, flat, logger); err != nil {
				logger.Warn("legacy watcher: migration failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if name != DecksKey && name != StacksKey {
				continue
			}
			logger.Debug("legacy watcher: dump detected", slog.String("key", name))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("legacy watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
