// Package watcher reloads the corpus when its source file changes.
//
// Change detection uses fsnotify on the file's parent directory, so
// editors that save by writing a temp file and renaming it are seen. When
// fsnotify is unavailable (network mounts, some container volumes) the
// watcher falls back to polling the file's size and modification time.
//
// Bursts of events are coalesced by a Debouncer, and the handler runs at
// most once per burst:
//
//	w := watcher.New(cfg.Corpus.Path, watcher.DefaultOptions())
//	err := w.Run(ctx, func(ctx context.Context, events []watcher.FileEvent) {
//	    _, _ = reloader.Reload(ctx, false)
//	})
package watcher
