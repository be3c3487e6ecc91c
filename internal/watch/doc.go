// Package watch implements hot-folder mode.
//
// A Watcher observes the input directory with fsnotify, waits for activity to
// settle for the configured debounce window, and then hands a batch to the
// same Runner the one-shot convert command uses. Sources processed during the
// session are remembered in a Seen set so discovery does not queue them
// again; a later write to the same file makes it eligible once more.
package watch
