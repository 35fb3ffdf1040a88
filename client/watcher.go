package client

import (
	"sync"

	"github.com/CreativeUnicorns/shellprefs"
)

// ShellWatcher redirects to the alternate shell when the effective shell changes.
// It navigates at most once per observed change, so re-rendering with the same
// shell never loops.
type ShellWatcher struct {
	navigator Navigator

	mu   sync.Mutex
	last shellprefs.Shell
}

func NewShellWatcher(navigator Navigator) *ShellWatcher {
	return &ShellWatcher{navigator: navigator}
}

// Observe records effective as the current shell. On the first observation and on every
// change it applies shellprefs.DecideRedirect for currentPath and navigates if required.
// It reports whether a navigation happened.
func (w *ShellWatcher) Observe(effective shellprefs.Shell, currentPath string) bool {
	w.mu.Lock()
	changed := effective != w.last
	w.last = effective
	w.mu.Unlock()

	if !changed {
		return false
	}
	d := shellprefs.DecideRedirect(effective, currentPath)
	if !d.Redirect {
		return false
	}
	w.navigator.Navigate(d.Location)
	return true
}
