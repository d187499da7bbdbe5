package config

import (
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

var watchDebounce = 1 * time.Second

// Watch reloads the configuration whenever it or one of the extra paths changes, then calls
// onChange. Bursts of events within a second are collapsed into one reload. Reloads never
// overlap: a change that lands while onChange is still running waits for it to return.
func Watch(onChange func(), extraPaths ...string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, p := range append([]string{Path}, extraPaths...) {
		if err = watcher.Add(p); err != nil {
			_ = watcher.Close()
			return nil, err
		}
	}

	go func() {
		debounced := debounce.New(watchDebounce)
		changeLock := &sync.Mutex{}
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				logrus.Debug("Watched file changed: ", ev.Name)
				debounced(func() {
					changeLock.Lock()
					defer changeLock.Unlock()
					onFileChanged()
					if onChange != nil {
						onChange()
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logrus.Error("error in config watcher:", err)
			}
		}
	}()

	return watcher, nil
}

func onFileChanged() {
	logrus.Info("Config file change detected - reloading")
	configNow := Get()
	configNew, err := reloadConfig()
	if err != nil {
		logrus.Error("Error reloading configuration - ignoring")
		logrus.Error(err)
		return
	}

	logrus.Info("Applying reloaded config live")
	set(configNew)

	if configNew.Logging != configNow.Logging {
		logrus.Warn("Log configuration changed - restart to apply changes")
	}
	if configNew.Metrics != configNow.Metrics {
		logrus.Warn("Metrics configuration changed - restart to apply changes")
	}
	if configNew.Effects.Workers != configNow.Effects.Workers {
		logrus.Warn("Effect worker count changed - restart to apply changes")
	}
}
