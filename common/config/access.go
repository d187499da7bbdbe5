package config

import (
	"fmt"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var Path = DefaultPath

var instance *MainConfig
var singletonLock = &sync.Once{}
var instanceLock = &sync.RWMutex{}

// Load reads the configuration at the given path, writing a default one first if nothing
// exists there. A directory is read as a set of files applied over top of each other in
// name order.
func Load(configPath string) (*MainConfig, error) {
	c := NewDefaultMainConfig()

	info, err := os.Stat(configPath)
	exists := err == nil || !os.IsNotExist(err)
	if !exists {
		fmt.Println("Generating new configuration...")
		if err = writeDefault(configPath, c); err != nil {
			return nil, err
		}
	}

	// Get new info about the possible directory after creating
	info, err = os.Stat(configPath)
	if err != nil {
		return nil, err
	}

	pathsOrdered := make([]string, 0)
	if info.IsDir() {
		logrus.Info("Config is a directory - loading all files over top of each other")

		files, err := os.ReadDir(configPath)
		if err != nil {
			return nil, err
		}

		for _, f := range files {
			if f.IsDir() {
				continue
			}
			pathsOrdered = append(pathsOrdered, path.Join(configPath, f.Name()))
		}

		sort.Strings(pathsOrdered)
	} else {
		pathsOrdered = append(pathsOrdered, configPath)
	}

	for _, p := range pathsOrdered {
		logrus.Debug("Loading config file: ", p)
		buffer, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err = yaml.Unmarshal(buffer, &c); err != nil {
			return nil, errors.Wrap(err, "error parsing "+p)
		}
	}

	return &c, nil
}

func writeDefault(configPath string, c MainConfig) error {
	configBytes, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	newFile, err := os.Create(configPath)
	if err != nil {
		return err
	}

	_, err = newFile.Write(configBytes)
	if err != nil {
		_ = newFile.Close()
		return err
	}

	return newFile.Close()
}

func reloadConfig() (*MainConfig, error) {
	return Load(Path)
}

func Get() *MainConfig {
	singletonLock.Do(func() {
		c, err := reloadConfig()
		if err != nil {
			logrus.Fatal(err)
		}
		instanceLock.Lock()
		instance = c
		instanceLock.Unlock()
	})
	instanceLock.RLock()
	defer instanceLock.RUnlock()
	return instance
}

func set(c *MainConfig) {
	instanceLock.Lock()
	defer instanceLock.Unlock()
	instance = c
}
