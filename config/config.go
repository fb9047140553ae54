package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// KeyDatabase is the config file section holding the target connection.
const KeyDatabase = "database"

// FileNotFoundError denotes failing to find configuration file.
type FileNotFoundError struct {
	name string
}

// Error returns the formatted configuration error.
func (f FileNotFoundError) Error() string {
	return fmt.Sprintf("config file %q not found", f.name)
}

type KeyNotFoundError struct {
	configFile string
	key        string
}

func (k KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %q not found in config file %q", k.key, k.configFile)
}

// File is a YAML config file of flag names and values, plus an optional database section.
// A missing file behaves like an empty one.
type File struct {
	Dirname      string
	FileName     string
	FullPath     string
	data         map[string]interface{}
	dataIsLoaded bool
	mu           sync.Mutex
}

func NewConfigFile(fullPath string) *File {
	c := &File{FullPath: fullPath}
	c.Dirname, c.FileName = filepath.Split(fullPath)
	c.data = make(map[string]interface{})
	return c
}

// NewDefaultConfigFile returns the file ~/.pinetl/config.yaml.
func NewDefaultConfigFile() (*File, error) {
	dir, err := getConfigHomeDir()
	if err != nil {
		return nil, err
	}
	return NewConfigFile(filepath.Join(dir, constants.ConfigFileName)), nil
}

// Exists reports whether the file is on disk.
func (c *File) Exists() bool {
	_, err := os.Stat(c.FullPath)
	return err == nil
}

// Get will fetch the key from the config File into variable, out.
// Scalars are converted weakly, e.g. a YAML integer into a string.
// Return KeyNotFoundError if we can't find the key.
func (c *File) Get(key string, out interface{}) error {
	val := reflect.ValueOf(out)
	if val.Kind() != reflect.Ptr {
		return errors.New("out must be a pointer")
	}
	if err := c.load(); err != nil {
		return err
	}
	d, ok := c.data[key]
	if !ok || d == nil {
		return KeyNotFoundError{c.FullPath, key}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err = dec.Decode(d); err != nil {
		return errors.Wrapf(err, "error reading key %q from config file %q", key, c.FullPath)
	}
	return nil
}

// GetAllKeys returns the top level keys in sorted order.
func (c *File) GetAllKeys() ([]string, error) {
	if err := c.load(); err != nil {
		return nil, err
	}
	retval := make([]string, 0, len(c.data))
	for k := range c.data {
		retval = append(retval, k)
	}
	sort.Strings(retval)
	return retval, nil
}

func (c *File) load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dataIsLoaded {
		return nil
	}
	err := c.loadData()
	if errors.As(err, &FileNotFoundError{}) { // a missing file is empty.
		err = nil
	}
	if err != nil {
		return err
	}
	c.dataIsLoaded = true
	return nil
}

func (c *File) loadData() error {
	b, err := ioutil.ReadFile(c.FullPath)
	if os.IsNotExist(err) {
		return FileNotFoundError{c.FullPath}
	} else if err != nil {
		return err
	}
	data := make(map[string]interface{})
	if err = yaml.Unmarshal(b, &data); err != nil {
		return errors.Wrapf(err, "error parsing config file %q", c.FullPath)
	}
	c.data = data
	return nil
}
