package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/hathi/internal/model"
	"github.com/nao1215/hathi/internal/netdial"
)

// DefaultConfigFile is the name hathi looks for in the working and home
// directories.
const DefaultConfigFile = ".hathi"

// ErrConfigNotFound is returned, wrapped with the path, when a configuration
// file that was asked for does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads a .hathi file and checks it before any scan starts.
// Unknown keys, unknown service types, a negative worker count and a
// malformed proxy address are reported with the file path.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	cf := NewFile()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cf.Hosts == nil {
		cf.Hosts = make(map[string]HostConfig)
	}

	if err := cf.check(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cf, nil
}

// check validates the values Config.Validate would otherwise reject only
// after they were merged into a scan.
func (f *File) check() error {
	if _, err := parseTypes(f.Defaults.Types); err != nil {
		return fmt.Errorf("defaults.types: %w", err)
	}
	if f.Defaults.Workers < 0 {
		return fmt.Errorf("defaults.workers: %w", ErrInvalidWorkers)
	}
	if f.Defaults.Proxy != "" && !netdial.IsValidProxyAddress(f.Defaults.Proxy) {
		return fmt.Errorf("defaults.proxy: %w", ErrInvalidProxyAddress)
	}
	for host := range f.Hosts {
		if host == "" {
			return errors.New("hosts: empty host key")
		}
	}
	return nil
}

// parseTypes resolves service type names, accepting the same aliases as the
// type flags.
func parseTypes(names []string) ([]model.ServiceType, error) {
	types := make([]model.ServiceType, 0, len(names))
	for _, name := range names {
		t, err := model.ParseServiceType(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidServiceType, name)
		}
		types = append(types, t)
	}
	return types, nil
}

// FindConfigFile returns the configuration file to load. An explicit path
// must exist. Without one, .hathi is looked up in the working directory and
// then the home directory; finding neither returns "" and no error.
func FindConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("%w: %s", ErrConfigNotFound, explicit)
			}
			return "", err
		}
		return explicit, nil
	}

	for _, dir := range searchDirs() {
		candidate := filepath.Join(dir, DefaultConfigFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", nil
}

// searchDirs lists the directories searched for DefaultConfigFile, in order.
func searchDirs() []string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	return dirs
}
