package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileNames are looked up, in order, when no config path is given.
var FileNames = []string{".stagehand.toml", ".stagehand.yaml", ".stagehand.yml"}

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Path is an explicit config file. When empty, FileNames are searched in
	// SearchDirs.
	Path string

	// SearchDirs are searched for FileNames when Path is empty.
	SearchDirs []string

	// Viper carries flag bindings. A fresh instance is used when nil.
	Viper *viper.Viper

	// FS defaults to OSFS.
	FS FileSystem
}

// Load builds the configuration from defaults, the config file, the
// environment and the flags bound to opts.Viper, then validates it.
// A missing config file is not an error.
func Load(opts LoadOptions) (*Config, error) {
	if opts.FS == nil {
		opts.FS = OSFS{}
	}
	v := opts.Viper
	if v == nil {
		v = viper.New()
	}

	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	data, source, err := readFirst(opts)
	if err != nil {
		return nil, err
	}
	if data != nil {
		if err := v.MergeConfigMap(data); err != nil {
			return nil, errors.Wrapf(err, "merge %s", source)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("git.binary", d.Git.Binary)
	v.SetDefault("git.command_timeout", d.Git.CommandTimeout)
	v.SetDefault("git.env", d.Git.Env)
	v.SetDefault("status.scanner", d.Status.Scanner)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("telemetry.file", d.Telemetry.File)
}

// readFirst reads the explicit path, or the first existing search candidate.
func readFirst(opts LoadOptions) (map[string]any, string, error) {
	candidates := []string{opts.Path}
	if opts.Path == "" {
		candidates = candidates[:0]
		for _, dir := range opts.SearchDirs {
			for _, name := range FileNames {
				candidates = append(candidates, filepath.Join(dir, name))
			}
		}
	}

	for _, path := range candidates {
		data, err := LoadFile(opts.FS, path)
		if err != nil {
			return nil, path, err
		}
		if data != nil {
			return data, path, nil
		}
	}
	return nil, "", nil
}

// LoadFile parses one config file into a map, choosing the format by
// extension (TOML unless .yaml or .yml). It returns nil, nil when the file
// does not exist.
func LoadFile(fsys FileSystem, path string) (map[string]any, error) {
	raw, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(path, raw)
	default:
		return parseTOML(path, raw)
	}
}

func parseTOML(path string, raw []byte) (map[string]any, error) {
	var data map[string]any
	if err := toml.Unmarshal(raw, &data); err != nil {
		perr := &ParseError{Path: path, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return nil, perr
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

func parseYAML(path string, raw []byte) (map[string]any, error) {
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}
