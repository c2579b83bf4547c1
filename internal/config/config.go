package config

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
	"github.com/KaramelBytes/enrolytics-cli/internal/techniques"
)

// Output formats accepted by output_format and the --format flags.
var OutputFormats = []string{"markdown", "json", "yaml"}

// Global configuration structure.
type Global struct {
	DataDir        string                   `mapstructure:"data_dir" yaml:"data_dir"`
	Folders        map[string]string        `mapstructure:"folders" yaml:"folders,omitempty"`
	DateLayouts    []string                 `mapstructure:"date_layouts" yaml:"date_layouts"`
	ExpectedStates int                      `mapstructure:"expected_states" yaml:"expected_states"`
	LoadTimeout    time.Duration            `mapstructure:"load_timeout" yaml:"load_timeout"`
	LogJSON        bool                     `mapstructure:"log_json" yaml:"log_json"`
	OutputFormat   string                   `mapstructure:"output_format" yaml:"output_format"`
	Thresholds     map[string]analysis.Band `mapstructure:"thresholds" yaml:"thresholds,omitempty"`
}

// Default returns the shipped configuration.
func Default() *Global {
	opts := dataset.DefaultOptions()
	return &Global{
		DataDir:        "./" + opts.Dir,
		DateLayouts:    opts.DateLayouts,
		ExpectedStates: techniques.DefaultCalibration().ExpectedStates,
		LoadTimeout:    opts.LoadTimeout,
		OutputFormat:   "markdown",
	}
}

// DefaultPath is ~/.enrolytics/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home dir")
	}
	return filepath.Join(home, ".enrolytics", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to DefaultPath, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir config dir")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal yaml")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file (cfgFile or DefaultPath) > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("ENROLYTICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("date_layouts", d.DateLayouts)
	v.SetDefault("expected_states", d.ExpectedStates)
	v.SetDefault("load_timeout", d.LoadTimeout)
	v.SetDefault("log_json", false)
	v.SetDefault("output_format", d.OutputFormat)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit file that does not exist surfaces as a PathError.
		if !errors.As(err, &notFound) && !os.IsNotExist(errors.UnwrapAll(err)) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every field that has a closed set of values.
func (c *Global) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.WithHint(errors.Mark(errors.New("data_dir is empty"), analysis.ErrInvalidParameter),
			"set data_dir in ~/.enrolytics/config.yaml or pass --data-dir")
	}
	if c.ExpectedStates <= 0 {
		return errors.Mark(errors.Newf("expected_states must be positive, got %d", c.ExpectedStates), analysis.ErrInvalidParameter)
	}
	if c.LoadTimeout < 0 {
		return errors.Mark(errors.Newf("load_timeout must not be negative, got %s", c.LoadTimeout), analysis.ErrInvalidParameter)
	}
	if err := CheckFormat(c.OutputFormat); err != nil {
		return err
	}
	if _, err := c.RepositoryOptions(); err != nil {
		return err
	}
	if _, err := c.Calibration(); err != nil {
		return err
	}
	return nil
}

// CheckFormat reports whether f is one of OutputFormats.
func CheckFormat(f string) error {
	for _, ok := range OutputFormats {
		if f == ok {
			return nil
		}
	}
	return analysis.InvalidParameter("output format", f, OutputFormats)
}

// RepositoryOptions adapts the configuration to the dataset loader.
func (c *Global) RepositoryOptions() (dataset.Options, error) {
	opts := dataset.DefaultOptions()
	opts.Dir = c.DataDir
	if len(c.DateLayouts) > 0 {
		opts.DateLayouts = append([]string(nil), c.DateLayouts...)
	}
	if c.LoadTimeout > 0 {
		opts.LoadTimeout = c.LoadTimeout
	}
	if len(c.Folders) > 0 {
		opts.Folders = make(map[dataset.Kind]string, len(c.Folders))
		for name, folder := range c.Folders {
			k, err := dataset.ParseKind(name)
			if err != nil {
				return dataset.Options{}, errors.Wrap(err, "folders")
			}
			opts.Folders[k] = folder
		}
	}
	return opts, nil
}

// Calibration returns the default thresholds with the configured overrides
// applied.
func (c *Global) Calibration() (techniques.Calibration, error) {
	cal := techniques.DefaultCalibration()
	if c.ExpectedStates > 0 {
		cal.ExpectedStates = c.ExpectedStates
	}
	names := make([]string, 0, len(c.Thresholds))
	for name := range c.Thresholds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := cal.Override(name, c.Thresholds[name]); err != nil {
			return techniques.Calibration{}, errors.Wrapf(err, "thresholds.%s", name)
		}
	}
	return cal, nil
}

// Keys lists the scalar keys Set accepts. Map keys are folders.<kind> and
// thresholds.<name>.high|medium.
func Keys() []string {
	return []string{"data_dir", "date_layouts", "expected_states", "load_timeout", "log_json", "output_format"}
}

// Set assigns one key from its string form and validates the result. The
// receiver is unchanged when an error is returned.
func (c *Global) Set(key, value string) error {
	next := *c
	next.Folders = cloneMap(c.Folders)
	next.Thresholds = cloneMap(c.Thresholds)

	switch parts := strings.Split(key, "."); {
	case key == "data_dir":
		next.DataDir = value
	case key == "date_layouts":
		next.DateLayouts = nil
		for _, l := range strings.Split(value, ",") {
			if l = strings.TrimSpace(l); l != "" {
				next.DateLayouts = append(next.DateLayouts, l)
			}
		}
	case key == "expected_states":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Mark(errors.Wrapf(err, "expected_states"), analysis.ErrInvalidParameter)
		}
		next.ExpectedStates = n
	case key == "load_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return errors.Mark(errors.Wrapf(err, "load_timeout"), analysis.ErrInvalidParameter)
		}
		next.LoadTimeout = d
	case key == "log_json":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Mark(errors.Wrapf(err, "log_json"), analysis.ErrInvalidParameter)
		}
		next.LogJSON = b
	case key == "output_format":
		next.OutputFormat = strings.ToLower(value)
	case len(parts) == 2 && parts[0] == "folders":
		if _, err := dataset.ParseKind(parts[1]); err != nil {
			return err
		}
		if next.Folders == nil {
			next.Folders = map[string]string{}
		}
		next.Folders[parts[1]] = value
	case len(parts) == 3 && parts[0] == "thresholds":
		if err := next.setThreshold(parts[1], parts[2], value); err != nil {
			return err
		}
	default:
		return analysis.InvalidParameter("config key", key, Keys())
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func (c *Global) setThreshold(name, side, value string) error {
	band, ok := c.Thresholds[name]
	if !ok {
		cal := techniques.DefaultCalibration()
		b, err := cal.Band(name)
		if err != nil {
			return err
		}
		band = b
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "thresholds.%s.%s", name, side), analysis.ErrInvalidParameter)
	}
	switch side {
	case "high":
		band.High = f
	case "medium":
		band.Medium = f
	default:
		return analysis.InvalidParameter("threshold side", side, []string{"high", "medium"})
	}
	if c.Thresholds == nil {
		c.Thresholds = map[string]analysis.Band{}
	}
	c.Thresholds[name] = band
	return nil
}

func cloneMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
