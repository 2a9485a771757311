package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"github.com/xxMudCloudxx/Novel-sub000/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TypographyConfig struct {
		FontSize   int              `yaml:"font_size" validate:"min=8,max=72"`
		FlipStyle  common.FlipStyle `yaml:"flip_style" validate:"gte=0,lte=4"`
		TextColor  string           `yaml:"text_color"`
		Background string           `yaml:"background_color"`
	}

	LayoutConfig struct {
		HorizontalPadding int `yaml:"horizontal_padding" validate:"min=0"`
		VerticalPadding   int `yaml:"vertical_padding" validate:"min=0"`
		ChromeTop         int `yaml:"chrome_top" validate:"min=0"`
		ChromeBottom      int `yaml:"chrome_bottom" validate:"min=0"`
		TitleBottomMargin int `yaml:"title_bottom_margin" validate:"min=0"`
	}

	CacheConfig struct {
		MaxResidentChapters int `yaml:"max_resident_chapters" validate:"min=3"`
		MinPreloadRadius    int `yaml:"min_preload_radius" validate:"min=0"`
		MaxPreloadRadius    int `yaml:"max_preload_radius" validate:"min=0,gtefield=MinPreloadRadius"`
	}

	FetchConfig struct {
		Attempts int `yaml:"attempts" validate:"min=1"`
		DelayMs  int `yaml:"delay_ms" validate:"min=0"`
	}

	ReaderConfig struct {
		Typography TypographyConfig `yaml:"typography"`
		Layout     LayoutConfig     `yaml:"layout"`
		Cache      CacheConfig      `yaml:"cache"`
		Fetch      FetchConfig      `yaml:"fetch"`
	}

	Config struct {
		Version int           `yaml:"version" validate:"eq=1"`
		Reader  ReaderConfig  `yaml:"reader"`
		Logging LoggingConfig `yaml:"logging"`
	}
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
