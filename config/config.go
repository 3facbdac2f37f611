// Package config 读取客户端的配置文件。
//
// 支持 YAML （.yaml/.yml）、 TOML （.toml）和 JSONC （.json/.jsonc ，允许注释和末尾逗号）三种格式，
// 格式由文件的扩展名决定。配置文件中未给出的字段使用 Default 中的值。
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmstar/go-kuggleapi"
	"github.com/cmstar/go-kuggleapi/credstore"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath 是指定配置文件路径的环境变量。
const EnvConfigPath = "KUGGLE_CONFIG"

// 凭据存储的类型。
const (
	StoreMemory = "memory" // 凭据仅保存在内存中，进程退出后即丢失。
	StoreFile   = "file"   // 凭据保存在加密的文件中，见 credstore.FileStore 。这是默认值。
)

const (
	defaultTimeout         = "30s"
	defaultCredentialsPath = "~/.config/kuggle/credentials.age"
	defaultPassphraseEnv   = "KUGGLE_PASSPHRASE"
)

// Format 是配置文件的格式。
type Format int

const (
	FormatYAML Format = iota + 1
	FormatTOML
	FormatJSONC
)

// Config 是客户端的配置。
type Config struct {
	// BaseURL 是 API 的地址。
	BaseURL string `yaml:"base_url" toml:"base_url" json:"base_url"`

	// Locale 是 Accept-Language 头的值，为空时从环境变量读取，见 kuggleapi.EnvLocale 。
	Locale string `yaml:"locale" toml:"locale" json:"locale"`

	// Timeout 是单个请求的超时时间，格式同 time.ParseDuration ，如 30s 。
	Timeout string `yaml:"timeout" toml:"timeout" json:"timeout"`

	// Headers 是每个请求都会附加的 HTTP 头。
	Headers map[string]string `yaml:"headers" toml:"headers" json:"headers"`

	Credentials Credentials `yaml:"credentials" toml:"credentials" json:"credentials"`
	Signing     Signing     `yaml:"signing" toml:"signing" json:"signing"`
}

// Credentials 是凭据存储的配置。
type Credentials struct {
	// Store 是存储的类型， memory 或 file ，默认为 file 。
	Store string `yaml:"store" toml:"store" json:"store"`

	// Path 是 file 类型的凭据文件路径，可以“~”开头表示用户目录。
	Path string `yaml:"path" toml:"path" json:"path"`

	// PassphraseEnv 是存放凭据文件口令的环境变量名称。口令本身不应写在配置文件里。
	PassphraseEnv string `yaml:"passphrase_env" toml:"passphrase_env" json:"passphrase_env"`

	// Accessibility 是写入凭据时使用的策略名称，见 credstore.ParseAccessibility 。
	Accessibility string `yaml:"accessibility" toml:"accessibility" json:"accessibility"`
}

// Signing 是请求签名的配置。 Key 为空表示不签名。
type Signing struct {
	Key    string `yaml:"key" toml:"key" json:"key"`
	Secret string `yaml:"secret" toml:"secret" json:"secret"`
}

// Default 返回默认的配置。凭据默认保存在 ~/.config/kuggle/credentials.age ，
// 口令从环境变量 KUGGLE_PASSPHRASE 读取。
func Default() Config {
	return Config{
		BaseURL: kuggleapi.DefaultBaseURL,
		Timeout: defaultTimeout,
		Credentials: Credentials{
			Store:         StoreFile,
			Path:          defaultCredentialsPath,
			PassphraseEnv: defaultPassphraseEnv,
		},
	}
}

// Load 读取配置文件。 path 为空时使用环境变量 KUGGLE_CONFIG 的值；两者都为空时返回 Default() 。
// 给定的文件不存在时返回错误。读取后的配置会经过 Validate 校验。
func Load(path string) (Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if path == "" {
		return Default(), nil
	}

	format, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data, format)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// FormatOf 根据文件扩展名判断配置文件的格式。
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json", ".jsonc":
		return FormatJSONC, nil
	}
	return 0, fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
}

// Parse 按给定的格式解析配置，未给出的字段使用 Default 中的值。此方法不做校验。
func Parse(data []byte, format Format) (Config, error) {
	cfg := Default()

	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &cfg)
	case FormatTOML:
		err = toml.Unmarshal(data, &cfg)
	case FormatJSONC:
		err = json.Unmarshal(jsonc.ToJSON(data), &cfg)
	default:
		return Config{}, fmt.Errorf("unknown config format %d", format)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate 校验配置的值。
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.BaseURL) == "" {
		errs = append(errs, errors.New("base_url must not be empty"))
	} else if !strings.HasSuffix(c.BaseURL, "/") {
		errs = append(errs, fmt.Errorf("base_url %q must end with '/'", c.BaseURL))
	}

	if _, err := c.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}

	switch c.Credentials.Store {
	case StoreMemory:
	case StoreFile:
		if strings.TrimSpace(c.Credentials.Path) == "" {
			errs = append(errs, errors.New("credentials.path must be provided for the file store"))
		}
		if strings.TrimSpace(c.Credentials.PassphraseEnv) == "" {
			errs = append(errs, errors.New("credentials.passphrase_env must be provided for the file store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown credentials.store %q", c.Credentials.Store))
	}

	if _, err := credstore.ParseAccessibility(c.Credentials.Accessibility); err != nil {
		errs = append(errs, fmt.Errorf("credentials.accessibility: %w", err))
	}

	if (c.Signing.Key == "") != (c.Signing.Secret == "") {
		errs = append(errs, errors.New("signing.key and signing.secret must be provided together"))
	}

	return errors.Join(errs...)
}

// TimeoutDuration 返回解析后的 Timeout 。 Timeout 为空时返回 0 ，表示不限制。
func (c Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout must not be negative, got %v", d)
	}
	return d, nil
}

// CredentialsPath 返回展开了“~”的凭据文件路径。
func (c Config) CredentialsPath() (string, error) {
	return expandPath(c.Credentials.Path)
}

// Passphrase 从 Credentials.PassphraseEnv 指定的环境变量读取凭据文件的口令。
func (c Config) Passphrase() (string, bool) {
	if c.Credentials.PassphraseEnv == "" {
		return "", false
	}
	v := os.Getenv(c.Credentials.PassphraseEnv)
	return v, v != ""
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
