package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
	"github.com/nutrisha-ai/nutrisha/pkg/service/worker"
	"github.com/nutrisha-ai/nutrisha/pkg/usecase"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/async"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

const DefaultDispatcherConcurrency = 64

// AppConfig represents the application configuration file
type AppConfig struct {
	StaffRoles            []string `toml:"staff_roles"`
	SupervisorRoles       []string `toml:"supervisor_roles"`
	MemoryHistoryLimit    int      `toml:"memory_history_limit"`
	AIHistoryLimit        int      `toml:"ai_history_limit"`
	DispatcherConcurrency int64    `toml:"dispatcher_concurrency"`
	ConfigRefreshInterval string   `toml:"config_refresh_interval"`
	Prompts               Prompts  `toml:"prompts"`
}

// Prompts holds template defaults seeded into the config store when absent
type Prompts struct {
	System                string `toml:"system"`
	ResponseJSONStructure string `toml:"response_json_structure"`
}

// DefaultAppConfig returns the configuration used when no file is given
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		MemoryHistoryLimit:    usecase.DefaultMemoryHistoryLimit,
		AIHistoryLimit:        usecase.DefaultAIHistoryLimit,
		DispatcherConcurrency: DefaultDispatcherConcurrency,
	}
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	for _, role := range a.StaffRoles {
		if strings.TrimSpace(role) == "" {
			return goerr.Wrap(ErrInvalidConfig, "staff role must not be empty")
		}
	}
	for _, role := range a.SupervisorRoles {
		if strings.TrimSpace(role) == "" {
			return goerr.Wrap(ErrInvalidConfig, "supervisor role must not be empty")
		}
	}
	if a.MemoryHistoryLimit < 0 {
		return goerr.Wrap(ErrInvalidConfig, "memory_history_limit must not be negative",
			goerr.V("memory_history_limit", a.MemoryHistoryLimit))
	}
	if a.AIHistoryLimit < 0 {
		return goerr.Wrap(ErrInvalidConfig, "ai_history_limit must not be negative",
			goerr.V("ai_history_limit", a.AIHistoryLimit))
	}
	if a.DispatcherConcurrency < 0 {
		return goerr.Wrap(ErrInvalidConfig, "dispatcher_concurrency must not be negative",
			goerr.V("dispatcher_concurrency", a.DispatcherConcurrency))
	}
	if a.ConfigRefreshInterval != "" {
		d, err := time.ParseDuration(a.ConfigRefreshInterval)
		if err != nil {
			return goerr.Wrap(errors.Join(ErrInvalidConfig, err), "invalid config_refresh_interval",
				goerr.V("config_refresh_interval", a.ConfigRefreshInterval))
		}
		if d <= 0 {
			return goerr.Wrap(ErrInvalidConfig, "config_refresh_interval must be positive",
				goerr.V("config_refresh_interval", a.ConfigRefreshInterval))
		}
	}
	return nil
}

// StaffPolicy returns the configured staff and supervisor roles, or the defaults
// for whichever is not set
func (a *AppConfig) StaffPolicy() types.StaffPolicy {
	policy := types.NewStaffPolicy(toRoles(a.StaffRoles)...)
	if len(a.SupervisorRoles) > 0 {
		policy = policy.WithSupervisors(toRoles(a.SupervisorRoles)...)
	}
	return policy
}

func toRoles(values []string) []types.Role {
	roles := make([]types.Role, 0, len(values))
	for _, r := range values {
		roles = append(roles, types.Role(r))
	}
	return roles
}

// RefreshInterval returns how often prompt templates are reloaded
func (a *AppConfig) RefreshInterval() time.Duration {
	if a.ConfigRefreshInterval == "" {
		return worker.DefaultConfigRefreshInterval
	}
	d, err := time.ParseDuration(a.ConfigRefreshInterval)
	if err != nil || d <= 0 {
		return worker.DefaultConfigRefreshInterval
	}
	return d
}

// PromptDefaults maps config store keys to their seed values. Empty templates are left out.
func (a *AppConfig) PromptDefaults() map[string]string {
	defaults := map[string]string{}
	if a.Prompts.System != "" {
		defaults[model.ConfigKeySystemPrompt] = a.Prompts.System
	}
	if a.Prompts.ResponseJSONStructure != "" {
		defaults[model.ConfigKeyResponseJSONStructure] = a.Prompts.ResponseJSONStructure
	}
	return defaults
}

// UseCaseOptions converts the file settings into use case options
func (a *AppConfig) UseCaseOptions() []usecase.Option {
	opts := []usecase.Option{
		usecase.WithStaffPolicy(a.StaffPolicy()),
	}
	if a.MemoryHistoryLimit > 0 {
		opts = append(opts, usecase.WithMemoryHistoryLimit(a.MemoryHistoryLimit))
	}
	if a.AIHistoryLimit > 0 {
		opts = append(opts, usecase.WithAIHistoryLimit(a.AIHistoryLimit))
	}
	if a.DispatcherConcurrency > 0 {
		opts = append(opts, usecase.WithDispatcher(async.New(a.DispatcherConcurrency)))
	}
	return opts
}

// LoadAppConfiguration loads the application configuration from a TOML file. Unset
// values keep their defaults.
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	cfg := DefaultAppConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrInvalidConfig, err), "failed to parse TOML config",
			goerr.V(ConfigPathKey, path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return cfg, nil
}

// App holds the flag that points at the application configuration file
type App struct {
	path string
}

func (x *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the application configuration TOML file",
			Sources:     cli.EnvVars("NUTRISHA_CONFIG"),
			Destination: &x.path,
		},
	}
}

// Configure loads the file, or returns defaults when no path is set
func (x *App) Configure() (*AppConfig, error) {
	if x.path == "" {
		return DefaultAppConfig(), nil
	}
	return LoadAppConfiguration(x.path)
}
