package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	apperrors "github.com/lupppig/obackup/internal/errors"
)

// Transport selects how commands reach the machine holding the filestore.
const (
	TransportLocal = "local"
	TransportSSH   = "ssh"
)

// Profile describes one Odoo instance: database coordinates plus the
// filestore location. Treated as an immutable value once handed to the
// engine.
type Profile struct {
	Name           string `mapstructure:"name"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	FilestorePath  string `mapstructure:"filestore_path"`
	ProductVersion string `mapstructure:"odoo_version"`
	Transport      string `mapstructure:"transport"`
	SSHProfile     string `mapstructure:"ssh_profile"`
	Verbose        bool   `mapstructure:"verbose"`
}

// SSHProfile holds credentials for the remote shell used by ssh transports.
type SSHProfile struct {
	Name     string `mapstructure:"name"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	KeyPath  string `mapstructure:"key_path"`
}

type Config struct {
	BackupDir string       `mapstructure:"backup_dir"`
	LogJSON   bool         `mapstructure:"log_json"`
	NoColor   bool         `mapstructure:"no_color"`
	Profiles  []Profile    `mapstructure:"profiles"`
	SSH       []SSHProfile `mapstructure:"ssh"`
}

// Store resolves named connection profiles. The engine takes a Store through
// its constructor so callers can supply their own backing (an encrypted
// credential store, a test fixture) instead of this file-based one.
type Store interface {
	Profile(name string) (Profile, error)
	SSHProfile(name string) (SSHProfile, error)
}

func (c *Config) Profile(name string) (Profile, error) {
	for _, p := range c.Profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, apperrors.New(apperrors.TypeNotFound,
		fmt.Sprintf("connection profile %q not found", name),
		"List configured profiles under 'profiles:' in the config file.")
}

func (c *Config) SSHProfile(name string) (SSHProfile, error) {
	for _, s := range c.SSH {
		if s.Name == name {
			return s, nil
		}
	}
	return SSHProfile{}, apperrors.New(apperrors.TypeNotFound,
		fmt.Sprintf("ssh profile %q not found", name),
		"List configured SSH hosts under 'ssh:' in the config file.")
}

var _ Store = (*Config)(nil)

// Validate checks the fields the engine cannot work without.
func (p Profile) Validate() error {
	if p.Database == "" {
		return apperrors.New(apperrors.TypeConfig, "profile is missing a database name", "Set 'database' on the profile.")
	}
	if p.Host == "" {
		return apperrors.New(apperrors.TypeConfig, "profile is missing a database host", "Set 'host' on the profile.")
	}
	if p.Transport == TransportSSH && p.SSHProfile == "" {
		return apperrors.New(apperrors.TypeConfig, "ssh transport requires an ssh profile", "Set 'ssh_profile' to a configured SSH host.")
	}
	return nil
}

var globalConfig *Config

func Initialize(configPath string) error {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("obackup")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".obackup"))
		}
	}

	v.SetEnvPrefix("OBACKUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("backup_dir", ".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if configPath != "" {
				return fmt.Errorf("failed to read config file: %w", err)
			}
			// A discovered file that fails to parse must not pass
			// silently as an absent one.
			fmt.Fprintf(os.Stderr, "warning: ignoring malformed config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	if err := v.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		_ = v.Unmarshal(&globalConfig)
	})

	return nil
}

func GetConfig() *Config {
	if globalConfig == nil {
		return &Config{BackupDir: "."}
	}
	return globalConfig
}
