// Package conf resolves a connection identifier to JMX coordinates.
package conf

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/mabhi256/munin-jmx/internal/jmx"
)

const (
	configName = "munin-jmx"
	envPrefix  = "MUNIN_JMX"

	// ConfigEnvVar names an explicit connection file
	ConfigEnvVar = "MUNIN_JMX_CONFIG"
)

var ErrUnknownConnection = errors.New("unknown connection")

// Reader looks up connections from a YAML file and MUNIN_JMX_* environment
// variables, e.g. MUNIN_JMX_CONNECTIONS_TOMCAT1_PORT=9010.
type Reader struct {
	v *viper.Viper
}

// DefaultConfigPaths returns the directories searched for munin-jmx.yaml
func DefaultConfigPaths() []string {
	paths := []string{"/etc/munin/jmx"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, configName))
	}
	return append(paths, ".")
}

// NewReader loads configFile, or MUNIN_JMX_CONFIG, or the first munin-jmx.yaml
// found in DefaultConfigPaths. Only a missing file in the search path is
// tolerated; an explicit file must exist.
func NewReader(configFile string) (*Reader, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		configFile = os.Getenv(ConfigEnvVar)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if filepath.Ext(configFile) == "" {
			v.SetConfigType("yaml")
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		for _, path := range DefaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading connection config: %w", err)
		}
	}

	return &Reader{v: v}, nil
}

// ConfigFile returns the file that was loaded, empty when none was found
func (r *Reader) ConfigFile() string {
	return r.v.ConfigFileUsed()
}

// Lookup resolves identifier to a target. Configured connections win; an
// identifier of the form host:port is used as is.
func (r *Reader) Lookup(identifier string) (jmx.Config, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return jmx.Config{}, fmt.Errorf("%w: empty identifier", ErrUnknownConnection)
	}

	key := "connections." + strings.ToLower(identifier)
	cfg := jmx.Config{
		Host:       r.v.GetString(key + ".host"),
		JolokiaURL: r.v.GetString(key + ".jolokia"),
	}

	portValue := r.v.GetString(key + ".port")

	if cfg.Host == "" && cfg.JolokiaURL == "" && portValue == "" {
		host, port, err := parseHostPort(identifier)
		if err != nil {
			return jmx.Config{}, fmt.Errorf("%w %q", ErrUnknownConnection, identifier)
		}
		cfg.Host = host
		cfg.Port = port
		return cfg, validate(identifier, cfg)
	}

	if portValue != "" {
		port, err := strconv.Atoi(strings.TrimSpace(portValue))
		if err != nil {
			return jmx.Config{}, fmt.Errorf("connection %q: invalid port format '%s'", identifier, portValue)
		}
		cfg.Port = port
	}

	return cfg, validate(identifier, cfg)
}

func validate(identifier string, cfg jmx.Config) error {
	if cfg.JolokiaURL != "" {
		return nil
	}
	if cfg.Host == "" {
		return fmt.Errorf("connection %q: host is not set", identifier)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("connection %q: port %d out of range", identifier, cfg.Port)
	}
	return nil
}

func parseHostPort(arg string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(arg)
	if err != nil || host == "" {
		return "", -1, fmt.Errorf("invalid host:port format '%s'", arg)
	}

	port, err := strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil {
		return "", -1, fmt.Errorf("invalid port format '%s'", portStr)
	}

	return host, port, nil
}
