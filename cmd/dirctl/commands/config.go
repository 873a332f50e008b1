package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	ldapclient "github.com/isometry/terraform-provider-directory/internal/ldap"
)

// connectionKeys are the settings decoded into ldapclient.ConnectionConfig.
// They match its mapstructure tags.
var connectionKeys = []string{
	"url", "base_dn", "people_rdn", "groups_rdn", "timeout",
	"auth_method", "username", "password",
	"kerberos_realm", "kerberos_keytab", "kerberos_config", "kerberos_ccache", "kerberos_spn",
	"use_tls", "skip_tls_verify", "tls_ca_cert_file", "tls_ca_cert", "tls_client_cert_file", "tls_client_key_file",
	"max_retries", "initial_backoff", "max_backoff", "backoff_factor",
}

func flagKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

// loadConfigFile reads the file named by --config, or $HOME/.dirctl.yaml
// when it exists. Environment variables use the DIRCTL_ prefix.
func loadConfigFile(v *viper.Viper) error {
	v.SetEnvPrefix("DIRCTL")
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".dirctl")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// connectionConfig decodes the settings that were explicitly provided over
// the connection defaults.
func connectionConfig(v *viper.Viper) (*ldapclient.ConnectionConfig, error) {
	settings := make(map[string]any, len(connectionKeys))
	for _, key := range connectionKeys {
		if v.IsSet(key) {
			settings[key] = v.Get(key)
		}
	}

	config := ldapclient.DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           config,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("invalid connection settings: %w", err)
	}

	if config.URL == "" || config.BaseDN == "" {
		return nil, errors.New("url and base_dn must be set by flag, DIRCTL_URL/DIRCTL_BASE_DN or config file")
	}
	config.AuthMethodName = strings.ToLower(config.AuthMethodName)

	return config, nil
}
