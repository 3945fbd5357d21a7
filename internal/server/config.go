package server

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/nodesight.db")

	// Monitoring backend the gateway fronts.
	v.SetDefault("backend.url", "http://127.0.0.1:5000")
	v.SetDefault("backend.timeout", "10s")

	// Poll loop driving the dashboard view engine.
	v.SetDefault("poll.interval", "3s")

	// Session handling.
	v.SetDefault("auth.session_ttl", "24h")
	v.SetDefault("auth.cookie_name", "nodesight_session")
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.sweep_interval", "5m")
	v.SetDefault("auth.admin_group", "noc-admin")

	// OIDC login handoff. Empty auth_url disables /auth/start redirects.
	v.SetDefault("oidc.auth_url", "")
	v.SetDefault("oidc.client_id", "")
	v.SetDefault("oidc.redirect_uri", "http://localhost:8080/auth/callback")
	v.SetDefault("oidc.scopes", "openid profile email groups")

	// Turnstile CAPTCHA gate on login. Empty secret disables verification.
	v.SetDefault("captcha.secret", "")
	v.SetDefault("captcha.verify_url", "https://challenges.cloudflare.com/turnstile/v0/siteverify")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("nodesight")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/nodesight")
	}

	// Environment variable support: NS_SERVER_PORT=9090
	v.SetEnvPrefix("NS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
