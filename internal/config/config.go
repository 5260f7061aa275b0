package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("monzo2discord version %s, commit %s, built at %s", version, commit, date)
}

// EnvPrefix is the prefix for environment overrides, e.g. MONZO2DISCORD_OAUTH_CLIENT_ID.
const EnvPrefix = "MONZO2DISCORD"

type Config struct {
	Server  ServerConfig     `mapstructure:"server"`
	Logging LoggingConfig    `mapstructure:"logging"`
	OAuth   OAuthConfig      `mapstructure:"oauth"`
	Webhook WebhookConfig    `mapstructure:"webhook"`
	HTTP    HTTPClientConfig `mapstructure:"http"`
	Relay   RelayConfig      `mapstructure:"relay"`
}

type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	Host       string `mapstructure:"host"`
	Name       string `mapstructure:"name"`
	Version    string `mapstructure:"version"`
	MCPEnabled bool   `mapstructure:"mcp_enabled"`
	// APIToken is the bearer token operators present on /mcp and on
	// relay removal.
	APIToken   Secret `mapstructure:"api_token"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// Secret is a string that never renders its value through fmt or zap.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[redacted]"
}

func (s Secret) GoString() string { return s.String() }

// Reveal returns the raw value. Only the token exchange should call it.
func (s Secret) Reveal() string { return string(s) }

type OAuthConfig struct {
	ClientID      string        `mapstructure:"client_id"`
	ClientSecret  Secret        `mapstructure:"client_secret"`
	AuthURL       string        `mapstructure:"auth_url"`
	TokenURL      string        `mapstructure:"token_url"`
	RedirectURL   string        `mapstructure:"redirect_url"`
	APIURL        string        `mapstructure:"api_url"`
	Scopes        []string      `mapstructure:"scopes"`
	PKCE          bool          `mapstructure:"pkce"`
	PendingTTL    time.Duration `mapstructure:"pending_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// WebhookConfig describes the chat service webhooks must belong to.
type WebhookConfig struct {
	TargetURL  string `mapstructure:"target_url"`
	PathPrefix string `mapstructure:"path_prefix"`
}

type HTTPClientConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type RelayConfig struct {
	// PublicURL is the externally reachable base URL of this service,
	// used to build the per-relay ingress URL handed to the provider.
	PublicURL            string `mapstructure:"public_url"`
	RegisterWithProvider bool   `mapstructure:"register_with_provider"`
	Announce             bool   `mapstructure:"announce"`
	StateFile            string `mapstructure:"state_file"`
}

const (
	DefaultPort          = 8080
	DefaultHost          = "0.0.0.0"
	DefaultAuthURL       = "https://auth.monzo.com"
	DefaultTokenURL      = "https://api.monzo.com/oauth2/token"
	DefaultAPIURL        = "https://api.monzo.com"
	DefaultTargetURL     = "https://discord.com"
	DefaultPathPrefix    = "/api/webhooks/"
	DefaultPendingTTL    = 10 * time.Minute
	DefaultSweepInterval = time.Minute
	DefaultHTTPTimeout   = 10 * time.Second
)

// InitFlags registers command line flags on fs (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a config file (default ./config.yaml or /etc/monzo2discord/config.yaml)")
	fs.Int("server.port", DefaultPort, "HTTP listen port")
	fs.String("server.host", DefaultHost, "HTTP listen host")
	fs.String("oauth.client_id", "", "OAuth client id")
	fs.String("oauth.client_secret", "", "OAuth client secret")
	fs.String("oauth.redirect_url", "", "OAuth redirect URL, pointing at /oauth/callback")
	fs.String("oauth.auth_url", DefaultAuthURL, "OAuth authorization endpoint")
	fs.String("oauth.token_url", DefaultTokenURL, "OAuth token endpoint")
	fs.String("logging.level", "info", "Log level")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.name", "monzo2discord")
	v.SetDefault("server.version", version)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("oauth.auth_url", DefaultAuthURL)
	v.SetDefault("oauth.token_url", DefaultTokenURL)
	v.SetDefault("oauth.api_url", DefaultAPIURL)
	v.SetDefault("oauth.pending_ttl", DefaultPendingTTL)
	v.SetDefault("oauth.sweep_interval", DefaultSweepInterval)
	v.SetDefault("webhook.target_url", DefaultTargetURL)
	v.SetDefault("webhook.path_prefix", DefaultPathPrefix)
	v.SetDefault("http.timeout", DefaultHTTPTimeout)
	v.SetDefault("relay.announce", true)
}

// Load reads configuration from flags, environment and an optional config file.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, err
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/monzo2discord")
	}

	if err := v.ReadInConfig(); err != nil {
		// Env and flags alone are enough to run
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces invariants viper can't express.
func (c *Config) Validate() error {
	if c.OAuth.ClientID == "" {
		return fmt.Errorf("oauth.client_id is required, please adjust the config or set %s_OAUTH_CLIENT_ID", EnvPrefix)
	}
	if c.OAuth.ClientSecret == "" {
		return fmt.Errorf("oauth.client_secret is required, please adjust the config or set %s_OAUTH_CLIENT_SECRET", EnvPrefix)
	}
	if c.OAuth.RedirectURL == "" {
		return fmt.Errorf("oauth.redirect_url is required, please adjust the config or set %s_OAUTH_REDIRECT_URL", EnvPrefix)
	}
	for name, raw := range map[string]string{
		"oauth.auth_url":     c.OAuth.AuthURL,
		"oauth.token_url":    c.OAuth.TokenURL,
		"oauth.redirect_url": c.OAuth.RedirectURL,
		"webhook.target_url": c.Webhook.TargetURL,
	} {
		if err := requireAbsoluteURL(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if !strings.HasPrefix(c.Webhook.PathPrefix, "/") {
		return fmt.Errorf("webhook.path_prefix must start with /")
	}
	if c.OAuth.PendingTTL <= 0 {
		return fmt.Errorf("oauth.pending_ttl must be positive")
	}
	if c.OAuth.SweepInterval <= 0 {
		return fmt.Errorf("oauth.sweep_interval must be positive")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive")
	}
	if c.Server.MCPEnabled && c.Server.APIToken == "" {
		return fmt.Errorf("server.api_token is required when server.mcp_enabled is set, please adjust the config or set %s_SERVER_API_TOKEN", EnvPrefix)
	}
	if c.Relay.RegisterWithProvider && c.Relay.PublicURL == "" {
		return fmt.Errorf("relay.public_url is required when relay.register_with_provider is set")
	}
	return nil
}

func requireAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", raw)
	}
	return nil
}
