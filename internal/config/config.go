// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/herald/internal/logger"
	"github.com/woozymasta/herald/internal/vars"
)

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Webhook   Webhook       `group:"Webhook Options" namespace:"webhook" env-namespace:"HERALD_WEBHOOK"`
	A2S       A2S           `group:"A2S Options" namespace:"a2s" env-namespace:"HERALD_A2S"`
	IP        IP            `group:"Public IP Options" namespace:"ip" env-namespace:"HERALD_IP"`
	Storage   Storage       `group:"Storage Options" namespace:"db" env-namespace:"HERALD_DB"`
	GeoIP     GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"HERALD_GEOIP"`
	Server    Server        `group:"Local API Options" namespace:"api" env-namespace:"HERALD_API"`
	RateLimit RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"HERALD_RATE_LIMIT"`
	Logger    logger.Config `group:"Logger Options" namespace:"log" env-namespace:"HERALD_LOG"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// Webhook holds the Discord status message configuration.
type Webhook struct {
	// betteralign:ignore

	URI           string        `short:"w" long:"uri" env:"URI" description:"Discord webhook URI (https://discord.com/api/webhooks/<id>/<token>)"`
	MessageID     string        `long:"message-id" env:"MESSAGE_ID" description:"Existing status message id, overrides the stored one"`
	ServerName    string        `short:"n" long:"server-name" env:"SERVER_NAME" description:"Embed title, defaults to the game server hostname"`
	IPAddress     string        `long:"ip-address" env:"IP_ADDRESS" description:"Address shown in the embed, defaults to the resolved public IP"`
	Interval      time.Duration `short:"i" long:"interval" env:"INTERVAL" description:"Status message update interval" default:"300s"`
	Timeout       time.Duration `long:"timeout" env:"TIMEOUT" description:"Webhook request timeout" default:"10s"`
	OfflineOnStop bool          `long:"offline-on-stop" env:"OFFLINE_ON_STOP" description:"Mark the server offline in the message on shutdown"`
}

// A2S holds Source Query protocol configuration of the observed game server.
type A2S struct {
	// betteralign:ignore

	Host         string        `short:"H" long:"host" env:"HOST" description:"Game server query host, empty disables A2S polling" default:"127.0.0.1"`
	Port         int           `short:"p" long:"port" env:"PORT" description:"Game server query port" default:"27015"`
	PollInterval time.Duration `long:"poll-interval" env:"POLL_INTERVAL" description:"Interval between A2S_INFO polls" default:"15s"`
	Timeout      time.Duration `long:"timeout" env:"TIMEOUT" description:"Query timeout" default:"3s"`
	BufferSize   uint16        `long:"buffer-size" env:"BUFFER_SIZE" description:"Response body buffer size" default:"1400"`
}

// IP holds public IP lookup configuration.
type IP struct {
	// betteralign:ignore

	ResolverURL string        `long:"resolver-url" env:"RESOLVER_URL" description:"Public IP lookup service, empty disables lookup" default:"http://checkip.dyndns.org"`
	Port        int           `long:"port" env:"PORT" description:"Port appended to the resolved address" default:"27015"`
	Timeout     time.Duration `long:"timeout" env:"TIMEOUT" description:"Lookup timeout" default:"5s"`
}

// Storage holds database configuration.
type Storage struct {
	// betteralign:ignore

	Path         string `short:"d" long:"path" env:"PATH" description:"Path to SQLite database" default:"herald.db"`
	ResetMessage bool   `long:"reset-message" description:"Forget the stored message id of the webhook and exit"`
	Show         bool   `long:"show" description:"Print stored status messages and exit"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file, empty disables the Country field"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
}

// Server holds the local event API configuration.
type Server struct {
	// betteralign:ignore

	Address     string `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Local API listen address, empty disables the API"`
	AuthToken   string `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Bearer token for the local API"`
	MaxBodySize int64  `long:"max-body-size" env:"MAX_BODY_SIZE" description:"Max body size for incoming requests" default:"1024"`
	TrustProxy  bool   `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
}

// RateLimit holds limits of the local API and of event driven message updates.
type RateLimit struct {
	// betteralign:ignore

	HardLimitCount int           `long:"hard-count" env:"HARD_COUNT" description:"Local API per IP limit: requests count" default:"30"`
	HardLimitWin   time.Duration `long:"hard-window" env:"HARD_WINDOW" description:"Local API per IP limit: window duration" default:"1m"`
	EventBurst     int           `long:"event-burst" env:"EVENT_BURST" description:"Host events allowed to update the message at once" default:"3"`
	EventEvery     time.Duration `long:"event-every" env:"EVENT_EVERY" description:"Refill period of one event update" default:"10s"`
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	if err := Validate(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	return &cfg
}

// Validate checks the options that have no usable default.
func Validate(cfg *Config) error {
	var errs []error

	switch {
	case cfg.Webhook.URI == "":
		errs = append(errs, errors.New("required flag `-w, --webhook-uri' or environment variable `HERALD_WEBHOOK_URI` was not specified"))
	default:
		u, err := url.Parse(cfg.Webhook.URI)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid webhook uri %q", Redact(cfg.Webhook.URI)))
		}
	}

	if cfg.Webhook.Interval < time.Second {
		errs = append(errs, fmt.Errorf("webhook interval must be at least 1s, got %s", cfg.Webhook.Interval))
	}

	if cfg.A2S.Host != "" && (cfg.A2S.Port <= 0 || cfg.A2S.Port > 65535) {
		errs = append(errs, fmt.Errorf("invalid a2s port %d", cfg.A2S.Port))
	}
	if cfg.A2S.Host != "" && cfg.A2S.PollInterval <= 0 {
		errs = append(errs, errors.New("a2s poll interval must be positive"))
	}

	if cfg.IP.Port < 0 || cfg.IP.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid ip port %d", cfg.IP.Port))
	}

	if cfg.Server.Address != "" && cfg.Server.AuthToken == "" {
		errs = append(errs, errors.New("local API requires `-t, --api-auth-token' or environment variable `HERALD_API_AUTH_TOKEN`"))
	}

	if cfg.RateLimit.EventBurst < 1 {
		errs = append(errs, errors.New("event burst must be at least 1"))
	}

	return errors.Join(errs...)
}

// Redact hides the webhook token part of an URI for messages and logs.
func Redact(uri string) string {
	idx := strings.LastIndex(uri, "/")
	if idx < 0 || idx == len(uri)-1 {
		return uri
	}

	return uri[:idx+1] + "***"
}
