package carrier

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Carrier environments
const (
	ModeStaging = "staging"
	ModeLive    = "live"
)

const (
	stagingBaseURL = "https://track.delhivery.com/"
	liveBaseURL    = "https://express.delhivery.com/"

	// DefaultTimeout bounds one carrier round trip
	DefaultTimeout = 60 * time.Second
)

var (
	ErrInvalidMode    = errors.New("carrier: mode must be staging or live")
	ErrInvalidBaseURL = errors.New("carrier: invalid base url")
)

// Config holds carrier connection settings
type Config struct {
	Mode    string
	Token   string
	BaseURL string
	Timeout time.Duration
}

// Validate checks the config and fills defaults
func (c *Config) Validate() error {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = ModeStaging
	}
	if c.Mode != ModeStaging && c.Mode != ModeLive {
		return ErrInvalidMode
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)
		}
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}

// ResolvedBaseURL returns the override or the base url of the mode,
// always with a trailing slash
func (c *Config) ResolvedBaseURL() string {
	base := c.BaseURL
	if base == "" {
		base = stagingBaseURL
		if c.Mode == ModeLive {
			base = liveBaseURL
		}
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}
