package linky

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/linkysync/linkysync/pkg/common"
	"github.com/linkysync/linkysync/pkg/types"
)

// Config holds the portal endpoints and protocol constants. It is passed to
// every Session and Client so tests can point them at a fake portal.
type Config struct {
	LoginURL      string
	HomeURL       string
	DataURL       string
	PortletID     string
	Realm         string
	SessionCookie string
	UserAgent     string
	Location      *time.Location
	Timeout       time.Duration

	// Units renders readings as strings with the kWh suffix.
	Units bool
}

// DefaultConfig returns the configuration for the Enedis customer portal.
func DefaultConfig() Config {
	return Config{
		LoginURL:      "https://espace-client-connexion.enedis.fr/auth/UI/Login",
		HomeURL:       "https://espace-client-particuliers.enedis.fr/group/espace-particuliers/accueil",
		DataURL:       "https://espace-client-particuliers.enedis.fr/group/espace-particuliers/suivi-de-consommation",
		PortletID:     "lincspartdisplaycdc_WAR_lincspartcdcportlet",
		Realm:         "particuliers",
		SessionCookie: "iPlanetDirectoryPro",
		UserAgent:     "Mozilla/5.0 (Windows NT 6.1; Win64; x64; rv:57.0) Gecko/20100101 Firefox/57.0",
		Location:      parisLocation,
		Timeout:       time.Minute,
	}
}

// Validate ensures the configuration is usable.
func (c Config) Validate() error {
	for name, u := range map[string]string{
		"login": c.LoginURL,
		"home":  c.HomeURL,
		"data":  c.DataURL,
	} {
		if u == "" {
			return fmt.Errorf("%s url is required", name)
		}
		if _, err := url.Parse(u); err != nil {
			return fmt.Errorf("failed to parse %s url (%s): %w", name, u, err)
		}
	}
	if c.PortletID == "" {
		return fmt.Errorf("portlet id is required")
	}
	if c.SessionCookie == "" {
		return fmt.Errorf("session cookie name is required")
	}
	if c.Location == nil {
		return fmt.Errorf("location is required")
	}
	return nil
}

// Portal holds what is needed to open sessions against the portal for one
// account.
type Portal struct {
	cfg   Config
	creds types.Credentials
}

// NewPortal returns a Portal for the given account.
func NewPortal(cfg Config, creds types.Credentials) *Portal {
	return &Portal{cfg: cfg, creds: creds}
}

// Configured sets up flags for the portal and returns the instance.
func Configured() *Portal {
	p := &Portal{cfg: DefaultConfig()}

	username := lflag.RequiredString("linky-username", "Enedis customer portal username")
	password := lflag.RequiredString("linky-password", "Enedis customer portal password")
	loginURL := lflag.String("linky-login-url", p.cfg.LoginURL, "URL of the portal login form")
	homeURL := lflag.String("linky-home-url", p.cfg.HomeURL, "URL of the portal home page loaded after login")
	dataURL := lflag.String("linky-data-url", p.cfg.DataURL, "URL of the consumption data endpoint")
	portletID := lflag.String("linky-portlet-id", p.cfg.PortletID, "Portlet identifier used in data requests")
	sessionCookie := lflag.String("linky-session-cookie", p.cfg.SessionCookie, "Cookie that proves a successful login")
	timezone := lflag.String("linky-timezone", "Europe/Paris", "Timezone the portal dates are expressed in")
	units := lflag.Bool("linky-units", false, "Store readings as strings with their kWh unit")
	timeout := lflag.Duration("linky-timeout", p.cfg.Timeout, "Timeout of a single portal request")

	lflag.Do(func() {
		p.creds = types.Credentials{
			Username: *username,
			Password: *password,
		}
		p.cfg.LoginURL = *loginURL
		p.cfg.HomeURL = *homeURL
		p.cfg.DataURL = *dataURL
		p.cfg.PortletID = *portletID
		p.cfg.SessionCookie = *sessionCookie
		p.cfg.Units = *units
		p.cfg.Timeout = *timeout

		loc, err := time.LoadLocation(*timezone)
		if err != nil {
			panic(fmt.Sprintf("failed to load linky timezone %s: %v", *timezone, err))
		}
		p.cfg.Location = loc

		if err := p.cfg.Validate(); err != nil {
			panic(fmt.Sprintf("linky validation failed: %v", err))
		}
	})

	return p
}

// Config returns the portal configuration.
func (p *Portal) Config() Config {
	return p.cfg
}

// Connect opens a new authenticated session with its own cookie jar.
func (p *Portal) Connect(ctx context.Context) (*Client, error) {
	transport := common.NewTransport(p.cfg.Timeout, p.cfg.UserAgent)
	session, err := NewSession(ctx, p.cfg, transport, p.creds)
	if err != nil {
		return nil, err
	}
	return NewClient(p.cfg, session), nil
}
