package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sifan077/SnipURL/config"
	"github.com/sifan077/SnipURL/internal/app/apperr"
	"go.uber.org/zap"
)

const defaultMaxURLLength = 2048

// URLValidator performs structural and security validation of submitted URLs
// and returns a normalized form.
type URLValidator struct {
	maxLength    int
	blocked      []string
	probeEnabled bool
	probeStrict  bool
	probeClient  *http.Client
	logger       *zap.Logger
}

// NewURLValidator builds a validator from static configuration.
func NewURLValidator(cfg config.ValidatorConfig, logger *zap.Logger) *URLValidator {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxLength := cfg.MaxURLLength
	if maxLength <= 0 {
		maxLength = defaultMaxURLLength
	}

	blocked := make([]string, 0, len(cfg.BlockedDomains))
	for _, d := range cfg.BlockedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			blocked = append(blocked, d)
		}
	}

	probeTimeout := 3 * time.Second
	if d, err := time.ParseDuration(cfg.ProbeTimeout); err == nil && d > 0 {
		probeTimeout = d
	}

	return &URLValidator{
		maxLength:    maxLength,
		blocked:      blocked,
		probeEnabled: cfg.ProbeEnabled,
		probeStrict:  cfg.ProbeStrict,
		probeClient:  &http.Client{Timeout: probeTimeout},
		logger:       logger,
	}
}

// Validate checks the raw URL and returns its normalized form: lowercased
// scheme and host, bare root path trimmed. Identical-looking URLs therefore
// normalize identically.
func (v *URLValidator) Validate(ctx context.Context, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", apperr.ValidationField("url", "url must not be empty")
	}
	if len(raw) > v.maxLength {
		return "", apperr.ValidationField("url", fmt.Sprintf("url exceeds maximum length of %d", v.maxLength)).
			WithDetail("length", len(raw))
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", apperr.ValidationField("url", "url is not parseable").WithDetail("url", raw)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", apperr.ValidationField("url", "only http and https schemes are supported").
			WithDetail("scheme", parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", apperr.ValidationField("url", "url must include a host")
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
			return "", apperr.ValidationField("url", "private and loopback addresses are not allowed").
				WithDetail("host", host)
		}
	}

	if v.hostBlocked(host) {
		return "", apperr.ValidationField("url", "domain is not allowed").WithDetail("host", host)
	}

	normalized := v.normalize(parsed)

	if v.probeEnabled {
		if err := v.probe(ctx, normalized); err != nil {
			if v.probeStrict {
				return "", apperr.ValidationField("url", "url is not reachable").WithCause(err)
			}
			// Advisory only: a flaky target must not block shortening.
			v.logger.Warn("url reachability probe failed",
				zap.String("url", normalized), zap.Error(err))
		}
	}

	return normalized, nil
}

func (v *URLValidator) hostBlocked(host string) bool {
	for _, blocked := range v.blocked {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}

func (v *URLValidator) normalize(parsed *url.URL) string {
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	if parsed.Path == "/" && parsed.RawQuery == "" && parsed.Fragment == "" {
		parsed.Path = ""
	}
	return parsed.String()
}

func (v *URLValidator) probe(ctx context.Context, target string) error {
	ctx, cancel := context.WithTimeout(ctx, v.probeClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return err
	}

	resp, err := v.probeClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("target responded with status %d", resp.StatusCode)
	}
	return nil
}
