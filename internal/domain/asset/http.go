package asset

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/formstack/internal/domain/form"
	"github.com/GriffinCanCode/formstack/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/formstack/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/formstack/internal/shared/utils"
)

// HTTPConfig configures the remote asset origin.
type HTTPConfig struct {
	BaseURL   string
	Timeout   time.Duration
	Retries   int
	RPS       float64
	UserAgent string

	// Breaker settings; zero values use the breaker defaults.
	FailureThreshold int
	Cooldown         time.Duration
	OnBreakerChange  func(name string, from, to resilience.State)
}

// HTTPLoader fetches form documents from an asset server.
type HTTPLoader struct {
	client  *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *zap.Logger
}

var contentTypeFormats = map[string]Format{
	"application/json":   FormatJSON,
	"application/toml":   FormatTOML,
	"application/yaml":   FormatYAML,
	"application/x-yaml": FormatYAML,
	"text/yaml":          FormatYAML,
	"text/x-yaml":        FormatYAML,
}

// NewHTTPLoader creates a loader for cfg.BaseURL. Server errors are retried
// by the transport; repeated failures open the breaker.
func NewHTTPLoader(cfg HTTPConfig, logger *zap.Logger) (*HTTPLoader, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid asset base URL %q", cfg.BaseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http_loader")

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "formstack/1.0"
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = leveledLogger{logger.Sugar()}

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(strings.TrimRight(base.String(), "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json, application/yaml, application/toml;q=0.9, */*;q=0.5")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		burst := int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	breaker := resilience.New("asset-origin", resilience.Settings{
		FailureThreshold: cfg.FailureThreshold,
		Cooldown:         cfg.Cooldown,
		IsFailure: func(err error) bool {
			return !errors.Is(err, form.ErrNotFound) && !errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("asset origin breaker changed state",
				zap.String("from", from.String()), zap.String("to", to.String()))
			if cfg.OnBreakerChange != nil {
				cfg.OnBreakerChange(name, from, to)
			}
		},
	})

	return &HTTPLoader{client: client, limiter: limiter, breaker: breaker, logger: logger}, nil
}

// BreakerState reports the origin breaker state
func (l *HTTPLoader) BreakerState() resilience.State {
	return l.breaker.State()
}

// Load fetches GET {base}/{asset}
func (l *HTTPLoader) Load(ctx context.Context, assetName string) (*Document, error) {
	if err := utils.ValidateAssetName(assetName); err != nil {
		return nil, err
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	var doc *Document
	err := l.breaker.Execute(func() error {
		var err error
		doc, err = l.fetch(ctx, assetName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (l *HTTPLoader) fetch(ctx context.Context, assetName string) (*Document, error) {
	headers := make(map[string]string, 2)
	tracing.InjectTraceContext(ctx, headers)

	resp, err := l.client.R().SetContext(ctx).SetHeaders(headers).Get(escapePath(assetName))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset %q: %w", assetName, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("%w: asset %q at %s", form.ErrNotFound, assetName, resp.Request.URL)
	case resp.StatusCode() >= 400:
		return nil, fmt.Errorf("asset %q: origin returned %s", assetName, resp.Status())
	}

	doc, err := Decode(resp.Body(), formatFromContentType(resp.Header().Get("Content-Type")), CompressionNone)
	if err != nil {
		return nil, fmt.Errorf("asset %q: %w", assetName, err)
	}
	doc.normalize(assetName, resp.Request.URL)

	l.logger.Debug("asset fetched",
		zap.String("asset", assetName),
		zap.Int("bytes", len(resp.Body())),
		zap.Duration("elapsed", resp.Time()))
	return doc, nil
}

func escapePath(assetName string) string {
	segments := strings.Split(assetName, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(segments, "/")
}

func formatFromContentType(header string) Format {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return FormatUnknown
	}
	return contentTypeFormats[mediaType]
}

// leveledLogger routes retry client logs into zap.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
