package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"curator/internal/logging"
)

// DegradedMediaPrefix is prepended to the prompt when a fallback provider
// cannot accept the media and the request is retried as text only.
const DegradedMediaPrefix = "[Media described in prompt] "

// Service routes generation requests to registered providers and walks the
// configured model tiers when a provider is rate limited. Build one at program
// entry and pass it to the components that need it.
type Service struct {
	providers       []Provider
	byName          map[string]Provider
	defaultProvider string
	heavyModels     []string
	lightModels     []string
	strict          bool
	logger          *slog.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for fallback and substitution events.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithDefaultProvider names the provider used when a call does not pick one.
func WithDefaultProvider(name string) ServiceOption {
	return func(s *Service) {
		s.defaultProvider = strings.ToLower(strings.TrimSpace(name))
	}
}

// WithTiers sets the ordered heavy and light candidate model lists.
func WithTiers(heavy, light []string) ServiceOption {
	return func(s *Service) {
		s.heavyModels = append([]string(nil), heavy...)
		s.lightModels = append([]string(nil), light...)
	}
}

// WithStrictProvider makes calls naming an unregistered provider fail with
// ErrProviderNotRegistered instead of substituting the first registered one.
func WithStrictProvider(strict bool) ServiceOption {
	return func(s *Service) {
		s.strict = strict
	}
}

// NewService builds a Service over providers in registration order. An empty
// registry is allowed; calls then fail with ErrNoProviderAvailable.
func NewService(providers []Provider, opts ...ServiceOption) (*Service, error) {
	s := &Service{byName: make(map[string]Provider, len(providers))}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "llm")

	for _, p := range providers {
		if p == nil {
			return nil, errors.New("llm service: nil provider")
		}
		name := strings.ToLower(strings.TrimSpace(p.Name()))
		if name == "" {
			return nil, errors.New("llm service: provider with empty name")
		}
		if _, exists := s.byName[name]; exists {
			return nil, fmt.Errorf("llm service: duplicate provider %q", name)
		}
		s.byName[name] = p
		s.providers = append(s.providers, p)
	}

	if len(s.providers) > 0 {
		if _, ok := s.byName[s.defaultProvider]; !ok {
			fallback := strings.ToLower(s.providers[0].Name())
			if s.defaultProvider != "" {
				logging.WarnWithContext(s.logger, "default llm provider not registered; using first registered provider",
					"llm_default_provider_fallback",
					logging.String("requested", s.defaultProvider),
					logging.String(logging.FieldProvider, fallback),
					logging.String(logging.FieldErrorHint, "set the provider api key or change llm.default_provider"),
					logging.String(logging.FieldImpact, "requests use "+fallback+" by default"),
				)
			}
			s.defaultProvider = fallback
		}
	}
	return s, nil
}

// Providers returns the registered provider names in registration order.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.Name())
	}
	return names
}

// DefaultProvider returns the resolved default provider name, or "" when the
// registry is empty.
func (s *Service) DefaultProvider() string {
	if len(s.providers) == 0 {
		return ""
	}
	return s.defaultProvider
}

// Models returns the candidate list for tier.
func (s *Service) Models(tier Tier) []string {
	if tier == TierLight {
		return append([]string(nil), s.lightModels...)
	}
	return append([]string(nil), s.heavyModels...)
}

// Strict reports whether provider substitution is disabled.
func (s *Service) Strict() bool { return s.strict }

type callOptions struct {
	provider      string
	tier          Tier
	allowFallback bool
}

// CallOption customizes a single generation call.
type CallOption func(*callOptions)

// WithProvider selects a provider by name for one call.
func WithProvider(name string) CallOption {
	return func(o *callOptions) {
		o.provider = strings.ToLower(strings.TrimSpace(name))
	}
}

// WithTier selects the model tier for one text call.
func WithTier(tier Tier) CallOption {
	return func(o *callOptions) {
		o.tier = tier
	}
}

// WithoutFallback makes the first error final.
func WithoutFallback() CallOption {
	return func(o *callOptions) {
		o.allowFallback = false
	}
}

func resolveCallOptions(opts []CallOption) callOptions {
	o := callOptions{tier: TierHeavy, allowFallback: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (s *Service) resolveProvider(ctx context.Context, name string) (Provider, error) {
	if len(s.providers) == 0 {
		return nil, ErrNoProviderAvailable
	}
	if name == "" {
		name = s.defaultProvider
	}
	if p, ok := s.byName[name]; ok {
		return p, nil
	}
	if s.strict {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}
	substitute := s.providers[0]
	logging.WarnWithContext(logging.WithContext(ctx, s.logger), "llm provider not registered; substituting",
		"llm_provider_substituted",
		logging.String("requested", name),
		logging.String(logging.FieldProvider, substitute.Name()),
		logging.String(logging.FieldErrorHint, "configure the requested provider or enable llm.strict_provider"),
		logging.String(logging.FieldImpact, "request served by "+substitute.Name()),
	)
	return substitute, nil
}

// GenerateText runs prompt against the resolved provider, walking the tier's
// candidate models in order while each one is rate limited. Any other error
// is returned immediately. An empty tier list means a single call with the
// provider's default model.
func (s *Service) GenerateText(ctx context.Context, prompt Prompt, opts ...CallOption) (Response, error) {
	o := resolveCallOptions(opts)
	provider, err := s.resolveProvider(ctx, o.provider)
	if err != nil {
		return Response{}, err
	}
	logger := logging.WithContext(ctx, s.logger).With(
		logging.String(logging.FieldProvider, provider.Name()),
		logging.String(logging.FieldTier, o.tier.String()),
	)

	candidates := s.Models(o.tier)
	if len(candidates) == 0 {
		candidates = []string{""}
	}

	var lastErr error
	attempted := make([]string, 0, len(candidates))
	for idx, model := range candidates {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}
		resp, err := provider.GenerateText(ctx, model, prompt)
		if err == nil {
			return stamp(resp, provider, model), nil
		}
		attempted = append(attempted, modelLabel(provider, model))
		if !o.allowFallback || !provider.IsRateLimited(err) {
			return Response{}, err
		}
		lastErr = err

		attrs := []logging.Attr{
			logging.String(logging.FieldModel, modelLabel(provider, model)),
			logging.Error(err),
		}
		if wait, ok := RetryAfter(err); ok {
			attrs = append(attrs, logging.Duration("retry_after", wait))
		}
		if idx+1 < len(candidates) {
			attrs = append(attrs, logging.String("next_model", modelLabel(provider, candidates[idx+1])))
			logger.Info("model rate limited; trying next candidate", logging.Args(attrs...)...)
			continue
		}
		logger.Warn("model rate limited; no candidates left", logging.Args(attrs...)...)
	}

	return Response{}, &ExhaustedError{
		Provider: provider.Name(),
		Tier:     o.tier,
		Models:   attempted,
		Last:     lastErr,
	}
}

// GenerateWithMedia runs prompt plus the file at mediaPath on the resolved
// provider's default model. When that provider is rate limited the request
// moves exactly one hop, to the first other registered provider. If the
// fallback cannot accept the media it is asked once more with text only and
// the prompt prefixed by DegradedMediaPrefix.
func (s *Service) GenerateWithMedia(ctx context.Context, prompt Prompt, mediaPath string, opts ...CallOption) (Response, error) {
	o := resolveCallOptions(opts)
	primary, err := s.resolveProvider(ctx, o.provider)
	if err != nil {
		return Response{}, err
	}
	logger := logging.WithContext(ctx, s.logger).With(logging.String("media_path", mediaPath))

	resp, err := primary.GenerateWithMedia(ctx, "", prompt, mediaPath)
	if err == nil {
		return stamp(resp, primary, ""), nil
	}
	if !o.allowFallback || !primary.IsRateLimited(err) {
		return Response{}, err
	}

	fallback := s.fallbackFor(primary)
	if fallback == nil {
		logger.Warn("media provider rate limited; no fallback provider registered",
			logging.String(logging.FieldProvider, primary.Name()),
			logging.Error(err),
		)
		return Response{}, fmt.Errorf("%w: %s rate limited with no fallback: %w", ErrNoProviderAvailable, primary.Name(), err)
	}
	logger.Info("media provider rate limited; falling back",
		logging.String(logging.FieldProvider, primary.Name()),
		logging.String("fallback_provider", fallback.Name()),
		logging.Error(err),
	)

	resp, err = fallback.GenerateWithMedia(ctx, "", prompt, mediaPath)
	if err == nil {
		return stamp(resp, fallback, ""), nil
	}
	if !errors.Is(err, ErrUnsupportedMedia) {
		return Response{}, err
	}

	logging.WarnWithContext(logger, "fallback provider cannot read media; retrying as text only",
		"llm_media_degraded",
		logging.String(logging.FieldProvider, fallback.Name()),
		logging.Error(err),
		logging.String(logging.FieldImpact, "the model answers from the prompt text without the media"),
	)
	resp, err = fallback.GenerateText(ctx, "", prompt.WithPrefix(DegradedMediaPrefix))
	if err != nil {
		return Response{}, err
	}
	return stamp(resp, fallback, ""), nil
}

// Ping sends a one-line prompt to the named provider with its default model.
func (s *Service) Ping(ctx context.Context, name string) (Response, error) {
	p, ok := s.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Response{}, fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}
	resp, err := p.GenerateText(ctx, "", Text("Reply with the single word OK."))
	if err != nil {
		return Response{}, err
	}
	return stamp(resp, p, ""), nil
}

func (s *Service) fallbackFor(primary Provider) Provider {
	for _, p := range s.providers {
		if p != primary {
			return p
		}
	}
	return nil
}

func stamp(resp Response, p Provider, model string) Response {
	resp.Provider = p.Name()
	if resp.Model == "" {
		resp.Model = modelLabel(p, model)
	}
	return resp
}

func modelLabel(p Provider, model string) string {
	if model != "" {
		return model
	}
	return p.DefaultModel()
}
