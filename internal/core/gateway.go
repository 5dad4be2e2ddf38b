package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/apperr"
	"github.com/mikey/intake-guard/internal/security"
)

// Field names of the classification request
const (
	FieldUserInput = "userInput"
	FieldMission   = "mission"
)

// ClassificationFields are the only fields a client may send to ClassifyIntent
var ClassificationFields = []string{FieldUserInput, FieldMission}

// Error codes
const (
	CodeHTTPSRequired    = "https_required"
	CodeInvalidInput     = "invalid_input"
	CodeInputTooLong     = "input_too_long"
	CodeCodeDetected     = "code_detected"
	CodeMissingParams    = "missing_parameters"
	CodeInvalidAction    = "invalid_action"
	CodeInvalidEmail     = "invalid_email"
	CodeAINotConfigured  = "ai_not_configured"
	CodeAIError          = "ai_error"
	CodeAIEmptyResponse  = "ai_empty_response"
	CodeLimiterUnhealthy = "rate_limit_unavailable"
)

// DefaultLLMTimeout bounds every LLM call when no timeout is configured
const DefaultLLMTimeout = 10 * time.Second

// GatewayConfig holds the gateway settings
type GatewayConfig struct {
	// Production enables the HTTPS requirement
	Production bool
	// LLMTimeout bounds a single LLM call
	LLMTimeout time.Duration
	// FallbackWhenUnconfigured classifies with the fallback instead of failing when no LLM is set
	FallbackWhenUnconfigured bool
}

// Gateway sequences the security layers in front of every LLM operation
type Gateway struct {
	llm      LLMClient
	limiter  RateLimiter
	gate     SpamGate
	fallback *FallbackClassifier
	validate *validator.Validate
	cfg      GatewayConfig
	logger   *zap.Logger
	now      func() time.Time
}

// GatewayOption configures a Gateway
type GatewayOption func(*Gateway)

// WithGatewayClock replaces time.Now
func WithGatewayClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// NewGateway creates a gateway. llm may be nil when no provider is configured.
func NewGateway(llm LLMClient, limiter RateLimiter, gate SpamGate, cfg GatewayConfig, logger *zap.Logger, opts ...GatewayOption) *Gateway {
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = DefaultLLMTimeout
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	g := &Gateway{
		llm:      llm,
		limiter:  limiter,
		gate:     gate,
		fallback: NewFallbackClassifier(),
		validate: v,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// LLMConfigured reports whether a provider is wired
func (g *Gateway) LLMConfigured() bool { return g.llm != nil }

// Admit enforces HTTPS in production, then counts the request against the client's quota.
// The count is never rolled back, even if the request later fails.
func (g *Gateway) Admit(ctx context.Context, client Client) error {
	if g.cfg.Production && !client.Secure {
		return apperr.Policyf(CodeHTTPSRequired, "HTTPS requis")
	}

	decision, err := g.limiter.Check(ctx, client.ID)
	if err != nil {
		g.logger.Error("Rate limiter failed", zap.String("client_id", client.ID), zap.Error(err))
		return apperr.Wrap(err, apperr.CategoryInternal, CodeLimiterUnhealthy, "Service temporairement indisponible")
	}
	if !decision.Allowed {
		g.logger.Info("Rate limit exceeded",
			zap.String("client_id", client.ID),
			zap.Duration("retry_after", decision.RetryAfter))
		return apperr.QuotaExceeded(decision.RetryAfter)
	}
	return nil
}

// ClassifyIntent classifies free text into a mission. Any LLM failure falls back
// to the keyword classifier; only security and validation failures are errors.
func (g *Gateway) ClassifyIntent(ctx context.Context, client Client, fields map[string]any) (IntentResult, error) {
	if err := g.Admit(ctx, client); err != nil {
		return IntentResult{}, err
	}
	if err := g.gate.CheckFields(fields); err != nil {
		return IntentResult{}, err
	}

	input, _ := fields[FieldUserInput].(string)
	if input == "" {
		return IntentResult{}, apperr.Validationf(CodeInvalidInput, "Input invalide")
	}
	if err := verdictError(security.ValidateUserInput(input)); err != nil {
		g.logger.Warn("Classification input rejected", zap.String("client_id", client.ID), zap.Error(err))
		return IntentResult{}, err
	}

	clean := security.SanitizeInput(input)
	if clean == "" {
		return IntentResult{}, apperr.Validationf(CodeInvalidInput, "Input invalide")
	}

	if g.llm == nil {
		if g.cfg.FallbackWhenUnconfigured {
			return g.fallback.Classify(clean), nil
		}
		return IntentResult{}, notConfigured()
	}

	content, err := g.complete(ctx, IntentPrompt(clean))
	if err != nil {
		g.logger.Warn("LLM classification failed, using fallback", zap.Error(err))
		return g.fallback.Classify(clean), nil
	}
	if content == "" {
		g.logger.Warn("LLM returned empty response, using fallback")
		return g.fallback.Classify(clean), nil
	}

	obj, err := ParseLLMObject(content)
	if err != nil {
		g.logger.Warn("Unparseable LLM response, using fallback",
			zap.Error(err),
			zap.Int("response_length", len(content)))
		return g.fallback.Classify(clean), nil
	}

	return PostProcess(obj, clean), nil
}

// ImproveText rewrites one form field with the LLM
func (g *Gateway) ImproveText(ctx context.Context, client Client, req ImproveRequest) (ImproveResult, error) {
	if err := g.Admit(ctx, client); err != nil {
		return ImproveResult{}, err
	}
	if err := g.validateStruct(req); err != nil {
		return ImproveResult{}, err
	}

	for _, v := range []string{req.Text, req.Field, req.Mission} {
		if err := verdictError(security.ValidateUserInput(v)); err != nil {
			return ImproveResult{}, err
		}
	}

	text := security.SanitizeInput(req.Text)
	field := security.SanitizeInput(req.Field)
	mission := security.SanitizeInput(req.Mission)
	if text == "" || field == "" || mission == "" {
		return ImproveResult{}, apperr.Validationf(CodeInvalidInput, "Input invalide")
	}

	prompt, ok := ImprovePrompt(req.Action, text, field, mission)
	if !ok {
		return ImproveResult{}, apperr.Validationf(CodeInvalidAction, "Action invalide")
	}

	if g.llm == nil {
		return ImproveResult{}, notConfigured()
	}
	improved, err := g.generate(ctx, prompt)
	if err != nil {
		return ImproveResult{}, err
	}

	return ImproveResult{
		ImprovedText: improved,
		OriginalText: text,
		Action:       req.Action,
		Field:        field,
		Mission:      mission,
	}, nil
}

// Summarize generates the thank-you message for a completed form
func (g *Gateway) Summarize(ctx context.Context, client Client, req SummaryRequest) (SummaryResult, error) {
	if err := g.Admit(ctx, client); err != nil {
		return SummaryResult{}, err
	}
	if err := g.validateStruct(req); err != nil {
		return SummaryResult{}, err
	}

	if err := g.gate.CheckHoneypot(req.FormData); err != nil {
		return SummaryResult{}, err
	}

	now := g.now()
	var renderedAt *time.Time
	if req.RenderedAt != nil {
		t := time.UnixMilli(*req.RenderedAt)
		renderedAt = &t
	}
	if err := g.gate.CheckFillTime(renderedAt, now); err != nil {
		return SummaryResult{}, err
	}

	keys := make([]string, 0, len(req.FormData))
	for k := range req.FormData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	named := map[string]string{FieldMission: req.Mission, "intent": req.Intent, "userName": req.UserName}
	for _, name := range []string{FieldMission, "intent", "userName"} {
		if err := codeError(name, named[name]); err != nil {
			return SummaryResult{}, err
		}
	}
	for _, k := range keys {
		if s, ok := req.FormData[k].(string); ok {
			if err := codeError(k, s); err != nil {
				g.logger.Warn("Form field rejected", zap.String("field", k), zap.Error(err))
				return SummaryResult{}, err
			}
		}
	}

	if email, ok := req.FormData[FieldEmail].(string); ok && strings.TrimSpace(email) != "" {
		if !security.ValidateEmail(email) {
			return SummaryResult{}, apperr.Validationf(CodeInvalidEmail, "Adresse email invalide")
		}
	}

	formData := g.sanitizeFormData(req.FormData, keys)
	mission := security.SanitizeInput(req.Mission)
	if mission == "" {
		return SummaryResult{}, apperr.Validationf(CodeMissingParams, "Paramètres manquants")
	}
	userName := security.SanitizeInput(req.UserName)
	if userName == "" {
		userName = DefaultUserName
	}

	if g.llm == nil {
		return SummaryResult{}, notConfigured()
	}

	prompt := summaryPrompt(summaryContext{
		mission:  mission,
		intent:   security.SanitizeInput(req.Intent),
		userName: userName,
		year:     now.Year(),
		formData: formData,
	})
	message, err := g.generate(ctx, prompt)
	if err != nil {
		return SummaryResult{}, err
	}

	return SummaryResult{
		Success:   true,
		Message:   message,
		Mission:   mission,
		Year:      now.Year(),
		UserName:  userName,
		Timestamp: now.UTC(),
	}, nil
}

// sanitizeFormData returns a copy holding sanitized strings and scalar values.
// The honeypot field and nested values are dropped.
func (g *Gateway) sanitizeFormData(in map[string]any, keys []string) map[string]any {
	honeypot := ""
	if hp, ok := g.gate.(interface{ HoneypotField() string }); ok {
		honeypot = hp.HoneypotField()
	}

	out := make(map[string]any, len(in))
	for _, k := range keys {
		if k == honeypot {
			continue
		}
		switch v := in[k].(type) {
		case string:
			if clean := security.SanitizeInput(v); clean != "" {
				out[k] = clean
			}
		case float64, bool:
			out[k] = v
		case nil:
		default:
			g.logger.Debug("Dropping non-scalar form field", zap.String("field", k))
		}
	}
	return out
}

func (g *Gateway) complete(ctx context.Context, prompt Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.LLMTimeout)
	defer cancel()

	content, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// generate is complete for operations without a fallback: failures are upstream errors
func (g *Gateway) generate(ctx context.Context, prompt Prompt) (string, error) {
	content, err := g.complete(ctx, prompt)
	if err != nil {
		g.logger.Error("LLM generation failed", zap.Error(err))
		return "", apperr.Wrap(err, apperr.CategoryUpstream, CodeAIError, "Erreur du service IA")
	}
	if content == "" {
		return "", apperr.New(apperr.CategoryUpstream, CodeAIEmptyResponse, "Réponse vide du service IA")
	}
	return content, nil
}

func (g *Gateway) validateStruct(v any) error {
	err := g.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate request: %w", err)
	}
	for _, fe := range verrs {
		if fe.Tag() == "oneof" {
			return apperr.Validationf(CodeInvalidAction, "Action invalide")
		}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return apperr.Validationf(CodeMissingParams, "Paramètres manquants: %s", strings.Join(fields, ", "))
}

func notConfigured() error {
	return apperr.New(apperr.CategoryUnavailable, CodeAINotConfigured, "Service IA non configuré")
}

// verdictError maps a failed validation verdict to a categorized error
func verdictError(v security.ValidationVerdict) error {
	switch v.Kind {
	case security.VerdictOK:
		return nil
	case security.VerdictTooLong:
		return apperr.Validationf(CodeInputTooLong, "%s", v.Reason)
	case security.VerdictCode:
		return apperr.Contentf(CodeCodeDetected, "%s", v.Reason)
	default:
		return apperr.Validationf(CodeInvalidInput, "%s", v.Reason)
	}
}

// codeError rejects a form value that looks like code
func codeError(field, value string) error {
	if d := security.ContainsCode(value); d.Detected {
		return apperr.Contentf(CodeCodeDetected, "Code %s détecté dans le champ %s", d.Type, field)
	}
	return nil
}
