package factory

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/adapters/bedrock"
	"github.com/mikey/intake-guard/internal/adapters/gemini"
	"github.com/mikey/intake-guard/internal/adapters/openai"
	"github.com/mikey/intake-guard/internal/config"
	"github.com/mikey/intake-guard/internal/core"
	"github.com/mikey/intake-guard/internal/utils"
)

// ProviderNone disables the LLM; endpoints then report the service as not configured
const ProviderNone = "none"

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateLLMClient creates a new LLM client based on the configuration.
// It returns a nil client for the "none" provider and for a provider whose
// credential is missing, so generating endpoints report the service as not
// configured instead of the process failing to start.
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	llmConfig, err := f.cfg.GetLLM()
	if err != nil {
		return nil, err
	}

	var client core.LLMClient
	switch llmConfig.Provider {
	case "bedrock":
		client, err = bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateLLMClient()
	case "gemini":
		client, err = gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateLLMClient()
	case "openai":
		client, err = openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateLLMClient()
	case ProviderNone, "":
		f.logger.Warn("No LLM provider configured")
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}

	if errors.Is(err, core.ErrLLMNotConfigured) {
		f.logger.Warn("LLM provider selected without credentials, AI endpoints disabled",
			zap.String("provider", llmConfig.Provider),
			zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}
