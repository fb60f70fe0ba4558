package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/medspa-demo-receptionist/internal/assistant"
	appconfig "github.com/wolfman30/medspa-demo-receptionist/internal/config"
	"github.com/wolfman30/medspa-demo-receptionist/internal/observability/metrics"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

// AWSLoader returns the SDK config. It is only called when Bedrock is used.
type AWSLoader func(ctx context.Context) (aws.Config, error)

// BuildLLMClient selects the model backend from LLM_PROVIDER. It returns a
// nil client when no backend is configured, plus a close func that is
// always safe to call.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, loadAWS AWSLoader, logger *logging.Logger) (assistant.LLMClient, func(), error) {
	noop := func() {}
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !cfg.AssistantEnabled() {
		logger.Info("assistant disabled; unknown questions get clarification only", "provider", cfg.LLMProvider)
		return nil, noop, nil
	}

	var gemini *assistant.GeminiLLMClient
	if cfg.GeminiAPIKey != "" && cfg.LLMProvider != "bedrock" {
		client, err := assistant.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: %w", err)
		}
		gemini = client
	}
	closeFn := func() {
		if gemini != nil {
			_ = gemini.Close()
		}
	}

	var bedrock *assistant.BedrockLLMClient
	if cfg.BedrockModelID != "" && cfg.LLMProvider != "gemini" {
		if loadAWS == nil {
			closeFn()
			return nil, noop, fmt.Errorf("bootstrap: bedrock requires an aws config loader")
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			closeFn()
			return nil, noop, fmt.Errorf("bootstrap: %w", err)
		}
		client, err := assistant.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		if err != nil {
			closeFn()
			return nil, noop, fmt.Errorf("bootstrap: %w", err)
		}
		bedrock = client
	}

	switch {
	case gemini != nil && bedrock != nil:
		logger.Info("assistant enabled", "primary", "gemini", "fallback", "bedrock", "model", cfg.GeminiModelID)
		return assistant.NewFallbackLLMClient(gemini, bedrock, logger), closeFn, nil
	case gemini != nil:
		logger.Info("assistant enabled", "primary", "gemini", "model", cfg.GeminiModelID)
		return gemini, closeFn, nil
	case bedrock != nil:
		logger.Info("assistant enabled", "primary", "bedrock", "model", cfg.BedrockModelID)
		return bedrock, closeFn, nil
	}
	return nil, noop, nil
}

// BuildAssistant wraps client in the demo assistant service. A nil client
// yields a service that only returns canned replies.
func BuildAssistant(cfg *appconfig.Config, client assistant.LLMClient, m *metrics.DemoMetrics, logger *logging.Logger) *assistant.Service {
	opts := []assistant.Option{
		assistant.WithMetrics(m),
		assistant.WithLogger(logger),
	}
	if cfg != nil {
		opts = append(opts, assistant.WithTimeout(cfg.AssistantTimeout))
		if cfg.ClinicName != "" {
			opts = append(opts, assistant.WithClinicName(cfg.ClinicName))
		}
	}
	return assistant.NewService(client, opts...)
}
