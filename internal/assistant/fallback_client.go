package assistant

import (
	"context"

	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

// FallbackLLMClient retries a failed primary completion on a secondary
// provider.
type FallbackLLMClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *logging.Logger
}

// NewFallbackLLMClient creates the wrapper. A nil fallback makes it a
// pass-through.
func NewFallbackLLMClient(primary, fallback LLMClient, logger *logging.Logger) *FallbackLLMClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackLLMClient{primary: primary, fallback: fallback, logger: logger}
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	c.logger.Warn("assistant: primary llm failed", "error", err, "fallback_available", c.fallback != nil)
	if c.fallback == nil || ctx.Err() != nil {
		return LLMResponse{}, err
	}

	resp, fbErr := c.fallback.Complete(ctx, req)
	if fbErr != nil {
		c.logger.Error("assistant: fallback llm failed", "primary_error", err, "fallback_error", fbErr)
		return LLMResponse{}, fbErr
	}
	c.logger.Info("assistant: fallback llm succeeded")
	return resp, nil
}
