package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/agentgraph/config"
	"github.com/BaSui01/agentgraph/internal/metrics"
	"github.com/BaSui01/agentgraph/types"
)

// Generator 在 Provider 之上提供超时、限流与有界重试。
// 生成失败最多重试 MaxRetries 次后向调用方抛出 GENERATION_FAILED；
// 取消单独上报为 CANCELLED，调用方超时上报为 TIMEOUT，都不会被吞成空答案。
type Generator struct {
	provider Provider
	cfg      config.LLMConfig
	limiter  *rate.Limiter
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewGenerator 创建 Generator。
func NewGenerator(provider Provider, cfg config.LLMConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 10
	}

	return &Generator{
		provider: provider,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		logger:   logger.With(zap.String("component", "generator")),
	}
}

// WithMetrics 接入指标收集，逐次调用记录模型、状态与耗时。
func (g *Generator) WithMetrics(collector *metrics.Collector) *Generator {
	g.metrics = collector
	return g
}

// Available 返回是否配置了底层 Provider。
func (g *Generator) Available() bool {
	return g != nil && g.provider != nil
}

// Generate 生成文本。失败按配置重试，超出后返回结构化错误。
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if !g.Available() {
		return "", types.NewError(types.ErrGenerationFailed, "no generation provider configured")
	}

	attempts := g.cfg.MaxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", g.abortErr(ctx, err)
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if g.cfg.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		}

		start := time.Now()
		text, err := g.provider.Generate(callCtx, prompt)
		if cancel != nil {
			cancel()
		}
		elapsed := time.Since(start)

		if err == nil {
			g.record("success", elapsed)
			return text, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			abort := g.abortErr(ctx, err)
			status := "cancelled"
			if types.CodeOf(abort) == types.ErrTimeout {
				status = "timeout"
			}
			g.record(status, elapsed)
			return "", abort
		}

		g.record("error", elapsed)
		g.logger.Warn("generation attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	}

	return "", types.NewError(types.ErrGenerationFailed, "generation failed after retries").
		WithCause(lastErr).
		WithRetryable(true)
}

// abortErr 区分调用方取消与调用方超时。
// 父上下文到期是超时结果，不得伪装成取消。
func (g *Generator) abortErr(ctx context.Context, cause error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return types.NewError(types.ErrTimeout, "generation deadline exceeded").WithCause(cause)
	}
	return types.NewError(types.ErrCancelled, "generation cancelled").WithCause(cause)
}

func (g *Generator) record(status string, elapsed time.Duration) {
	if g.metrics == nil {
		return
	}
	g.metrics.RecordLLMRequest(g.cfg.Model, status, elapsed)
}
