// Package llm 封装生成能力：Provider 抽象、OpenAI 兼容客户端、
// 带限流与有界重试的 Generator，以及各阶段使用的提示词模板。
package llm

import "context"

// Provider 文本补全能力。
// 合成器与 researcher 分支的中间答案都通过它生成。
type Provider interface {
	// Generate 根据提示词生成文本
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderFunc 将函数适配为 Provider。
type ProviderFunc func(ctx context.Context, prompt string) (string, error)

func (f ProviderFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
