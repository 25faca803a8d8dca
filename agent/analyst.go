package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgraph/llm"
	"github.com/BaSui01/agentgraph/types"
)

const (
	maxAnalysisDocs     = 5
	maxAnalysisDocChars = 600
)

// Analyst 在检索结果与图谱上下文之上做一步结构化分析推理。
type Analyst struct {
	generator *llm.Generator
	logger    *zap.Logger
}

// NewAnalyst 创建 analyst 阶段。
func NewAnalyst(generator *llm.Generator, logger *zap.Logger) *Analyst {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyst{
		generator: generator,
		logger:    logger.With(zap.String("component", "analyst")),
	}
}

// Run 生成分析文本。生成能力缺席时返回空串，由综合器回退到检索答案。
func (a *Analyst) Run(ctx context.Context, query string, candidates []types.RetrievalCandidate, kgContext, ragAnswer string) (string, error) {
	if !a.generator.Available() {
		return "", nil
	}

	analysis, err := a.generator.Generate(ctx,
		llm.AnalysisPrompt(query, analysisDocsText(candidates), kgContext, ragAnswer))
	if err != nil {
		return "", err
	}

	a.logger.Info("analyst produced analysis", zap.Int("chars", len(analysis)))
	return analysis, nil
}

// analysisDocsText 把前几个候选编号拼装为分析提示词的文档区。
func analysisDocsText(candidates []types.RetrievalCandidate) string {
	if len(candidates) > maxAnalysisDocs {
		candidates = candidates[:maxAnalysisDocs]
	}

	var sb strings.Builder
	for i, cand := range candidates {
		text := cand.Text
		if runes := []rune(text); len(runes) > maxAnalysisDocChars {
			text = string(runes[:maxAnalysisDocChars])
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[Source %d] %s", i+1, text)
	}
	return sb.String()
}
