package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgraph/rag"
)

// Researcher 驱动混合检索并生成基于文档的临时答案。
type Researcher struct {
	engine *rag.QueryEngine
	topK   int
	logger *zap.Logger
}

// NewResearcher 创建 researcher 阶段。topK 非正时由查询引擎使用配置默认值。
func NewResearcher(engine *rag.QueryEngine, topK int, logger *zap.Logger) *Researcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Researcher{
		engine: engine,
		topK:   topK,
		logger: logger.With(zap.String("component", "researcher")),
	}
}

// Run 执行检索与临时答案生成，返回阶段增量。
// 检索降级被吸收并标记在增量里；生成失败向上抛出。
func (r *Researcher) Run(ctx context.Context, query string) (researcherDelta, error) {
	result, err := r.engine.Query(ctx, query, r.topK)
	if err != nil {
		return researcherDelta{}, err
	}

	r.logger.Info("researcher retrieved documents",
		zap.Int("candidates", len(result.Candidates)),
		zap.Bool("degraded", result.Degraded))

	return researcherDelta{
		candidates: result.Candidates,
		ragAnswer:  result.Answer,
		degraded:   result.Degraded,
	}, nil
}
