package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/agentgraph/internal/metrics"
	"github.com/BaSui01/agentgraph/session"
	"github.com/BaSui01/agentgraph/types"
)

// Orchestrator 查询处理状态机：
// START → 路由 → 分支（researcher / kg_builder / analyst）→ 综合 → END。
//
// analyst 分支并发执行 researcher 与 kg_builder 两条路径，
// 合并顺序固定为 researcher 字段在前，保证下游格式可复现。
// 取消区别于失败上报：被取消的查询返回 Cancelled 结果，绝不伪装成完整答案。
type Orchestrator struct {
	router      *Router
	researcher  *Researcher
	kgBuilder   *KGBuilder
	analyst     *Analyst
	synthesizer *Synthesizer
	sessions    session.Store
	metrics     *metrics.Collector
	logger      *zap.Logger
}

// NewOrchestrator 创建编排器。
func NewOrchestrator(
	router *Router,
	researcher *Researcher,
	kgBuilder *KGBuilder,
	analyst *Analyst,
	synthesizer *Synthesizer,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		router:      router,
		researcher:  researcher,
		kgBuilder:   kgBuilder,
		analyst:     analyst,
		synthesizer: synthesizer,
		logger:      logger.With(zap.String("component", "orchestrator")),
	}
}

// WithSessions 接入会话历史存储。历史只读消费，答案写回是尽力而为的。
func (o *Orchestrator) WithSessions(store session.Store) *Orchestrator {
	o.sessions = store
	return o
}

// WithMetrics 接入指标收集。
func (o *Orchestrator) WithMetrics(collector *metrics.Collector) *Orchestrator {
	o.metrics = collector
	return o
}

// Ask 处理一次查询，返回最终答案、引用与执行轨迹。
// 每次调用构造全新的 AgentState，状态机自身不保存任何跨查询记忆。
func (o *Orchestrator) Ask(ctx context.Context, query, sessionID string) (Result, error) {
	if strings.TrimSpace(query) == "" {
		return Result{}, types.NewError(types.ErrInvalidInput, "query must not be empty")
	}

	start := time.Now()
	state := newAgentState(query, sessionID, o.loadHistory(ctx, sessionID))

	state.Route = o.router.Route(query)
	state.step("router:" + string(state.Route))
	o.logger.Info("query routed",
		zap.String("session_id", sessionID),
		zap.String("route", string(state.Route)))

	var err error
	switch state.Route {
	case RouteKGBuilder:
		err = o.runKGBranch(ctx, state)
	case RouteAnalyst:
		err = o.runAnalystBranch(ctx, state)
	default:
		err = o.runResearcherBranch(ctx, state)
	}
	if err != nil {
		return o.fail(state, start, err)
	}

	o.synthesizer.Synthesize(ctx, state)
	state.step("synthesiser")

	o.appendHistory(ctx, state)
	o.recordQuery(state, "success", start)

	o.logger.Info("workflow complete",
		zap.String("session_id", sessionID),
		zap.Strings("steps", state.StepsTaken))

	return Result{
		Answer:     state.FinalAnswer,
		Sources:    state.Sources,
		StepsTaken: state.StepsTaken,
		Route:      state.Route,
	}, nil
}

// runResearcherBranch 纯文档检索路径。
func (o *Orchestrator) runResearcherBranch(ctx context.Context, state *AgentState) error {
	delta, err := o.researcher.Run(ctx, state.Query)
	if err != nil {
		return err
	}
	o.mergeResearcher(state, delta)
	state.step("researcher")
	return nil
}

// runKGBranch 图谱构建路径：先检索提供抽取语料，再抽取/落图/扩展。
func (o *Orchestrator) runKGBranch(ctx context.Context, state *AgentState) error {
	rDelta, err := o.researcher.Run(ctx, state.Query)
	if err != nil {
		return err
	}
	o.mergeResearcher(state, rDelta)

	kDelta, err := o.kgBuilder.Run(ctx, state.Query, state.RetrievedCandidates)
	if err != nil {
		return err
	}
	o.mergeKG(state, kDelta)
	state.step("kg_builder")
	return nil
}

// runAnalystBranch 并发执行 researcher 与 kg_builder 两条路径，
// 合并后再做一步分析推理。
func (o *Orchestrator) runAnalystBranch(ctx context.Context, state *AgentState) error {
	var (
		rDelta researcherDelta
		kDelta kgDelta
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		delta, err := o.researcher.Run(gctx, state.Query)
		if err != nil {
			return err
		}
		rDelta = delta
		return nil
	})
	g.Go(func() error {
		// kg 路径与检索无数据依赖，直接从查询文本抽取实体
		delta, err := o.kgBuilder.Run(gctx, state.Query, nil)
		if err != nil {
			return err
		}
		kDelta = delta
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// 合并顺序固定：researcher 字段在前
	o.mergeResearcher(state, rDelta)
	state.step("researcher")
	o.mergeKG(state, kDelta)
	state.step("kg_builder")

	analysis, err := o.analyst.Run(ctx, state.Query, state.RetrievedCandidates, state.KGContext, state.RAGAnswer)
	if err != nil {
		return err
	}
	state.Analysis = analysis
	state.step("analyst")
	return nil
}

func (o *Orchestrator) mergeResearcher(state *AgentState, delta researcherDelta) {
	state.RetrievedCandidates = delta.candidates
	state.RAGAnswer = delta.ragAnswer
	state.RetrievalDegraded = delta.degraded
	if o.metrics != nil {
		o.metrics.RecordRetrieval(string(state.Route), len(delta.candidates), delta.degraded)
	}
}

func (o *Orchestrator) mergeKG(state *AgentState, delta kgDelta) {
	state.ExtractedEntities = delta.entities
	state.ExtractedRelationships = delta.relationships
	state.KGContext = delta.kgContext
	if o.metrics != nil {
		o.metrics.RecordGraphExpansion(string(state.Route), delta.graphNodes)
	}
}

// fail 把分支错误转换为对外结果。取消单独上报，绝不返回半成品答案。
func (o *Orchestrator) fail(state *AgentState, start time.Time, err error) (Result, error) {
	if types.IsCancelled(err) || errors.Is(err, context.Canceled) {
		o.recordQuery(state, "cancelled", start)
		o.logger.Info("query cancelled",
			zap.String("session_id", state.SessionID),
			zap.Strings("steps", state.StepsTaken))
		return Result{
			Route:      state.Route,
			StepsTaken: state.StepsTaken,
			Cancelled:  true,
		}, types.NewError(types.ErrCancelled, "query cancelled").WithCause(err)
	}

	o.recordQuery(state, "error", start)
	o.logger.Error("query failed",
		zap.String("session_id", state.SessionID),
		zap.String("route", string(state.Route)),
		zap.Error(err))
	return Result{}, err
}

func (o *Orchestrator) loadHistory(ctx context.Context, sessionID string) []types.Turn {
	if o.sessions == nil || sessionID == "" {
		return nil
	}
	history, err := o.sessions.GetHistory(ctx, sessionID)
	if err != nil {
		o.logger.Warn("failed to load session history", zap.Error(err))
		return nil
	}
	return history
}

// appendHistory 把本轮问答写回会话存储，失败只记日志。
func (o *Orchestrator) appendHistory(ctx context.Context, state *AgentState) {
	if o.sessions == nil || state.SessionID == "" {
		return
	}
	err := o.sessions.Append(ctx, state.SessionID,
		types.Turn{Role: types.RoleUser, Content: state.Query},
		types.Turn{Role: types.RoleAssistant, Content: state.FinalAnswer},
	)
	if err != nil {
		o.logger.Warn("failed to append session history", zap.Error(err))
	}
}

func (o *Orchestrator) recordQuery(state *AgentState, status string, start time.Time) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordQuery(string(state.Route), status, time.Since(start), len(state.StepsTaken))
}
