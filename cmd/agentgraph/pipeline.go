package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgraph/agent"
	"github.com/BaSui01/agentgraph/config"
	"github.com/BaSui01/agentgraph/internal/metrics"
	"github.com/BaSui01/agentgraph/kg"
	"github.com/BaSui01/agentgraph/llm"
	"github.com/BaSui01/agentgraph/rag"
	"github.com/BaSui01/agentgraph/session"
)

// Pipeline 组装完成的问答管线与其可关闭资源。
type Pipeline struct {
	Orchestrator *agent.Orchestrator
	Indexer      *rag.Indexer
	Graph        kg.GraphStore
	Metrics      *metrics.Collector

	logger  *zap.Logger
	closers []func() error
}

// buildPipeline 按配置装配完整管线。
// 图谱存储与会话存储根据配置在持久化与内存实现之间切换。
func buildPipeline(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	p := &Pipeline{logger: logger}
	p.Metrics = metrics.NewCollector("agentgraph", nil, logger)

	// 生成器：未配置接口地址与密钥时仅做检索，不做生成
	var generator *llm.Generator
	if cfg.LLM.APIKey != "" || cfg.LLM.BaseURL != "" {
		provider := llm.NewOpenAIProvider(cfg.LLM, logger)
		generator = llm.NewGenerator(provider, cfg.LLM, logger)
	} else {
		logger.Warn("no LLM configured, running retrieval-only")
		generator = llm.NewGenerator(nil, cfg.LLM, logger)
	}
	generator = generator.WithMetrics(p.Metrics)

	// 检索层
	corpus := rag.NewCorpus()
	embedder := rag.NewHashingEmbedder(0)
	index := rag.NewFlatIndex(logger)
	sparse := rag.NewBM25Scorer(corpus, cfg.Retrieval, logger)
	retriever := rag.NewHybridRetriever(
		embedder, index, sparse, rag.NewLexicalReranker(), corpus, cfg.Retrieval, logger)
	engine := rag.NewQueryEngine(retriever, generator, logger)

	chunker := rag.NewDocumentChunker(cfg.Chunking, llm.NewTiktokenTokenizer(cfg.LLM.Model), logger)
	p.Indexer = rag.NewIndexer(chunker, embedder, index, corpus, sparse, logger)

	// 图谱存储
	if cfg.Graph.StorePath != "" {
		store, err := kg.NewGormGraphStore(cfg.Graph.StorePath, logger)
		if err != nil {
			return nil, fmt.Errorf("open graph store: %w", err)
		}
		p.Graph = store
	} else {
		p.Graph = kg.NewMemoryGraphStore()
	}

	extractor := kg.NewEntityExtractor(generator, logger)
	relBuilder := kg.NewRelationshipBuilder(generator, p.Graph, logger)
	contexts := kg.NewContextBuilder(p.Graph, cfg.Graph, logger)

	// 会话存储
	var sessions session.Store
	if cfg.Redis.Enabled {
		redisStore, err := session.NewRedisStore(cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("connect session store: %w", err)
		}
		sessions = redisStore
		p.closers = append(p.closers, redisStore.Close)
	} else {
		sessions = session.NewMemoryStore(cfg.Redis.MaxTurns)
	}

	p.Orchestrator = agent.NewOrchestrator(
		agent.NewRouter(),
		agent.NewResearcher(engine, cfg.Retrieval.TopK, logger),
		agent.NewKGBuilder(extractor, relBuilder, contexts, cfg.Graph, logger),
		agent.NewAnalyst(generator, logger),
		agent.NewSynthesizer(generator, logger),
		logger,
	).WithSessions(sessions).WithMetrics(p.Metrics)

	return p, nil
}

// SyncGraphGauge 把当前图谱实体总数同步到指标。
func (p *Pipeline) SyncGraphGauge(ctx context.Context) {
	stats, err := p.Graph.Stats(ctx)
	if err != nil {
		p.logger.Warn("failed to read graph stats", zap.Error(err))
		return
	}
	p.Metrics.SetGraphEntityCount(stats.EntityCount)
}

// IngestDir 摄取目录下的全部 .txt / .md 文档，文件名作为文档 ID。
func (p *Pipeline) IngestDir(ctx context.Context, dir string) error {
	var count int
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := p.Indexer.IndexDocument(ctx, d.Name(), string(data)); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}

	p.logger.Info("corpus ingested", zap.String("dir", dir), zap.Int("documents", count))
	return nil
}

// Close 释放管线持有的外部连接。
func (p *Pipeline) Close() {
	for _, closer := range p.closers {
		if err := closer(); err != nil {
			p.logger.Warn("failed to close resource", zap.Error(err))
		}
	}
}
