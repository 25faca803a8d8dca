// =============================================================================
// AgentGraph 主入口
// =============================================================================
// 混合检索 + 知识图谱问答管线的命令行入口
//
// 使用方法:
//
//	agentgraph ask "question" --docs ./corpus    # 摄取文档并回答问题
//	agentgraph ask "question" --config cfg.yaml  # 指定配置文件
//	agentgraph stats --config cfg.yaml           # 查看图谱统计
//	agentgraph version                           # 显示版本信息
// =============================================================================
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/agentgraph/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ask":
		runAsk(os.Args[2:])
	case "stats":
		runStats(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 💬 ask 命令
// =============================================================================

func runAsk(args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	docsDir := fs.String("docs", "", "Directory of text documents to ingest before asking")
	sessionID := fs.String("session", "", "Session ID for multi-turn history")
	asJSON := fs.Bool("json", false, "Print the full result as JSON")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: agentgraph ask [options] <question>")
		os.Exit(1)
	}
	question := fs.Arg(0)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting agentgraph",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build pipeline", zap.Error(err))
	}
	defer pipeline.Close()

	// Ctrl-C 取消当前查询
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *docsDir != "" {
		if err := pipeline.IngestDir(ctx, *docsDir); err != nil {
			logger.Fatal("ingestion failed", zap.Error(err))
		}
	}

	result, err := pipeline.Orchestrator.Ask(ctx, question, *sessionID)
	pipeline.SyncGraphGauge(context.Background())
	if err != nil {
		if result.Cancelled {
			logger.Warn("query cancelled")
			os.Exit(130)
		}
		logger.Fatal("query failed", zap.Error(err))
	}

	if *asJSON {
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range result.Sources {
			fmt.Printf("  [%s] %s\n", src.Kind, src.ID)
		}
	}
}

// =============================================================================
// 📊 stats 命令
// =============================================================================

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build pipeline", zap.Error(err))
	}
	defer pipeline.Close()

	stats, err := pipeline.Graph.Stats(context.Background())
	if err != nil {
		logger.Fatal("failed to read graph stats", zap.Error(err))
	}
	pipeline.Metrics.SetGraphEntityCount(stats.EntityCount)

	fmt.Printf("Entities:      %d\n", stats.EntityCount)
	fmt.Printf("Relationships: %d\n", stats.RelationshipCount)
	for entityType, count := range stats.EntityTypeCounts {
		fmt.Printf("  %-14s %d\n", entityType, count)
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("AgentGraph %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`AgentGraph - hybrid retrieval + knowledge graph question answering

Usage:
  agentgraph <command> [options]

Commands:
  ask       Answer a question over the ingested corpus
  stats     Show knowledge graph statistics
  version   Show version information
  help      Show this help message

Options for 'ask':
  --config <path>    Path to configuration file (YAML)
  --docs <dir>       Directory of .txt/.md documents to ingest first
  --session <id>     Session ID for multi-turn history
  --json             Print the full result as JSON

Examples:
  agentgraph ask "What is LangGraph?" --docs ./corpus
  agentgraph ask "How is LangGraph related to LangChain?" --config config.yaml
  agentgraph stats --config config.yaml
  agentgraph version`)
}

// =============================================================================
// 🔧 配置与日志初始化
// =============================================================================

func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}
