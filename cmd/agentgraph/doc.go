// Package main 是 agentgraph 的命令行入口。
//
// 提供文档摄取、一次性问答与图谱统计三个子命令，
// 配置通过 YAML 文件与 AGENTGRAPH_* 环境变量加载。
package main
