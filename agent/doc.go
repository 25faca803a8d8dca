// Package agent 实现查询处理状态机：路由 → 分支（检索 / 图谱构建 / 分析）→ 综合。
//
// AgentState 在一次查询内由 Orchestrator 独占持有，各阶段只返回增量，
// 由 Orchestrator 按固定顺序合并，steps_taken 记录完整执行轨迹。
package agent
