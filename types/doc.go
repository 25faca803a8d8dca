// Package types 定义 agentgraph 各组件共享的数据契约：
// 文档块、检索候选、实体与关系、会话轮次以及统一错误类型。
//
// 该包不依赖任何其他内部包，所有组件通过它交换数据。
package types
