// Package rag 实现混合检索引擎：
//
//   - Embedder: 文本 → 固定维度稠密向量
//   - VectorIndex: 稠密向量最近邻搜索
//   - BM25Scorer: 词法稀疏排序
//   - Reciprocal Rank Fusion: 稠密/稀疏排名融合
//   - Reranker: 交叉编码式成对相关性重排
//
// HybridRetriever 将以上组件组合为一次 retrieve(query) → 有序候选 操作。
// 在索引状态不变的前提下，检索结果完全确定。
// 任一来源不可用时降级到可用来源；全部不可用时返回空序列而非报错。
package rag
