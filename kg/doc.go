// Package kg 实现知识图谱子系统：实体抽取、关系推断、
// 图谱存储与有界跳数的上下文扩展。
//
// 实体名在写入与查找前统一归一化（去空白 + 小写），
// 边按 (source, type, target) 去重。
package kg
