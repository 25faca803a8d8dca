package llm

import (
	"fmt"
	"strings"

	"github.com/BaSui01/agentgraph/types"
)

// 各阶段使用的提示词模板。

const answerPrompt = `You are a knowledgeable research assistant. Answer the question based *only* on the provided context. If the context does not contain enough information, say so clearly.

Question: %s

Context:
%s

Answer:`

const analysisPrompt = `You are an expert research analyst. Based on the following information, provide a comprehensive analysis.

User Query: %s

Retrieved Documents:
%s

Knowledge Graph Context:
%s

Initial RAG Answer:
%s

Please provide:
1. A thorough analysis addressing the query
2. Key insights and patterns identified
3. Supporting evidence from the sources
4. Any limitations or caveats

Analysis:`

const synthesisPrompt = `Based on the research and analysis below, provide a clear and comprehensive answer to the user's question.

Question: %s

Research Findings: %s

Analysis: %s

Knowledge Graph Insights: %s

Provide a well-structured, accurate answer with appropriate citations where relevant.

Answer:`

const extractEntitiesPrompt = `Extract named entities from the following text. For each entity provide:
- name: the entity name as it appears in the text
- type: one of %s
- description: a brief description (1 sentence max)

Return ONLY a JSON array of objects. No explanation.

Text:
%s

JSON:`

const extractRelationshipsPrompt = `Given the following entities and source text, identify meaningful relationships between the entities.

Entities:
%s

Text:
%s

For each relationship provide:
- source: entity name
- target: entity name
- relationship: relationship type in UPPER_SNAKE_CASE (e.g. WORKS_AT, PART_OF, CREATED_BY)
- description: one-sentence description

Return ONLY a JSON array. No explanation.

JSON:`

// AnswerPrompt 构造只基于给定上下文回答的提示词。
func AnswerPrompt(question, context string) string {
	return fmt.Sprintf(answerPrompt, question, context)
}

// AnalysisPrompt 构造分析阶段提示词。
func AnalysisPrompt(query, docs, kgContext, ragAnswer string) string {
	if docs == "" {
		docs = "No documents retrieved."
	}
	if kgContext == "" {
		kgContext = "No knowledge graph context available."
	}
	if ragAnswer == "" {
		ragAnswer = "No initial answer."
	}
	return fmt.Sprintf(analysisPrompt, query, docs, kgContext, ragAnswer)
}

// SynthesisPrompt 构造最终合成提示词。
func SynthesisPrompt(query, ragAnswer, analysis, kgContext string) string {
	if kgContext == "" {
		kgContext = "None"
	}
	return fmt.Sprintf(synthesisPrompt, query, ragAnswer, analysis, kgContext)
}

// ExtractEntitiesPrompt 构造实体抽取提示词。
func ExtractEntitiesPrompt(text string) string {
	names := make([]string, len(types.EntityTypes))
	for i, t := range types.EntityTypes {
		names[i] = string(t)
	}
	return fmt.Sprintf(extractEntitiesPrompt, strings.Join(names, ", "), text)
}

// ExtractRelationshipsPrompt 构造关系抽取提示词。
func ExtractRelationshipsPrompt(entitiesJSON, text string) string {
	return fmt.Sprintf(extractRelationshipsPrompt, entitiesJSON, text)
}
