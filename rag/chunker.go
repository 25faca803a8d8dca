package rag

import (
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgraph/config"
	"github.com/BaSui01/agentgraph/llm"
	"github.com/BaSui01/agentgraph/types"
)

// DocumentChunker 将文档切分为有界重叠的块。
//
// 策略：优先按段落累积；超长段落再按句子切分。
// 每块长度（按 rune 计）不超过 ChunkSize，相邻块重叠约 ChunkOverlap。
// Position 在文档内从 0 起单调递增。
type DocumentChunker struct {
	cfg       config.ChunkingConfig
	tokenizer llm.Tokenizer
	logger    *zap.Logger
}

// NewDocumentChunker 创建分块器。tokenizer 仅用于统计日志，可为 nil。
func NewDocumentChunker(cfg config.ChunkingConfig, tokenizer llm.Tokenizer, logger *zap.Logger) *DocumentChunker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentChunker{
		cfg:       cfg,
		tokenizer: tokenizer,
		logger:    logger.With(zap.String("component", "chunker")),
	}
}

// Chunk 切分文档文本，返回位置有序的块序列。
// chunk ID 由调用方（Indexer）补齐。
func (c *DocumentChunker) Chunk(documentID, text string) []types.Chunk {
	pieces := c.split(text)

	chunks := make([]types.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunk := types.Chunk{
			DocumentID: documentID,
			Text:       piece,
			Position:   i,
		}
		chunks = append(chunks, chunk)
	}

	if c.tokenizer != nil && len(chunks) > 0 {
		total := 0
		for _, chunk := range chunks {
			if n, err := c.tokenizer.CountTokens(chunk.Text); err == nil {
				total += n
			}
		}
		c.logger.Debug("document chunked",
			zap.String("document_id", documentID),
			zap.Int("chunks", len(chunks)),
			zap.Int("total_tokens", total))
	}

	return chunks
}

// split 执行实际切分，返回文本片段。
func (c *DocumentChunker) split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if runeLen(text) <= c.cfg.ChunkSize {
		return []string{text}
	}

	// 1. 按段落分组，超长段落按句子展开。
	// 句子单元上限留出重叠空间，块满时尾部重叠才放得下。
	unitMax := c.cfg.ChunkSize - c.cfg.ChunkOverlap
	if unitMax <= 0 {
		unitMax = c.cfg.ChunkSize
	}
	var units []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if runeLen(para) <= unitMax {
			units = append(units, para)
			continue
		}
		units = append(units, splitSentences(para, unitMax)...)
	}

	// 2. 把单元累积成块，携带尾部重叠
	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen == 0 {
			return
		}
		chunks = append(chunks, strings.TrimSpace(current.String()))
		current.Reset()
		currentLen = 0
	}

	for _, unit := range units {
		unitLen := runeLen(unit)
		if currentLen > 0 && currentLen+unitLen+2 > c.cfg.ChunkSize {
			overlap := tailRunes(current.String(), c.cfg.ChunkOverlap)
			flush()
			// 重叠放不下时放弃携带，保证块长不超界
			if overlap != "" && runeLen(overlap)+unitLen+2 <= c.cfg.ChunkSize {
				current.WriteString(overlap)
				currentLen = runeLen(overlap)
			}
		}
		if currentLen > 0 {
			current.WriteString("\n\n")
			currentLen += 2
		}
		current.WriteString(unit)
		currentLen += unitLen
	}
	flush()

	// 3. 过小的尾块并入前块
	if len(chunks) >= 2 {
		last := chunks[len(chunks)-1]
		if runeLen(last) < c.cfg.MinChunkSize {
			chunks[len(chunks)-2] = chunks[len(chunks)-2] + "\n\n" + last
			chunks = chunks[:len(chunks)-1]
		}
	}

	return chunks
}

// splitSentences 把超长段落按句子边界切成不超过 maxLen 的片段。
func splitSentences(para string, maxLen int) []string {
	var sentences []string
	var sb strings.Builder
	for _, r := range para {
		sb.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '。' || r == '！' || r == '？' {
			sentences = append(sentences, strings.TrimSpace(sb.String()))
			sb.Reset()
		}
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		sentences = append(sentences, s)
	}

	var out []string
	var cur strings.Builder
	curLen := 0
	for _, sentence := range sentences {
		sLen := runeLen(sentence)
		// 单句仍超长时硬切
		for sLen > maxLen {
			runes := []rune(sentence)
			out = append(out, string(runes[:maxLen]))
			sentence = string(runes[maxLen:])
			sLen = runeLen(sentence)
		}
		if curLen > 0 && curLen+sLen+1 > maxLen {
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteString(" ")
			curLen++
		}
		cur.WriteString(sentence)
		curLen += sLen
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}

// tailRunes 返回字符串末尾不超过 n 个 rune 的后缀，从词边界开始。
func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return strings.TrimSpace(s)
	}
	tail := string(runes[len(runes)-n:])
	if idx := strings.IndexAny(tail, " \n"); idx >= 0 {
		tail = tail[idx+1:]
	}
	return strings.TrimSpace(tail)
}
