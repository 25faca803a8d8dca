package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/agentgraph/types"
)

// Indexer 文档摄取入口：分块 → 批量嵌入 → 写入向量索引与语料库。
// 摄取与查询路径之间不加锁；查询读到摄取中途的状态是可接受的陈旧窗口。
type Indexer struct {
	chunker  *DocumentChunker
	embedder Embedder
	index    VectorIndex
	corpus   *Corpus
	sparse   *BM25Scorer
	logger   *zap.Logger
}

// NewIndexer 创建摄取器。
func NewIndexer(
	chunker *DocumentChunker,
	embedder Embedder,
	index VectorIndex,
	corpus *Corpus,
	sparse *BM25Scorer,
	logger *zap.Logger,
) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		corpus:   corpus,
		sparse:   sparse,
		logger:   logger.With(zap.String("component", "indexer")),
	}
}

// IndexDocument 摄取一篇文档，返回生成的块。
// documentID 为空时自动生成。
func (ix *Indexer) IndexDocument(ctx context.Context, documentID, text string) ([]types.Chunk, error) {
	if documentID == "" {
		documentID = uuid.New().String()
	}

	chunks := ix.chunker.Chunk(documentID, text)
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		chunks[i].ID = fmt.Sprintf("%s_chunk_%d", documentID, chunks[i].Position)
		texts[i] = chunks[i].Text
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed document %s: %w", documentID, err)
	}

	for i := range chunks {
		chunks[i].Embedding = vectors[i]
		if err := ix.index.Add(ctx, chunks[i].ID, vectors[i]); err != nil {
			return nil, fmt.Errorf("index chunk %s: %w", chunks[i].ID, err)
		}
	}

	ix.corpus.Add(chunks...)
	if ix.sparse != nil {
		ix.sparse.Refresh()
	}

	ix.logger.Info("document indexed",
		zap.String("document_id", documentID),
		zap.Int("chunks", len(chunks)))

	return chunks, nil
}

// RemoveDocument 删除文档的全部块（语料库与向量索引）。
func (ix *Indexer) RemoveDocument(ctx context.Context, documentID string) error {
	for _, chunk := range ix.corpus.All() {
		if chunk.DocumentID != documentID {
			continue
		}
		if err := ix.index.Delete(ctx, chunk.ID); err != nil {
			return fmt.Errorf("delete chunk %s: %w", chunk.ID, err)
		}
	}
	removed := ix.corpus.RemoveDocument(documentID)
	if ix.sparse != nil {
		ix.sparse.Refresh()
	}

	ix.logger.Info("document removed",
		zap.String("document_id", documentID),
		zap.Int("chunks", removed))
	return nil
}
