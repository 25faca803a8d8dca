package rag

import (
	"sort"
	"sync"

	"github.com/BaSui01/agentgraph/types"
)

// Corpus 已索引文档块的内存登记表。
// BM25Scorer 与 HybridRetriever 共享同一份 Corpus 做文本回查。
// 查询路径只读；结构变更由摄取方执行，读到摄取中途的状态是可接受的陈旧窗口。
type Corpus struct {
	chunks map[string]types.Chunk
	mu     sync.RWMutex
}

// NewCorpus 创建空语料库。
func NewCorpus() *Corpus {
	return &Corpus{chunks: make(map[string]types.Chunk)}
}

// Add 登记文档块。
func (c *Corpus) Add(chunks ...types.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, chunk := range chunks {
		c.chunks[chunk.ID] = chunk
	}
}

// Get 返回指定 ID 的文档块。
func (c *Corpus) Get(id string) (types.Chunk, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	chunk, ok := c.chunks[id]
	return chunk, ok
}

// RemoveDocument 删除某文档的全部块。
func (c *Corpus) RemoveDocument(documentID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, chunk := range c.chunks {
		if chunk.DocumentID == documentID {
			delete(c.chunks, id)
			removed++
		}
	}
	return removed
}

// Len 返回块数量。
func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chunks)
}

// All 按 chunk ID 字典序返回全部块（确定性遍历顺序）。
func (c *Corpus) All() []types.Chunk {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.Chunk, 0, len(c.chunks))
	for _, chunk := range c.chunks {
		out = append(out, chunk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
