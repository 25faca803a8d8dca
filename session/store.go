// Package session 管理多轮对话历史，按 session_id 隔离。
package session

import (
	"context"
	"sort"
	"sync"

	"github.com/BaSui01/agentgraph/types"
)

// Store 会话历史存储抽象。
type Store interface {
	// GetHistory 返回会话的历史轮次，时间升序；未知会话返回空，不是错误。
	GetHistory(ctx context.Context, sessionID string) ([]types.Turn, error)

	// Append 把若干轮追加到会话尾部。
	Append(ctx context.Context, sessionID string, turns ...types.Turn) error

	// Clear 删除会话的全部历史。
	Clear(ctx context.Context, sessionID string) error

	// Sessions 列出当前存在历史的会话 ID。
	Sessions(ctx context.Context) ([]string, error)
}

// MemoryStore 内存会话存储，单进程部署与测试用。
type MemoryStore struct {
	mu       sync.RWMutex
	history  map[string][]types.Turn
	maxTurns int
}

// NewMemoryStore 创建内存会话存储。
// maxTurns > 0 时每个会话只保留最近 maxTurns 轮。
func NewMemoryStore(maxTurns int) *MemoryStore {
	return &MemoryStore{
		history:  make(map[string][]types.Turn),
		maxTurns: maxTurns,
	}
}

func (s *MemoryStore) GetHistory(ctx context.Context, sessionID string) ([]types.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.history[sessionID]
	out := make([]types.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, turns ...types.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := append(s.history[sessionID], turns...)
	if s.maxTurns > 0 && len(merged) > s.maxTurns {
		merged = merged[len(merged)-s.maxTurns:]
	}
	s.history[sessionID] = merged
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.history, sessionID)
	return nil
}

func (s *MemoryStore) Sessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.history))
	for id := range s.history {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

var _ Store = (*MemoryStore)(nil)
