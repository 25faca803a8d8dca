package types

// Role 会话消息角色。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn 会话历史中的一轮消息。
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Source 最终答案实际引用的依据（文档片段或实体）。
type Source struct {
	// Kind 为 "chunk" 或 "entity"
	Kind    string  `json:"kind"`
	ID      string  `json:"id"`
	Content string  `json:"content,omitempty"`
	Score   float64 `json:"score,omitempty"`
}
