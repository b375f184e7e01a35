package llm

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest contains the parameters for an LLM completion request.
// Messages holds the assembled history followed by the new user message.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	// NodeID scopes the request for providers with node-scoped endpoints.
	NodeID string
}

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// NoReply is returned as the content when a provider answers without text.
const NoReply = "(no response)"

func replyOrPlaceholder(s string) string {
	if s == "" {
		return NoReply
	}
	return s
}

// splitLast separates the trailing user message from the history before it.
func splitLast(msgs []Message) (history []Message, last string) {
	if len(msgs) == 0 {
		return nil, ""
	}
	tail := msgs[len(msgs)-1]
	if tail.Role != RoleUser {
		return msgs, ""
	}
	return msgs[:len(msgs)-1], tail.Content
}
