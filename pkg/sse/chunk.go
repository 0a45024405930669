// Package sse carries explanation text over text/event-stream using the
// chat-completion chunk shape: the server side writes delta chunks and the
// client side reassembles them into the running text.
package sse

const (
	DonePayload = "[DONE]"
	dataPrefix  = "data: "
	chunkObject = "chat.completion.chunk"
)

type Chunk struct {
	ID      string        `json:"id,omitempty"`
	Object  string        `json:"object,omitempty"`
	Created int64         `json:"created,omitempty"`
	Model   string        `json:"model,omitempty"`
	Choices []ChunkChoice `json:"choices"`
}

type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

type ChunkDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// Content returns the first choice's delta text, if any.
func (c Chunk) Content() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}
