package analyzer

// TopicCluster groups the message indices that belong to one discussion
// thread. Indices point into the owning conversation's message list; a
// message may appear in more than one topic.
type TopicCluster struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	MessageIndices []int  `json:"messageIndices"`
}

// CodeSnippet is one fenced code block the model found in the conversation.
type CodeSnippet struct {
	Language     string `json:"language"`
	Code         string `json:"code"`
	Context      string `json:"context"`
	MessageIndex int    `json:"messageIndex"`
}

// OutlineNode is one entry in the recursive summary tree. Depth is unbounded;
// consumers must render it iteratively.
type OutlineNode struct {
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	MessageIndices []int         `json:"messageIndices,omitempty"`
	Children       []OutlineNode `json:"children,omitempty"`
}

type Summary struct {
	TLDR    string        `json:"tldr"`
	Outline []OutlineNode `json:"outline"`
}

// ConversationAnalysis is the validated result of one analysis request.
// Treated as an opaque blob after creation; replaced whole, never mutated.
type ConversationAnalysis struct {
	Topics       []TopicCluster `json:"topics"`
	CodeSnippets []CodeSnippet  `json:"codeSnippets"`
	Summary      Summary        `json:"summary"`
}
