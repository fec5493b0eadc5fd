package analyzer

const analysisPrompt = `You are a JSON-only response bot. Analyze this conversation and respond with ONLY valid JSON, no other text.

The conversation is provided as numbered messages, each with a role (user/assistant) and content.

Respond with this exact JSON structure (and nothing else - no explanations, no markdown, just JSON):
{
  "topics": [
    {
      "name": "Topic name",
      "description": "Brief description of what this topic covers",
      "messageIndices": [0, 1, 2]
    }
  ],
  "codeSnippets": [
    {
      "language": "python",
      "code": "the actual code",
      "context": "What question or problem this code addresses",
      "messageIndex": 3
    }
  ],
  "summary": {
    "tldr": "A 1-2 sentence summary of the entire conversation",
    "outline": [
      {
        "title": "Section title",
        "description": "What was discussed/decided",
        "messageIndices": [0, 1],
        "children": []
      }
    ]
  }
}

Rules:
1. Every message should belong to at least one topic
2. Extract ALL code blocks found in the conversation (look for ` + "```" + ` blocks)
3. The outline should capture the logical flow and key decisions
4. Be concise but comprehensive
5. IMPORTANT: Return ONLY valid JSON, no other text before or after

Here is the conversation to analyze:
`
