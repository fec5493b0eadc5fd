package conversation

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Shapes for the chat-platform export format. Everything is optional: the
// export is only partially specified and real files vary.
type exportPayload struct {
	Title      string          `json:"title"`
	CreateTime *float64        `json:"create_time"`
	Mapping    json.RawMessage `json:"mapping"`
}

type exportNode struct {
	Message *exportMessage `json:"message"`
}

type exportMessage struct {
	Author     *exportAuthor  `json:"author"`
	Content    *exportContent `json:"content"`
	CreateTime *float64       `json:"create_time"`
}

type exportAuthor struct {
	Role string `json:"role"`
}

type exportContent struct {
	Parts []json.RawMessage `json:"parts"`
}

// ParseExportTree reconstructs chronological message order from the
// pointer-keyed export mapping. Nodes are filtered to user/assistant messages
// with non-empty content, then stable-sorted by create_time with missing
// timestamps treated as epoch 0, so untimestamped nodes keep their document
// order relative to each other. System and tool nodes are dropped silently.
// An absent or malformed mapping yields an empty message list, never an error.
func ParseExportTree(raw []byte) ParsedConversation {
	var payload exportPayload
	// A failed unmarshal (top level not an object) leaves the zero payload,
	// which falls through to an empty conversation.
	_ = json.Unmarshal(raw, &payload)

	conv := ParsedConversation{
		ID:        uuid.New(),
		Title:     strings.TrimSpace(payload.Title),
		CreatedAt: time.Now().UTC(),
	}
	if t, ok := epochToTime(payload.CreateTime); ok {
		conv.CreatedAt = t
	}

	type timed struct {
		msg  Message
		when float64
	}
	var picked []timed

	for _, node := range decodeMappingInOrder(payload.Mapping) {
		m := node.Message
		if m == nil || m.Author == nil || m.Content == nil || len(m.Content.Parts) == 0 {
			continue
		}

		role := strings.ToLower(m.Author.Role)
		if role != RoleUser && role != RoleAssistant {
			continue
		}

		content := joinParts(m.Content.Parts)
		if content == "" {
			continue
		}

		item := timed{msg: Message{Role: role, Content: content}}
		if m.CreateTime != nil {
			item.when = *m.CreateTime
		}
		if t, ok := epochToTime(m.CreateTime); ok {
			item.msg.Timestamp = t.Format(time.RFC3339)
		}
		picked = append(picked, item)
	}

	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].when < picked[j].when
	})

	for _, item := range picked {
		conv.Messages = append(conv.Messages, item.msg)
	}

	return conv
}

// decodeMappingInOrder walks the mapping object token by token so nodes come
// back in document order. Decoding into a map would randomise iteration and
// break the stable-sort guarantee for untimestamped nodes.
func decodeMappingInOrder(raw json.RawMessage) []exportNode {
	if len(raw) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil
	}

	var nodes []exportNode
	for dec.More() {
		if _, err := dec.Token(); err != nil { // node id, unused
			return nodes
		}
		var node exportNode
		if err := dec.Decode(&node); err != nil {
			return nodes
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// joinParts collects string parts, skipping non-string entries (image refs in
// multimodal exports come through as objects).
func joinParts(parts []json.RawMessage) string {
	var collected []string
	for _, part := range parts {
		var s string
		if err := json.Unmarshal(part, &s); err == nil {
			collected = append(collected, s)
		}
	}
	return strings.TrimSpace(strings.Join(collected, "\n"))
}

func epochToTime(v *float64) (time.Time, bool) {
	if v == nil || *v == 0 {
		return time.Time{}, false
	}
	sec, frac := math.Modf(*v)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}
