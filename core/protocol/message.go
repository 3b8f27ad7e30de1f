package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownBlockType is returned when decoding a content block whose
// "type" discriminator is not recognized.
var ErrUnknownBlockType = errors.New("unknown content block type")

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Msg is the envelope exchanged between agents.
//
// Chunks of one streamed logical message share the same ID; the printing
// agent marks the final chunk explicitly when it hands the message to its
// print sink. Content is an ordered list of typed blocks.
type Msg struct {
	ID        string
	Name      string
	Role      Role
	Content   []Block
	Metadata  map[string]any
	Timestamp time.Time
}

// NewMsg creates a message with a fresh time-ordered ID and a single text
// block. An empty text yields a message with no content blocks.
//
// Example:
//
//	msg := protocol.NewMsg("alice", protocol.RoleAssistant, "Hi, I'm Alice.")
func NewMsg(name string, role Role, text string, blocks ...Block) *Msg {
	content := make([]Block, 0, len(blocks)+1)
	if text != "" {
		content = append(content, TextBlock{Text: text})
	}
	content = append(content, blocks...)

	return &Msg{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Name:      name,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// TextContent joins the text of all text blocks with newlines.
func (m *Msg) TextContent() string {
	var parts []string
	for _, b := range m.Content {
		if t, ok := b.(TextBlock); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Blocks returns the content blocks of the given type, or all blocks when
// typ is empty.
func (m *Msg) Blocks(typ BlockType) []Block {
	if typ == "" {
		return m.Content
	}
	var out []Block
	for _, b := range m.Content {
		if b.Type() == typ {
			out = append(out, b)
		}
	}
	return out
}

// HasBlock reports whether the message carries at least one block of typ.
func (m *Msg) HasBlock(typ BlockType) bool {
	for _, b := range m.Content {
		if b.Type() == typ {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. The copy keeps the original ID so streamed
// chunks and broadcast copies still correlate.
func (m *Msg) Clone() *Msg {
	if m == nil {
		return nil
	}

	clone := *m
	clone.Metadata = cloneMap(m.Metadata)
	if m.Content != nil {
		clone.Content = make([]Block, len(m.Content))
		for i, b := range m.Content {
			clone.Content[i] = b.clone()
		}
	}
	return &clone
}

// CloneAll deep copies a message list.
func CloneAll(msgs []*Msg) []*Msg {
	if msgs == nil {
		return nil
	}
	out := make([]*Msg, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

type msgJSON struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Role      Role              `json:"role"`
	Content   []json.RawMessage `json:"content"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// MarshalJSON encodes content blocks with an inline "type" discriminator.
func (m Msg) MarshalJSON() ([]byte, error) {
	out := msgJSON{
		ID:        m.ID,
		Name:      m.Name,
		Role:      m.Role,
		Content:   make([]json.RawMessage, 0, len(m.Content)),
		Metadata:  m.Metadata,
		Timestamp: m.Timestamp,
	}
	for _, b := range m.Content {
		raw, err := MarshalBlock(b)
		if err != nil {
			return nil, err
		}
		out.Content = append(out.Content, raw)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes content blocks by their "type" discriminator. A
// plain string content is accepted and decoded as one text block.
func (m *Msg) UnmarshalJSON(data []byte) error {
	var in struct {
		msgJSON
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	m.ID = in.ID
	m.Name = in.Name
	m.Role = in.Role
	m.Metadata = in.Metadata
	m.Timestamp = in.Timestamp
	m.Content = nil

	if len(in.Content) == 0 || string(in.Content) == "null" {
		return nil
	}

	var text string
	if err := json.Unmarshal(in.Content, &text); err == nil {
		if text != "" {
			m.Content = []Block{TextBlock{Text: text}}
		}
		return nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(in.Content, &raws); err != nil {
		return err
	}
	m.Content = make([]Block, 0, len(raws))
	for _, raw := range raws {
		b, err := UnmarshalBlock(raw)
		if err != nil {
			return err
		}
		m.Content = append(m.Content, b)
	}
	return nil
}
