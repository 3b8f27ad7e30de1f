package protocol

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// BlockType discriminates content blocks in their JSON form.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockThinking   BlockType = "thinking"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	BlockImage      BlockType = "image"
	BlockAudio      BlockType = "audio"
	BlockVideo      BlockType = "video"
)

// Block is one typed unit of message content.
type Block interface {
	Type() BlockType
	clone() Block
}

type TextBlock struct {
	Text string `json:"text"`
}

type ThinkingBlock struct {
	Thinking string `json:"thinking"`
}

// ToolUseBlock is a tool invocation requested by an agent.
type ToolUseBlock struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResultBlock carries the output of a tool invocation back to the agent.
// ID correlates to the originating ToolUseBlock.
type ToolResultBlock struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Output string `json:"output"`
}

// Source locates binary media, either by URL or inline base64 data.
type Source struct {
	Type      string `json:"type"`
	URL       string `json:"url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
}

type ImageBlock struct {
	Source Source `json:"source"`
}

type AudioBlock struct {
	Source Source `json:"source"`
}

type VideoBlock struct {
	Source Source `json:"source"`
}

func (TextBlock) Type() BlockType       { return BlockText }
func (ThinkingBlock) Type() BlockType   { return BlockThinking }
func (ToolUseBlock) Type() BlockType    { return BlockToolUse }
func (ToolResultBlock) Type() BlockType { return BlockToolResult }
func (ImageBlock) Type() BlockType      { return BlockImage }
func (AudioBlock) Type() BlockType      { return BlockAudio }
func (VideoBlock) Type() BlockType      { return BlockVideo }

func (b TextBlock) clone() Block       { return b }
func (b ThinkingBlock) clone() Block   { return b }
func (b ToolResultBlock) clone() Block { return b }
func (b ImageBlock) clone() Block      { return b }
func (b AudioBlock) clone() Block      { return b }
func (b VideoBlock) clone() Block      { return b }

func (b ToolUseBlock) clone() Block {
	b.Input = cloneMap(b.Input)
	return b
}

// MarshalBlock encodes a block with its "type" discriminator inlined.
func MarshalBlock(b Block) ([]byte, error) {
	body, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}

	typ, err := json.Marshal(b.Type())
	if err != nil {
		return nil, err
	}
	fields["type"] = typ

	return json.Marshal(fields)
}

// UnmarshalBlock decodes a block by its "type" discriminator.
func UnmarshalBlock(data []byte) (Block, error) {
	var head struct {
		Type BlockType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var (
		block Block
		err   error
	)
	switch head.Type {
	case BlockText:
		var b TextBlock
		err = json.Unmarshal(data, &b)
		block = b
	case BlockThinking:
		var b ThinkingBlock
		err = json.Unmarshal(data, &b)
		block = b
	case BlockToolUse:
		var b ToolUseBlock
		err = json.Unmarshal(data, &b)
		block = b
	case BlockToolResult:
		var b ToolResultBlock
		err = json.Unmarshal(data, &b)
		block = b
	case BlockImage:
		var b ImageBlock
		err = json.Unmarshal(data, &b)
		block = b
	case BlockAudio:
		var b AudioBlock
		err = json.Unmarshal(data, &b)
		block = b
	case BlockVideo:
		var b VideoBlock
		err = json.Unmarshal(data, &b)
		block = b
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlockType, head.Type)
	}
	if err != nil {
		return nil, err
	}
	return block, nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := slices.Clone(t)
		for i := range out {
			out[i] = cloneValue(out[i])
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}
