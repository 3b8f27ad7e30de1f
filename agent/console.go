package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tailored-agentic-units/orchestra/core/protocol"
)

// ConsolePrinter renders streamed chunks incrementally. Text and thinking
// blocks are accumulated per message ID and only the unseen suffix is
// written, so repeated chunks of a growing message print once. Other blocks
// are written as indented JSON on the last chunk. Audio is not rendered.
type ConsolePrinter struct {
	mu       sync.Mutex
	w        io.Writer
	prefixes map[string]string
}

func NewConsolePrinter(w io.Writer) *ConsolePrinter {
	return &ConsolePrinter{
		w:        w,
		prefixes: make(map[string]string),
	}
}

func (p *ConsolePrinter) Print(msg *protocol.Msg, last bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var textual []string
	for _, b := range msg.Content {
		switch block := b.(type) {
		case protocol.AudioBlock:
			// playback belongs to the caller
		case protocol.TextBlock:
			textual = append(textual, msg.Name+": "+block.Text)
			if err := p.printText(msg.ID, textual); err != nil {
				return err
			}
		case protocol.ThinkingBlock:
			textual = append(textual, msg.Name+"(thinking): "+block.Thinking)
			if err := p.printText(msg.ID, textual); err != nil {
				return err
			}
		default:
			if last {
				if err := p.printBlock(msg, b); err != nil {
					return err
				}
			}
		}
	}

	if last {
		prefix, ok := p.prefixes[msg.ID]
		delete(p.prefixes, msg.ID)
		if ok && prefix != "" && !strings.HasSuffix(prefix, "\n") {
			if _, err := io.WriteString(p.w, "\n"); err != nil {
				return err
			}
		}
	}

	return nil
}

func (p *ConsolePrinter) printText(id string, textual []string) error {
	joined := strings.Join(textual, "\n")
	prefix := p.prefixes[id]

	if len(joined) <= len(prefix) {
		return nil
	}

	if _, err := io.WriteString(p.w, joined[len(prefix):]); err != nil {
		return err
	}
	p.prefixes[id] = joined
	return nil
}

func (p *ConsolePrinter) printBlock(msg *protocol.Msg, b protocol.Block) error {
	raw, err := protocol.MarshalBlock(b)
	if err != nil {
		return err
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, raw, "", "    "); err != nil {
		return err
	}

	prefix := p.prefixes[msg.ID]
	switch {
	case prefix == "":
		_, err = fmt.Fprintf(p.w, "%s: %s\n", msg.Name, indented.String())
	case strings.HasSuffix(prefix, "\n"):
		_, err = fmt.Fprintf(p.w, "%s\n", indented.String())
	default:
		_, err = fmt.Fprintf(p.w, "\n%s\n", indented.String())
	}
	return err
}
