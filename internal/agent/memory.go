package agent

import (
	"strings"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/llm"
)

const (
	// maxMessages caps the rolling conversation window.
	maxMessages = 5

	taskMessagePrefix     = "Process this invoice and save it to database:"
	invoicePointerMessage = "Invoice text already provided earlier. Do not ask for it again."
)

// Memory is the rolling conversation window for one execution. Once the
// invoice has been extracted the original task message, which embeds the
// full raw invoice text, is replaced with a short pointer so the window
// stops carrying kilobytes of invoice on every model call. The replacement
// happens at most once.
type Memory struct {
	messages []llm.Message
	replaced bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(msg llm.Message) {
	m.messages = append(m.messages, msg)
}

// Compact applies the invoice-pointer replacement when extraction has
// completed, then trims the window to the newest maxMessages entries.
func (m *Memory) Compact(extracted bool) {
	if extracted && !m.replaced {
		for i, msg := range m.messages {
			if msg.Role == llm.RoleUser && strings.HasPrefix(msg.Content, taskMessagePrefix) {
				m.messages[i].Content = invoicePointerMessage
				m.replaced = true
				break
			}
		}
	}
	if len(m.messages) > maxMessages {
		m.messages = m.messages[len(m.messages)-maxMessages:]
	}
}

// Messages returns a copy of the current window.
func (m *Memory) Messages() []llm.Message {
	out := make([]llm.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *Memory) Len() int {
	return len(m.messages)
}
