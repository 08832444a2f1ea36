// Package chat turns retrieved memories into a grounded model conversation.
package chat

import (
	"fmt"
	"strings"

	"github.com/remindly/remindly-server/internal/model"
)

// noMemoriesContext is what the model sees when retrieval found nothing
// relevant, so it can say so instead of inventing recall.
const noMemoriesContext = "No relevant memories found."

// Assembler renders retrieved memories into the system instruction for the
// chat model, within a character budget.
type Assembler struct {
	charBudget int
}

func NewAssembler(charBudget int) *Assembler {
	return &Assembler{charBudget: charBudget}
}

// Context renders the memory block. Memories are consumed in rank order and
// assembly stops at the first entry that would overflow the budget, so the cut
// always falls on the lowest-ranked memories. Entries are dropped whole; a
// truncated memory would invite the model to cite a half-sentence.
func (a *Assembler) Context(memories []model.RetrievedMemory) string {
	if len(memories) == 0 {
		return noMemoriesContext
	}

	var sb strings.Builder
	for _, m := range memories {
		entry := renderMemory(m)
		if a.charBudget > 0 && sb.Len()+len(entry) > a.charBudget {
			break
		}
		sb.WriteString(entry)
	}
	if sb.Len() == 0 {
		return noMemoriesContext
	}
	return strings.TrimRight(sb.String(), "\n")
}

// SystemPrompt composes the full grounding instruction: persona, citation
// rule and the memory block.
func (a *Assembler) SystemPrompt(memories []model.RetrievedMemory) string {
	var sb strings.Builder
	sb.WriteString("You are Remindly AI, a friendly and intelligent memory assistant.\n")
	sb.WriteString("- Your user is having a conversation with you about their memories.\n")
	sb.WriteString("- Below is a list of memories that might be relevant to their latest message.\n")
	sb.WriteString("- Use this information to answer their question thoughtfully and accurately.\n")
	sb.WriteString("- If you reference a memory that has a \"Source\" link, you MUST provide a clickable link to it.\n")
	sb.WriteString("- Format the link like this: [link to source](source url)\n")
	sb.WriteString("- ALWAYS be helpful and friendly.\n")
	sb.WriteString("\nRelevant Memories:\n")
	sb.WriteString(a.Context(memories))
	return sb.String()
}

func renderMemory(m model.RetrievedMemory) string {
	comment := m.UserComment
	if comment == "" {
		comment = "none"
	}
	return fmt.Sprintf("- Memory: %q (Comment: %s)\n  Source: %s\n", m.Text, comment, m.SourceURL)
}
