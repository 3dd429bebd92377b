package generate

import (
	"fmt"
	"strings"
	"time"

	"github.com/sajor2000/chatcore/internal/types"
)

// DefaultSystemPrompt is the template used for single-policy and
// multi-policy answers alike; {{contexts}} and {{current_time}} are
// substituted via the placeholder catalog before the call.
const DefaultSystemPrompt = `You are a clinical policy assistant. Answer ONLY using the policy excerpts in {{contexts}}. ` +
	`Cite the reference number and section for every claim. If the excerpts do not answer the question, say so plainly ` +
	`instead of guessing. Current time: {{current_time}}.`

// BuildContexts renders evidence into the RAG context block the
// system prompt's {{contexts}} placeholder expands to, one box per
// source so the model can attribute each claim to a specific policy.
func BuildContexts(evidence []types.Evidence) string {
	var b strings.Builder
	for i, e := range evidence {
		fmt.Fprintf(&b, "[Source %d] %s (Ref #%s, %s)\n%s\n\n", i+1, e.Title, e.ReferenceNumber, e.Section, e.Snippet)
	}
	return b.String()
}

// RenderSystemPrompt substitutes the query/contexts/current_time
// placeholders into template, using the shared placeholder names so a
// template authored against the prompt-placeholder catalog works
// unmodified.
func RenderSystemPrompt(template string, query string, evidence []types.Evidence) string {
	replacer := strings.NewReplacer(
		"{{"+types.PlaceholderQuery.Name+"}}", query,
		"{{"+types.PlaceholderContexts.Name+"}}", BuildContexts(evidence),
		"{{"+types.PlaceholderCurrentTime.Name+"}}", time.Now().Format("2006-01-02 15:04:05"),
	)
	return replacer.Replace(template)
}
