package types

// PromptPlaceholder is one named slot the system prompt template can
// reference as "{{name}}", substituted by generate.RenderSystemPrompt.
type PromptPlaceholder struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// The three placeholders the system prompt template actually
// interpolates: the user's question, the retrieved policy evidence,
// and the current time for any "as of" phrasing in the answer.
var (
	PlaceholderQuery = PromptPlaceholder{
		Name:        "query",
		Label:       "User question",
		Description: "The user's current question or search text",
	}

	PlaceholderContexts = PromptPlaceholder{
		Name:        "contexts",
		Label:       "Retrieved evidence",
		Description: "The formatted list of policy excerpts retrieved for this question",
	}

	PlaceholderCurrentTime = PromptPlaceholder{
		Name:        "current_time",
		Label:       "Current time",
		Description: "The current system time (2006-01-02 15:04:05)",
	}
)
