package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/intent_prompt.txt
var intentSystemPrompt string

// Categories is the taxonomy offered to the classifier. It is wider than the
// set of fetchable resource kinds; tokens outside that set are ignored
// downstream.
var Categories = []string{
	"profile", "manager", "reports", "devices", "colleagues", "documents", "all_users",
	"access", "github", "skills", "hr data", "time_tracking", "powerbi",
	"project_assignment", "project_demands",
}

// RenderIntent builds the classifier input for one question.
func RenderIntent(ctx context.Context, question string) ([]*schema.Message, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(intentSystemPrompt),
		schema.UserMessage("{{.Question}}"),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"Categories": Categories,
		"Question":   question,
	})
	if err != nil {
		return nil, fmt.Errorf("intent prompt render: %w", err)
	}
	return msgs, nil
}
