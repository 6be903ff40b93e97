package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/response_prompt.txt
var coreSystemPrompt string

// ResponseInput carries everything the answer prompt is rendered from.
type ResponseInput struct {
	Query   string
	Context string
	History []*schema.Message
	Now     time.Time
	// Citations asks the model to cite the categories it used.
	Citations bool
}

// RenderResponse builds the composer input: system prompt, the recent
// history window, then the current query with its context.
func RenderResponse(ctx context.Context, in ResponseInput) ([]*schema.Message, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(coreSystemPrompt),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("Query: {{.Query}}\nAvailable Data: {{.Context}}"),
	)
	history := in.History
	if history == nil {
		history = []*schema.Message{}
	}
	vars := map[string]any{
		"CurrentUTC": in.Now.UTC().Format("15:04"),
		"Citations":  in.Citations,
		"history":    history,
		"Query":      in.Query,
		"Context":    in.Context,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("response prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return nil, fmt.Errorf("response prompt render: empty result")
	}
	return msgs, nil
}
