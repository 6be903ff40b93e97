package people

import (
	"context"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/people-agent/server/internal/agent/model"
	"github.com/people-agent/server/internal/agent/people/observers"
	"github.com/people-agent/server/internal/agent/people/parsers"
	"github.com/people-agent/server/internal/agent/people/prompts"
	errx "github.com/people-agent/server/internal/core/error"
	logx "github.com/people-agent/server/pkg/logger"
)

// IntentClassifier picks the resource kinds a question needs.
type IntentClassifier struct {
	chatModel einomodel.BaseChatModel
	cfg       model.IntentModelConfig
}

func NewIntentClassifier(chatModel einomodel.BaseChatModel, cfg model.IntentModelConfig) *IntentClassifier {
	return &IntentClassifier{chatModel: chatModel, cfg: cfg}
}

// Classify asks the model for categories and maps them onto fetchable kinds.
// A reply naming no fetchable kind means every kind: under-fetching would
// leave the answer visibly incomplete. Only a failed model call is an error.
func (c *IntentClassifier) Classify(ctx context.Context, question string) ([]model.ResourceKind, error) {
	msgs, err := prompts.RenderIntent(observers.PromptContext(ctx, "IntentPrompt"), question)
	if err != nil {
		return nil, errx.Classification(err)
	}

	out, err := c.chatModel.Generate(
		observers.ModelContext(ctx, "IntentClassifier", c.cfg.Model),
		msgs,
		einomodel.WithMaxTokens(c.cfg.MaxTokens),
		einomodel.WithTemperature(c.cfg.Temperature),
	)
	if err != nil {
		return nil, errx.Classification(err)
	}
	logUsage("IntentClassifier", c.cfg.Model, usageOf(out))

	var reply string
	if out != nil {
		reply = out.Content
	}
	tokens := parsers.ParseIntents(reply)
	kinds := parsers.KindsFromTokens(tokens)
	if len(kinds) == 0 {
		logx.Warn().Str("reply", reply).Msg("classifier named no fetchable kind, fetching all")
		return append([]model.ResourceKind(nil), model.AllResourceKinds...), nil
	}
	logx.Debug().Strs("tokens", tokens).Msg("intent classified")
	return kinds, nil
}
