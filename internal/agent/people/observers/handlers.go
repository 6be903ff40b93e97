package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates all observer handlers into one callbacks.Handler.
func NewAllCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()
}

// ModelContext attaches the observers to ctx for a direct model call made
// outside a compiled graph. name is the stage, modelName the deployment.
func ModelContext(ctx context.Context, name, modelName string) context.Context {
	return einocb.InitCallbacks(ctx, &einocb.RunInfo{
		Name:      name,
		Type:      modelName,
		Component: components.ComponentOfChatModel,
	}, NewAllCallbacks())
}

// PromptContext attaches the observers to ctx for a template render.
func PromptContext(ctx context.Context, name string) context.Context {
	return einocb.InitCallbacks(ctx, &einocb.RunInfo{
		Name:      name,
		Type:      "ChatTemplate",
		Component: components.ComponentOfPrompt,
	}, NewAllCallbacks())
}
