package people

import (
	"github.com/cloudwego/eino/schema"

	"github.com/people-agent/server/internal/agent/model"
	logx "github.com/people-agent/server/pkg/logger"
)

// logUsage prices a model reply and logs it.
func logUsage(stage, modelName string, usage *schema.TokenUsage) {
	if usage == nil {
		return
	}
	pricing := model.ResolvePricing(modelName)
	inC, outC, totalC := model.ComputeCost(usage, pricing)
	logx.Debug().
		Str("component", stage).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("model usage")
}

func usageOf(msg *schema.Message) *schema.TokenUsage {
	if msg == nil || msg.ResponseMeta == nil {
		return nil
	}
	return msg.ResponseMeta.Usage
}
