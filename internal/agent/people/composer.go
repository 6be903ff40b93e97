package people

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/people-agent/server/internal/agent/model"
	"github.com/people-agent/server/internal/agent/people/observers"
	"github.com/people-agent/server/internal/agent/people/parsers"
	"github.com/people-agent/server/internal/agent/people/prompts"
	errx "github.com/people-agent/server/internal/core/error"
)

// ResponseComposer turns a query and its context into the final answer.
type ResponseComposer struct {
	chatModel einomodel.BaseChatModel
	cfg       model.ResponseModelConfig
	citations bool
	now       func() time.Time
}

func NewResponseComposer(chatModel einomodel.BaseChatModel, cfg model.ResponseModelConfig, citations bool, now func() time.Time) *ResponseComposer {
	if now == nil {
		now = time.Now
	}
	return &ResponseComposer{chatModel: chatModel, cfg: cfg, citations: citations, now: now}
}

func (c *ResponseComposer) messages(ctx context.Context, query string, data model.Context, history []*schema.Message) ([]*schema.Message, error) {
	canonical, err := data.Canonical()
	if err != nil {
		return nil, fmt.Errorf("serialize context: %w", err)
	}
	return prompts.RenderResponse(observers.PromptContext(ctx, "ResponsePrompt"), prompts.ResponseInput{
		Query:     query,
		Context:   string(canonical),
		History:   history,
		Now:       c.now(),
		Citations: c.citations,
	})
}

func (c *ResponseComposer) options() []einomodel.Option {
	return []einomodel.Option{
		einomodel.WithMaxTokens(c.cfg.MaxTokens),
		einomodel.WithTemperature(c.cfg.Temperature),
	}
}

// Compose generates the whole answer in one call.
func (c *ResponseComposer) Compose(ctx context.Context, query string, data model.Context, history []*schema.Message) (string, error) {
	msgs, err := c.messages(ctx, query, data, history)
	if err != nil {
		return "", errx.Composer(err)
	}

	out, err := c.chatModel.Generate(observers.ModelContext(ctx, "ResponseComposer", c.cfg.Model), msgs, c.options()...)
	if err != nil {
		return "", errx.Composer(err)
	}
	if out == nil {
		return "", errx.Composer(errors.New("model returned no message"))
	}
	logUsage("ResponseComposer", c.cfg.Model, usageOf(out))

	answer := out.Content
	if c.citations {
		answer = parsers.WithReferences(answer)
	}
	return answer, nil
}

// ComposeStream forwards each fragment to emit as it arrives and returns the
// accumulated answer. The emitted fragments concatenate to the returned text.
func (c *ResponseComposer) ComposeStream(ctx context.Context, query string, data model.Context, history []*schema.Message, emit func(string) error) (string, error) {
	msgs, err := c.messages(ctx, query, data, history)
	if err != nil {
		return "", errx.Composer(err)
	}

	sr, err := c.chatModel.Stream(observers.ModelContext(ctx, "ResponseComposer", c.cfg.Model), msgs, c.options()...)
	if err != nil {
		return "", errx.Composer(err)
	}
	defer sr.Close()

	var (
		full  strings.Builder
		usage *schema.TokenUsage
	)
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", errx.Composer(err)
		}
		if u := usageOf(chunk); u != nil {
			usage = u
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		full.WriteString(chunk.Content)
		if err := emit(chunk.Content); err != nil {
			return "", fmt.Errorf("deliver chunk: %w", err)
		}
	}
	logUsage("ResponseComposer", c.cfg.Model, usage)

	answer := full.String()
	if c.citations {
		if withRefs := parsers.WithReferences(answer); withRefs != answer {
			tail := withRefs[len(strings.TrimRight(answer, "\n")):]
			if err := emit(tail); err != nil {
				return "", fmt.Errorf("deliver chunk: %w", err)
			}
			answer += tail
		}
	}
	return answer, nil
}
