// Package people answers natural-language questions about one person in the
// directory. An Agent is bound to a single identity and owns that person's
// conversation history and caches.
package people

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/people-agent/server/internal/agent/auth"
	"github.com/people-agent/server/internal/agent/cache"
	"github.com/people-agent/server/internal/agent/model"
	"github.com/people-agent/server/internal/agent/people/conversations"
	"github.com/people-agent/server/internal/agent/repo"
	errx "github.com/people-agent/server/internal/core/error"
	logx "github.com/people-agent/server/pkg/logger"
)

// Deps are the collaborators of an Agent.
type Deps struct {
	Tokens    auth.TokenSource
	Directory Directory
	// Classifier is required in selective fetch mode only.
	Classifier *IntentClassifier
	Composer   *ResponseComposer
	History    model.ConversationRepository
	// Responses is shared between agents when set. Nil gives the agent a
	// private in-memory cache.
	Responses model.ResponseCache
	Config    model.ConversationConfig
	Now       func() time.Time
}

// Agent runs one turn at a time for its identity.
type Agent struct {
	identity   string
	tokens     auth.TokenSource
	dir        Directory
	classifier *IntentClassifier
	composer   *ResponseComposer
	history    *conversations.MessagesManager
	resources  *cache.TTL[resourceKey, model.Result]
	cfg        model.ConversationConfig
	now        func() time.Time

	// mu serializes turns, Clear and AllUsers.
	mu           sync.Mutex
	token        auth.Token
	responses    model.ResponseCache
	ownResponses bool

	state atomic.Int32
}

// NewAgent acquires a token and returns an idle agent for identity. Without
// a token there is no session: the error is returned before any directory
// call is made.
func NewAgent(ctx context.Context, identity string, deps Deps) (*Agent, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, errx.New(errors.New("empty identity"), http.StatusBadRequest, "identity must not be empty")
	}
	if deps.Tokens == nil || deps.Directory == nil || deps.Composer == nil || deps.History == nil {
		return nil, errors.New("people: tokens, directory, composer and history are required")
	}
	if deps.Config.FetchMode == model.FetchSelective && deps.Classifier == nil {
		return nil, errors.New("people: selective fetch mode needs a classifier")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	token, err := deps.Tokens.GetToken(ctx)
	if err != nil {
		logx.Error().Err(err).Str("identity", identity).Msg("session start failed: no access token")
		return nil, err
	}

	a := &Agent{
		identity:   identity,
		tokens:     deps.Tokens,
		dir:        deps.Directory,
		classifier: deps.Classifier,
		composer:   deps.Composer,
		history:    conversations.NewMessagesManager(deps.History, deps.Config),
		resources:  cache.New[resourceKey, model.Result](ResourceTTL, deps.Now),
		cfg:        deps.Config,
		now:        deps.Now,
		token:      token,
		responses:  deps.Responses,
	}
	if a.responses == nil {
		a.responses = repo.NewMemoryResponseCache(deps.Config.ResponseCacheTTL, deps.Now)
		a.ownResponses = true
	}
	a.setState(model.StateIdle)
	logx.Info().Str("identity", identity).Str("fetch_mode", deps.Config.FetchMode).Msg("session started")
	return a, nil
}

func (a *Agent) Identity() string { return a.identity }

// State is safe to call while a turn is running.
func (a *Agent) State() model.TurnState { return model.TurnState(a.state.Load()) }

func (a *Agent) setState(s model.TurnState) { a.state.Store(int32(s)) }

// Ask answers query with a single composer call.
func (a *Agent) Ask(ctx context.Context, query string) (*model.TurnResult, error) {
	return a.turn(ctx, query, nil)
}

// AskStream answers query, passing fragments to emit as they are produced.
// A cached answer is replayed in fixed-size slices.
func (a *Agent) AskStream(ctx context.Context, query string, emit func(chunk string) error) (*model.TurnResult, error) {
	if emit == nil {
		return nil, errors.New("people: AskStream needs an emit func")
	}
	return a.turn(ctx, query, emit)
}

func (a *Agent) turn(ctx context.Context, query string, emit func(string) error) (*model.TurnResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errx.New(errors.New("empty query"), http.StatusBadRequest, "query must not be empty")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	defer a.setState(model.StateIdle)

	log := logx.With().Str("turn_id", uuid.NewString()).Str("identity", a.identity).Logger()
	start := time.Now()

	if err := a.refreshToken(ctx); err != nil {
		return nil, err
	}

	window, err := a.history.RecentWindow(ctx, a.identity)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if err := a.history.SaveQuery(ctx, a.identity, query); err != nil {
		return nil, fmt.Errorf("save query: %w", err)
	}

	a.setState(model.StateFetching)
	kinds, err := a.selectKinds(ctx, query)
	if err != nil {
		log.Error().Err(err).Msg("classification failed")
		return nil, err
	}
	data := BuildContext(a.fetchAll(ctx, a.token.Value, kinds))

	key, err := BuildKey(a.identity, query, data)
	if err != nil {
		return nil, err
	}
	answer, age, hit, err := a.responses.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("response cache unavailable")
	}
	if hit {
		log.Debug().Dur("age", age).Msg("response cache hit")
		if emit != nil {
			for _, chunk := range SliceChunks(answer, a.cfg.StreamChunkSize) {
				if err := emit(chunk); err != nil {
					return nil, fmt.Errorf("deliver chunk: %w", err)
				}
			}
		}
		return &model.TurnResult{Answer: answer, Cached: true, Kinds: kinds}, nil
	}

	a.setState(model.StateComposing)
	if emit != nil {
		answer, err = a.composer.ComposeStream(ctx, query, data, window, emit)
	} else {
		answer, err = a.composer.Compose(ctx, query, data, window)
	}
	if err != nil {
		log.Error().Err(err).Msg("composition failed")
		return nil, err
	}

	if err := a.history.SaveResponse(ctx, a.identity, answer); err != nil {
		return nil, fmt.Errorf("save response: %w", err)
	}
	if err := a.responses.Put(ctx, key, answer); err != nil {
		log.Warn().Err(err).Msg("response cache write failed")
	}

	log.Info().Int("kinds", len(kinds)).Dur("duration", time.Since(start)).Msg("turn completed")
	return &model.TurnResult{Answer: answer, Kinds: kinds}, nil
}

func (a *Agent) selectKinds(ctx context.Context, query string) ([]model.ResourceKind, error) {
	if a.cfg.FetchMode != model.FetchSelective {
		return append([]model.ResourceKind(nil), model.AllResourceKinds...), nil
	}
	return a.classifier.Classify(ctx, query)
}

// refreshToken re-acquires the token once it has expired. Must hold mu.
func (a *Agent) refreshToken(ctx context.Context) error {
	if !a.token.Expired(a.now()) {
		return nil
	}
	token, err := a.tokens.GetToken(ctx)
	if err != nil {
		return err
	}
	a.token = token
	return nil
}

// AllUsers returns the formatted directory listing, through the same
// resource cache as a turn.
func (a *Agent) AllUsers(ctx context.Context) (model.ContextValue, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.refreshToken(ctx); err != nil {
		return model.ContextValue{}, err
	}
	r := a.getOrFetch(ctx, a.token.Value, model.KindAllUsers)
	return Format(model.KindAllUsers, r), nil
}

// History returns the stored conversation, oldest first.
func (a *Agent) History(ctx context.Context) ([]*schema.Message, error) {
	return a.history.History(ctx, a.identity)
}

// Clear forgets the conversation and drops the cached resources. A private
// response cache is replaced; a shared one is left to expire.
func (a *Agent) Clear(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.history.Clear(ctx, a.identity); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	a.resources.Clear()
	if a.ownResponses {
		a.responses = repo.NewMemoryResponseCache(a.cfg.ResponseCacheTTL, a.now)
	}
	a.setState(model.StateCleared)
	logx.Info().Str("identity", a.identity).Msg("session cleared")
	return nil
}
