package people

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/people-agent/server/internal/agent/auth"
	"github.com/people-agent/server/internal/agent/model"
	"github.com/people-agent/server/internal/agent/repo"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeTokens struct {
	clock *fakeClock
	ttl   time.Duration
	err   error
	calls atomic.Int32
}

func (f *fakeTokens) GetToken(context.Context) (auth.Token, error) {
	f.calls.Add(1)
	if f.err != nil {
		return auth.Token{}, f.err
	}
	ttl := f.ttl
	if ttl == 0 {
		ttl = time.Hour
	}
	return auth.Token{Value: "token", ExpiresOn: f.clock.Now().Add(ttl)}, nil
}

// fakeDirectory serves canned results and counts calls per kind.
type fakeDirectory struct {
	mu         sync.Mutex
	results    map[model.ResourceKind]model.Result
	calls      map[model.ResourceKind]int
	tokens     []string
	candidates []model.UserCandidate
	searches   int
	panicKind  model.ResourceKind
}

func newFakeDirectory() *fakeDirectory {
	d := &fakeDirectory{
		results: map[model.ResourceKind]model.Result{},
		calls:   map[model.ResourceKind]int{},
	}
	d.set(model.KindProfile, map[string]any{
		"displayName":     "Jane Doe",
		"mail":            "jane@example.com",
		"jobTitle":        "Engineer",
		"officeLocation":  "Berlin",
		"mailboxSettings": map[string]any{"timeZone": "W. Europe Standard Time"},
	})
	d.set(model.KindManager, map[string]any{
		"displayName":    "John Smith",
		"jobTitle":       "Director",
		"mail":           "john@example.com",
		"officeLocation": "Paris",
	})
	d.set(model.KindReports, map[string]any{"value": []any{}})
	d.set(model.KindDevices, map[string]any{"value": []any{
		map[string]any{"displayName": "JANE-LAPTOP", "operatingSystem": "Windows"},
	}})
	d.set(model.KindColleagues, map[string]any{"value": []any{map[string]any{"displayName": "Max"}}})
	d.set(model.KindDocuments, map[string]any{"value": []any{map[string]any{"name": "plan.docx"}}})
	d.set(model.KindAllUsers, map[string]any{"value": []any{
		map[string]any{"displayName": "Jane Doe", "userPrincipalName": "jane@example.com", "mail": "jane@example.com"},
	}})
	return d
}

func (d *fakeDirectory) set(kind model.ResourceKind, data map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results[kind] = model.Ok(kind, data)
}

func (d *fakeDirectory) fail(kind model.ResourceKind, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results[kind] = model.Failed(kind, &model.ResourceError{Kind: kind, Err: err})
}

func (d *fakeDirectory) Fetch(_ context.Context, token string, kind model.ResourceKind, _ string) model.Result {
	d.mu.Lock()
	d.calls[kind]++
	d.tokens = append(d.tokens, token)
	r := d.results[kind]
	panicKind := d.panicKind
	d.mu.Unlock()
	if kind == panicKind {
		panic("boom")
	}
	return r
}

func (d *fakeDirectory) SearchByName(context.Context, string, string) ([]model.UserCandidate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.searches++
	return d.candidates, nil
}

func (d *fakeDirectory) callsFor(kind model.ResourceKind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[kind]
}

func (d *fakeDirectory) totalCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		n += c
	}
	return n
}

// fakeChatModel answers with reply and records every input.
type fakeChatModel struct {
	mu       sync.Mutex
	calls    int
	inputs   [][]*schema.Message
	reply    func(msgs []*schema.Message) (string, error)
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

var _ einomodel.BaseChatModel = (*fakeChatModel)(nil)

func (f *fakeChatModel) record(msgs []*schema.Message) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls++
	f.inputs = append(f.inputs, msgs)
	reply := f.reply
	f.mu.Unlock()
	if reply == nil {
		return "ok", nil
	}
	return reply(msgs)
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	text, err := f.record(input)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(text, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	text, err := f.record(input)
	if err != nil {
		return nil, err
	}
	var chunks []*schema.Message
	for _, c := range SliceChunks(text, 4) {
		chunks = append(chunks, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

func (f *fakeChatModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeChatModel) lastInput() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		return nil
	}
	return f.inputs[len(f.inputs)-1]
}

// contextOf decodes the "Available Data" part of the final user message.
func contextOf(t *testing.T, msgs []*schema.Message) map[string]any {
	t.Helper()
	if len(msgs) == 0 {
		t.Fatal("no model input recorded")
	}
	last := msgs[len(msgs)-1].Content
	_, raw, ok := strings.Cut(last, "Available Data: ")
	if !ok {
		t.Fatalf("user message has no context: %q", last)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("context is not JSON: %v", err)
	}
	return out
}

// managerLocationReply answers like a model reading the manager's location
// and the reports list out of the context.
func managerLocationReply(msgs []*schema.Message) (string, error) {
	last := msgs[len(msgs)-1].Content
	_, raw, _ := strings.Cut(last, "Available Data: ")
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return "", err
	}
	var parts []string
	if mgr, ok := data["manager"].(map[string]any); ok {
		parts = append(parts, "Her manager is based in "+mgr["location"].(string)+".")
	}
	if reports, ok := data["reports"].([]any); ok && len(reports) == 0 {
		parts = append(parts, "She has no direct reports.")
	}
	return strings.Join(parts, " "), nil
}

type harness struct {
	clock     *fakeClock
	tokens    *fakeTokens
	dir       *fakeDirectory
	composer  *fakeChatModel
	intent    *fakeChatModel
	history   *repo.MemoryConversationRepository
	responses model.ResponseCache
	cfg       model.ConversationConfig
	citations bool
}

func newHarness() *harness {
	clock := newFakeClock()
	return &harness{
		clock:    clock,
		tokens:   &fakeTokens{clock: clock},
		dir:      newFakeDirectory(),
		composer: &fakeChatModel{reply: managerLocationReply},
		intent:   &fakeChatModel{},
		history:  repo.NewMemoryConversationRepository(),
		cfg: model.ConversationConfig{
			MemoryLimit:      10,
			HistoryWindow:    6,
			FetchMode:        model.FetchParallel,
			ResponseCacheTTL: 60 * time.Second,
			StreamChunkSize:  10,
		},
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Tokens:     h.tokens,
		Directory:  h.dir,
		Classifier: NewIntentClassifier(h.intent, model.IntentModelConfig{Model: "gpt-4o-mini", MaxTokens: 100}),
		Composer: NewResponseComposer(h.composer, model.ResponseModelConfig{Model: "gpt-4o-mini", MaxTokens: 225, Temperature: 0.3},
			h.citations, h.clock.Now),
		History:   h.history,
		Responses: h.responses,
		Config:    h.cfg,
		Now:       h.clock.Now,
	}
}

func (h *harness) agent(t *testing.T) *Agent {
	t.Helper()
	a, err := NewAgent(context.Background(), "jane@example.com", h.deps())
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	return a
}

var errBoom = errors.New("boom")
