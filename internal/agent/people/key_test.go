package people

import (
	"strings"
	"testing"

	"github.com/people-agent/server/internal/agent/model"
)

func sampleContext() model.Context {
	return model.Context{
		model.KindProfile: {Data: map[string]any{"name": "Jane", "location": "Berlin", "email": "jane@example.com"}},
		model.KindManager: {Data: map[string]any{"name": "John", "location": "Paris"}},
		model.KindDevices: {Err: "Error getting devices: 403"},
	}
}

func TestBuildKeyIsDeterministic(t *testing.T) {
	first, err := BuildKey("jane@example.com", "Where is she?", sampleContext())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		k, err := BuildKey("jane@example.com", "Where is she?", sampleContext())
		if err != nil {
			t.Fatal(err)
		}
		if k != first {
			t.Fatalf("key changed between builds: %q vs %q", k, first)
		}
	}
	if !strings.HasPrefix(first, "jane@example.com:Where is she?:") {
		t.Errorf("key should carry identity and literal query, got %q", first)
	}
}

func TestBuildKeyChangesWithAnySingleField(t *testing.T) {
	base, _ := BuildKey("jane@example.com", "q", sampleContext())

	changed := sampleContext()
	changed[model.KindManager] = model.ContextValue{Data: map[string]any{"name": "John", "location": "Lyon"}}
	k, _ := BuildKey("jane@example.com", "q", changed)
	if k == base {
		t.Error("changing one context field must change the key")
	}

	failed := sampleContext()
	failed[model.KindProfile] = model.ContextValue{Err: "Error getting profile: 500"}
	k, _ = BuildKey("jane@example.com", "q", failed)
	if k == base {
		t.Error("data turning into an error must change the key")
	}

	if k, _ := BuildKey("john@example.com", "q", sampleContext()); k == base {
		t.Error("identity must be part of the key")
	}
	if k, _ := BuildKey("jane@example.com", "q?", sampleContext()); k == base {
		t.Error("query text must be part of the key")
	}
}
