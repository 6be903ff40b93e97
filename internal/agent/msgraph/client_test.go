package msgraph

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/people-agent/server/internal/agent/model"
	errx "github.com/people-agent/server/internal/core/error"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(model.GraphConfig{BaseURL: srv.URL + "/v1.0/", Timeout: 5 * time.Second})
}

func TestFetchPathsAndBearer(t *testing.T) {
	tests := []struct {
		kind model.ResourceKind
		path string
	}{
		{model.KindProfile, "/v1.0/users/jane@example.com"},
		{model.KindManager, "/v1.0/users/jane@example.com/manager"},
		{model.KindReports, "/v1.0/users/jane@example.com/directReports"},
		{model.KindDevices, "/v1.0/users/jane@example.com/managedDevices"},
		{model.KindColleagues, "/v1.0/users/jane@example.com/people"},
		{model.KindDocuments, "/v1.0/users/jane@example.com/drive/recent"},
		{model.KindAllUsers, "/v1.0/users"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != tt.path {
					t.Errorf("path = %q, want %q", r.URL.Path, tt.path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("Authorization = %q", got)
				}
				w.Write([]byte(`{"displayName":"Jane"}`))
			})
			res := c.Fetch(context.Background(), "tok", tt.kind, "jane@example.com")
			if res.Err != nil {
				t.Fatalf("unexpected error: %v", res.Err)
			}
			if res.Data["displayName"] != "Jane" {
				t.Errorf("unexpected data %v", res.Data)
			}
		})
	}
}

func TestFetchHTTPErrorBecomesResourceError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"Request_ResourceNotFound","message":"Resource 'x' does not exist"}}`))
	})

	res := c.Fetch(context.Background(), "tok", model.KindManager, "x@example.com")
	if res.Err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(res.Err, errx.ErrResourceFetch) {
		t.Errorf("expected resource fetch error, got %v", res.Err)
	}
	var ge *GraphError
	if !errors.As(res.Err, &ge) {
		t.Fatalf("expected GraphError in chain")
	}
	if ge.Status != http.StatusNotFound || ge.Code != "Request_ResourceNotFound" {
		t.Errorf("unexpected graph error %+v", ge)
	}
	if res.Data != nil {
		t.Errorf("failed result must not carry data")
	}
}

func TestFetchTransportError(t *testing.T) {
	c := New(model.GraphConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	res := c.Fetch(context.Background(), "tok", model.KindProfile, "x@example.com")
	if !errors.Is(res.Err, errx.ErrResourceFetch) {
		t.Fatalf("expected resource fetch error, got %v", res.Err)
	}
}

func TestFetchRequiresIdentity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected, got %s", r.URL.Path)
	})
	if res := c.Fetch(context.Background(), "tok", model.KindProfile, " "); res.Err == nil {
		t.Fatalf("expected error for empty identity")
	}
}

func TestSearchByName(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("$filter"); got != "startswith(displayName,'O''Brien')" {
			t.Errorf("filter = %q", got)
		}
		w.Write([]byte(`{"value":[
			{"id":"1","displayName":"O'Brien, Ann","mail":"ann@example.com"},
			{"id":"2","displayName":"O'Brien, Bob","userPrincipalName":"bob@example.com","jobTitle":"Dev"}
		]}`))
	})

	got, err := c.SearchByName(context.Background(), "tok", "O'Brien")
	if err != nil {
		t.Fatalf("SearchByName: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Identity() != "ann@example.com" || got[1].Identity() != "bob@example.com" {
		t.Errorf("unexpected order or identities: %+v", got)
	}
	if got[1].JobTitle != "Dev" {
		t.Errorf("job title not decoded")
	}
}

func TestSearchByNameNoMatches(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[]}`))
	})
	got, err := c.SearchByName(context.Background(), "tok", "Nobody")
	if err != nil {
		t.Fatalf("SearchByName: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no candidates")
	}
}
