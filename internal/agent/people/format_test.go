package people

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/people-agent/server/internal/agent/model"
	errx "github.com/people-agent/server/internal/core/error"
)

func TestFormatPassesFetchErrorsThrough(t *testing.T) {
	for _, kind := range model.AllResourceKinds {
		err := &model.ResourceError{Kind: kind, Err: errors.New("403 Forbidden")}
		got := Format(kind, model.Failed(kind, err))
		if !got.IsError() || got.Err != err.Error() {
			t.Errorf("%s: got %+v, want error text %q unchanged", kind, got, err.Error())
		}
	}
}

func TestFormatProfile(t *testing.T) {
	got := Format(model.KindProfile, model.Ok(model.KindProfile, map[string]any{
		"displayName":     "Jane",
		"mail":            "jane@example.com",
		"jobTitle":        "Engineer",
		"mailboxSettings": map[string]any{"timeZone": "Pacific Standard Time"},
	}))
	want := map[string]any{
		"name":     "Jane",
		"email":    "jane@example.com",
		"title":    "Engineer",
		"location": "Unknown",
		"timezone": "Pacific Standard Time",
	}
	if !reflect.DeepEqual(got.Data, want) {
		t.Errorf("got %#v, want %#v", got.Data, want)
	}

	got = Format(model.KindProfile, model.Ok(model.KindProfile, map[string]any{"displayName": "Jane"}))
	if tz := got.Data.(map[string]any)["timezone"]; tz != "Unknown" {
		t.Errorf("missing mailbox settings should give Unknown timezone, got %v", tz)
	}
}

func TestFormatManager(t *testing.T) {
	got := Format(model.KindManager, model.Ok(model.KindManager, map[string]any{
		"displayName": "John", "jobTitle": "Director", "mail": "john@example.com",
	}))
	want := map[string]any{"name": "John", "title": "Director", "email": "john@example.com", "location": "Unknown"}
	if !reflect.DeepEqual(got.Data, want) {
		t.Errorf("got %#v, want %#v", got.Data, want)
	}
}

func TestFormatDevicesDefaultsEveryMissingField(t *testing.T) {
	got := Format(model.KindDevices, model.Ok(model.KindDevices, map[string]any{"value": []any{
		map[string]any{},
		map[string]any{"displayName": "LAPTOP", "operatingSystem": "Windows", "complianceState": "compliant"},
	}}))
	devices, ok := got.Data.([]map[string]any)
	if !ok || len(devices) != 2 {
		t.Fatalf("unexpected devices value %#v", got.Data)
	}
	for _, field := range []string{"name", "type", "manufacturer", "model", "os", "status"} {
		if devices[0][field] != "Unknown" {
			t.Errorf("empty device: field %q = %v, want Unknown", field, devices[0][field])
		}
	}
	if devices[1]["name"] != "LAPTOP" || devices[1]["os"] != "Windows" || devices[1]["type"] != "Unknown" {
		t.Errorf("unexpected projection %#v", devices[1])
	}
}

func TestFormatCollectionsAreRaw(t *testing.T) {
	list := []any{map[string]any{"displayName": "Max", "extra": 1.0}}
	for _, kind := range []model.ResourceKind{model.KindReports, model.KindColleagues, model.KindDocuments} {
		got := Format(kind, model.Ok(kind, map[string]any{"value": list}))
		if !reflect.DeepEqual(got.Data, list) {
			t.Errorf("%s: got %#v, want raw list", kind, got.Data)
		}
	}

	got := Format(model.KindReports, model.Ok(model.KindReports, map[string]any{"value": []any{}}))
	if got.IsError() {
		t.Fatalf("empty reports must not be an error: %s", got.Err)
	}
	if l, ok := got.Data.([]any); !ok || len(l) != 0 {
		t.Errorf("empty reports should stay an empty list, got %#v", got.Data)
	}
}

func TestFormatAllUsers(t *testing.T) {
	got := Format(model.KindAllUsers, model.Ok(model.KindAllUsers, map[string]any{"value": []any{
		map[string]any{"displayName": "Jane", "userPrincipalName": "jane@contoso.com", "mail": "jane@example.com", "id": "x"},
	}}))
	want := []map[string]any{{
		"displayName":       "Jane",
		"userPrincipalName": "jane@contoso.com",
		"mail":              "jane@example.com",
		"jobTitle":          "",
	}}
	if !reflect.DeepEqual(got.Data, want) {
		t.Errorf("got %#v, want %#v", got.Data, want)
	}
}

func TestFormatProjectionFailureIsScopedToKind(t *testing.T) {
	got := Format(model.KindDevices, model.Ok(model.KindDevices, map[string]any{"value": "not a list"}))
	if !got.IsError() || !strings.HasPrefix(got.Err, "Error formatting devices data: ") {
		t.Errorf("got %+v", got)
	}

	got = Format(model.KindProfile, model.Ok(model.KindProfile, map[string]any{"mailboxSettings": "utc"}))
	if !got.IsError() || !strings.HasPrefix(got.Err, "Error formatting profile data: ") {
		t.Errorf("got %+v", got)
	}

	fe := &FormatError{Kind: model.KindDevices, Err: errors.New("x")}
	if !errors.Is(fe, errx.ErrFormatting) {
		t.Error("FormatError must match ErrFormatting")
	}
}

func TestBuildContextKeepsNamedSlots(t *testing.T) {
	results := []model.Result{
		model.Failed(model.KindDevices, &model.ResourceError{Kind: model.KindDevices, Err: errors.New("timeout")}),
		model.Ok(model.KindManager, map[string]any{"displayName": "John"}),
	}
	c := BuildContext(results)
	if len(c) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(c))
	}
	if !c[model.KindDevices].IsError() || c[model.KindManager].IsError() {
		t.Errorf("slots mixed up: %+v", c)
	}
}
