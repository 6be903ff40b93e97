package people

import (
	"fmt"

	"github.com/people-agent/server/internal/agent/model"
	errx "github.com/people-agent/server/internal/core/error"
)

const unknown = "Unknown"

// FormatError is a projection failure for one kind.
type FormatError struct {
	Kind model.ResourceKind
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("Error formatting %s data: %v", e.Kind, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == errx.ErrFormatting }

// Format normalizes one fetch result into the value the answer model sees.
// A failed fetch passes through as its error text; a projection failure
// becomes a FormatError text scoped to kind. It never panics.
func Format(kind model.ResourceKind, r model.Result) (v model.ContextValue) {
	if r.Err != nil {
		return model.ContextValue{Err: r.Err.Error()}
	}

	defer func() {
		if p := recover(); p != nil {
			v = model.ContextValue{Err: (&FormatError{Kind: kind, Err: fmt.Errorf("%v", p)}).Error()}
		}
	}()

	data, err := project(kind, r.Data)
	if err != nil {
		return model.ContextValue{Err: (&FormatError{Kind: kind, Err: err}).Error()}
	}
	return model.ContextValue{Data: data}
}

func project(kind model.ResourceKind, raw map[string]any) (any, error) {
	switch kind {
	case model.KindProfile:
		settings, err := object(raw, "mailboxSettings")
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"name":     raw["displayName"],
			"email":    raw["mail"],
			"title":    raw["jobTitle"],
			"location": getOr(raw, "officeLocation", unknown),
			"timezone": getOr(settings, "timeZone", unknown),
		}, nil

	case model.KindManager:
		return map[string]any{
			"name":     raw["displayName"],
			"title":    raw["jobTitle"],
			"email":    raw["mail"],
			"location": getOr(raw, "officeLocation", unknown),
		}, nil

	case model.KindDevices:
		entries, err := values(raw)
		if err != nil {
			return nil, err
		}
		devices := make([]map[string]any, 0, len(entries))
		for i, e := range entries {
			d, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("device %d is %T, not an object", i, e)
			}
			devices = append(devices, map[string]any{
				"name":         getOr(d, "displayName", unknown),
				"type":         getOr(d, "deviceType", unknown),
				"manufacturer": getOr(d, "manufacturer", unknown),
				"model":        getOr(d, "model", unknown),
				"os":           getOr(d, "operatingSystem", unknown),
				"status":       getOr(d, "complianceState", unknown),
			})
		}
		return devices, nil

	case model.KindReports, model.KindColleagues, model.KindDocuments:
		return values(raw)

	case model.KindAllUsers:
		entries, err := values(raw)
		if err != nil {
			return nil, err
		}
		users := make([]map[string]any, 0, len(entries))
		for i, e := range entries {
			u, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("user %d is %T, not an object", i, e)
			}
			users = append(users, map[string]any{
				"displayName":       u["displayName"],
				"userPrincipalName": u["userPrincipalName"],
				"mail":              u["mail"],
				"jobTitle":          getOr(u, "jobTitle", ""),
			})
		}
		return users, nil
	}
	return nil, fmt.Errorf("unknown resource kind %q", kind)
}

// getOr defaults only a missing field; an explicit null stays null.
func getOr(m map[string]any, key string, def any) any {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

// values returns the "value" collection, empty when absent.
func values(raw map[string]any) ([]any, error) {
	v, ok := raw["value"]
	if !ok {
		return []any{}, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf(`"value" is %T, not a list`, v)
	}
	return list, nil
}

// object returns a nested object, empty when absent.
func object(raw map[string]any, key string) (map[string]any, error) {
	v, ok := raw[key]
	if !ok {
		return map[string]any{}, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%q is %T, not an object", key, v)
	}
	return obj, nil
}

// BuildContext formats every result into its named slot. Completion order
// of the fetches has no influence on the outcome.
func BuildContext(results []model.Result) model.Context {
	c := make(model.Context, len(results))
	for _, r := range results {
		c[r.Kind] = Format(r.Kind, r)
	}
	return c
}
