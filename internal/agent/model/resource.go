package model

import (
	"encoding/json"
	"fmt"
	"strings"

	errx "github.com/people-agent/server/internal/core/error"
)

// ResourceKind is one category of directory data.
type ResourceKind string

const (
	KindProfile    ResourceKind = "profile"
	KindManager    ResourceKind = "manager"
	KindReports    ResourceKind = "reports"
	KindDevices    ResourceKind = "devices"
	KindColleagues ResourceKind = "colleagues"
	KindDocuments  ResourceKind = "documents"
	KindAllUsers   ResourceKind = "all_users"
)

// AllResourceKinds lists every fetchable kind in context order.
var AllResourceKinds = []ResourceKind{
	KindProfile,
	KindManager,
	KindReports,
	KindDevices,
	KindColleagues,
	KindDocuments,
	KindAllUsers,
}

// ParseResourceKind maps a classifier token onto a kind. The classifier may
// spell all_users with a space or a dash.
func ParseResourceKind(s string) (ResourceKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	for _, k := range AllResourceKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Result is the outcome of one resource fetch: either Data or Err, never both.
type Result struct {
	Kind ResourceKind
	Data map[string]any
	Err  error
}

func Ok(kind ResourceKind, data map[string]any) Result {
	return Result{Kind: kind, Data: data}
}

func Failed(kind ResourceKind, err error) Result {
	return Result{Kind: kind, Err: err}
}

// ResourceError is a failed fetch of one kind. It reads the way the answer
// model sees it: "Error getting manager: ...".
type ResourceError struct {
	Kind ResourceKind
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("Error getting %s: %v", e.Kind, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

func (e *ResourceError) Is(target error) bool { return target == errx.ErrResourceFetch }

// ContextValue is the normalized value for one kind, or the error text that
// replaced it.
type ContextValue struct {
	Data any
	Err  string
}

func (v ContextValue) IsError() bool { return v.Err != "" }

// MarshalJSON renders the error text in place of data so the answer model
// sees a descriptive string for a failed kind.
func (v ContextValue) MarshalJSON() ([]byte, error) {
	if v.IsError() {
		return json.Marshal(v.Err)
	}
	return json.Marshal(v.Data)
}

// Context maps each fetched kind to its normalized value.
type Context map[ResourceKind]ContextValue

// Canonical serializes the context with sorted keys at every level so equal
// contexts always produce equal bytes.
func (c Context) Canonical() ([]byte, error) {
	return json.Marshal(c)
}

// UserCandidate is one match of a display-name search.
type UserCandidate struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	JobTitle          string `json:"jobTitle"`
}

// Identity returns the address used to target lookups for this candidate.
func (u UserCandidate) Identity() string {
	if u.Mail != "" {
		return u.Mail
	}
	if u.UserPrincipalName != "" {
		return u.UserPrincipalName
	}
	return u.ID
}
