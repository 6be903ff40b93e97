package people

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/people-agent/server/internal/agent/auth"
	"github.com/people-agent/server/internal/agent/model"
	errx "github.com/people-agent/server/internal/core/error"
)

// Searcher finds users whose display name starts with a prefix.
type Searcher interface {
	SearchByName(ctx context.Context, token string, prefix string) ([]model.UserCandidate, error)
}

// AmbiguousIdentityError lists the users a name matched, in directory order.
// Choosing one is up to the caller.
type AmbiguousIdentityError struct {
	Input      string
	Candidates []model.UserCandidate
}

func (e *AmbiguousIdentityError) Error() string {
	return fmt.Sprintf("%q matches %d users", e.Input, len(e.Candidates))
}

func (e *AmbiguousIdentityError) Is(target error) bool { return target == errx.ErrAmbiguousIdentity }

// LooksResolved reports whether input can target lookups as is: an email
// address or a directory object id.
func LooksResolved(input string) bool {
	if strings.Contains(input, "@") {
		return true
	}
	_, err := uuid.Parse(input)
	return err == nil
}

// ResolveIdentity turns user input into a lookup identity. Emails and GUIDs
// pass through untouched; anything else is a display-name prefix search.
func ResolveIdentity(ctx context.Context, tokens auth.TokenSource, dir Searcher, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errx.New(errors.New("empty identity"), http.StatusBadRequest, "identity must not be empty")
	}
	if LooksResolved(input) {
		return input, nil
	}

	candidates, err := Search(ctx, tokens, dir, input)
	if err != nil {
		return "", err
	}
	switch len(candidates) {
	case 0:
		return "", errx.NotFound(input)
	case 1:
		return candidates[0].Identity(), nil
	default:
		return "", errx.New(&AmbiguousIdentityError{Input: input, Candidates: candidates},
			http.StatusMultipleChoices, "several users match that name")
	}
}

// Search runs a display-name prefix search with a fresh token.
func Search(ctx context.Context, tokens auth.TokenSource, dir Searcher, prefix string) ([]model.UserCandidate, error) {
	token, err := tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := dir.SearchByName(ctx, token.Value, prefix)
	if err != nil {
		return nil, fmt.Errorf("search users %q: %w", prefix, err)
	}
	return candidates, nil
}

// ListAllUsers returns the formatted directory listing without a session.
func ListAllUsers(ctx context.Context, tokens auth.TokenSource, dir Directory) (model.ContextValue, error) {
	token, err := tokens.GetToken(ctx)
	if err != nil {
		return model.ContextValue{}, err
	}
	return Format(model.KindAllUsers, dir.Fetch(ctx, token.Value, model.KindAllUsers, "")), nil
}
