package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestAuthErrorMatchesSentinel(t *testing.T) {
	err := Auth("invalid_client", "bad secret", errors.New("401"))

	if !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("expected errors.Is(err, ErrAuthFailure)")
	}
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError in chain")
	}
	if ae.Code != "invalid_client" || ae.Description != "bad secret" {
		t.Errorf("unexpected auth error fields: %+v", ae)
	}
	if StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", StatusOf(err))
	}
}

func TestComposerAndClassificationKeepCause(t *testing.T) {
	cause := errors.New("model down")
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"composer", Composer(cause), ErrComposer},
		{"classification", Classification(cause), ErrClassification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("missing sentinel")
			}
			if !errors.Is(tt.err, cause) {
				t.Errorf("missing cause")
			}
			if PublicMessage(tt.err) != TryAgainMessage {
				t.Errorf("expected try again message, got %q", PublicMessage(tt.err))
			}
		})
	}
}

func TestWrapRedis(t *testing.T) {
	if WrapRedis(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	if got := StatusOf(WrapRedis(redis.Nil)); got != http.StatusNotFound {
		t.Errorf("redis.Nil: expected 404, got %d", got)
	}
	if got := StatusOf(WrapRedis(fmt.Errorf("conn refused"))); got != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", got)
	}
}

func TestStatusOfPlainError(t *testing.T) {
	if StatusOf(errors.New("x")) != http.StatusInternalServerError {
		t.Errorf("plain errors map to 500")
	}
	if PublicMessage(errors.New("secret detail")) != SystemErrorMessage {
		t.Errorf("plain errors must not leak their text")
	}
}
