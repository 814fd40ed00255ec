package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestToDomainError_PassesThroughWrapped(t *testing.T) {
	err := fmt.Errorf("loading request: %w", NewForbidden("staff only"))
	de := ToDomainError(err)
	if de.Code != CodeForbidden || de.HTTPStatus != http.StatusForbidden {
		t.Fatalf("expected forbidden, got %+v", de)
	}
}

func TestToDomainError_NoRowsIsNotFound(t *testing.T) {
	de := ToDomainError(fmt.Errorf("get: %w", pgx.ErrNoRows))
	if de.Code != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", de.Code)
	}
}

func TestToDomainError_UnknownIsInternal(t *testing.T) {
	cause := errors.New("boom")
	de := ToDomainError(cause)
	if de.Code != CodeInternal || !errors.Is(de, cause) {
		t.Fatalf("expected internal error wrapping cause, got %+v", de)
	}
}

func TestHasCode(t *testing.T) {
	if !HasCode(NewInvalidStatus("bad", nil), CodeInvalidStatus) {
		t.Fatalf("expected INVALID_STATUS code")
	}
	if HasCode(errors.New("plain"), CodeInvalidStatus) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestFromStatus(t *testing.T) {
	de := FromStatus(http.StatusNotFound, "Cannot GET /nope")
	if de.Code != CodeNotFound || de.HTTPStatus != http.StatusNotFound {
		t.Fatalf("unexpected %+v", de)
	}
}
