package session

import (
	"context"
	"errors"

	"github.com/DoyleJ11/ti4-draft-backend/internal/engine"
	"github.com/DoyleJ11/ti4-draft-backend/internal/store"
)

var (
	ErrClosed          = errors.New("session closed")
	ErrVersionConflict = errors.New("version conflict")
	ErrDraftMismatch   = errors.New("proposal is for a different draft")
	ErrRewriteDenied   = errors.New("only an admin may rewrite history")
	ErrAdminDenied     = errors.New("admin secret rejected")
	ErrNotJoined       = errors.New("not joined to a draft")
)

var codes = []struct {
	err  error
	code string
}{
	{engine.ErrWrongTurn, "WRONG_TURN"},
	{engine.ErrWrongPhase, "WRONG_PHASE"},
	{engine.ErrIllegalSelection, "ILLEGAL_SELECTION"},
	{engine.ErrValueClaimed, "VALUE_CLAIMED"},
	{engine.ErrUnknownValue, "UNKNOWN_VALUE"},
	{engine.ErrUnknownSelection, "UNKNOWN_SELECTION"},
	{engine.ErrUnknownPlayer, "UNKNOWN_PLAYER"},
	{engine.ErrUnsupportedCommand, "UNSUPPORTED_COMMAND"},
	{engine.ErrDraftFinished, "DRAFT_FINISHED"},
	{engine.ErrEmptyLog, "EMPTY_LOG"},
	{engine.ErrStagingInProgress, "STAGING_IN_PROGRESS"},
	{engine.ErrNotStaged, "NOT_STAGED"},
	{engine.ErrPhaseAdvanced, "PHASE_ADVANCED"},
	{engine.ErrStaleClient, "STALE_CLIENT"},
	{engine.ErrAdminRequired, "ADMIN_REQUIRED"},
	{engine.ErrNoFallbackValue, "NO_FALLBACK_VALUE"},
	{engine.ErrMissingForcedValue, "MISSING_FORCED_VALUE"},
	{engine.ErrIncompleteBlock, "INCOMPLETE_BLOCK"},
	{engine.ErrInvalidSetup, "INVALID_SETUP"},
	{ErrClosed, "SESSION_CLOSED"},
	{ErrVersionConflict, "VERSION_CONFLICT"},
	{ErrDraftMismatch, "DRAFT_MISMATCH"},
	{ErrRewriteDenied, "REWRITE_DENIED"},
	{ErrAdminDenied, "ADMIN_DENIED"},
	{ErrNotJoined, "NOT_JOINED"},
	{store.ErrNotFound, "NOT_FOUND"},
	{context.DeadlineExceeded, "TIMEOUT"},
}

// Code maps an error to the stable code sent to clients.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "INTERNAL"
}
