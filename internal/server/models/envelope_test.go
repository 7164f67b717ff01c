package models

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/signvault/internal/common"
)

var allStatuses = []Status{
	StatusDraft, StatusSent, StatusViewed, StatusSigned, StatusCompleted, StatusVoided,
}

var allowed = map[Status][]Status{
	StatusDraft:  {StatusSent, StatusVoided},
	StatusSent:   {StatusViewed, StatusSigned, StatusVoided},
	StatusViewed: {StatusSigned, StatusVoided},
	StatusSigned: {StatusCompleted, StatusVoided},
}

func contains(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestCanTransition_MatchesTable(t *testing.T) {
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := contains(allowed[from], to)
			if got := CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCanTransition_RejectsUnknownStatus(t *testing.T) {
	if CanTransition(Status("bogus"), StatusSent) {
		t.Fatal("unknown source status must not transition anywhere")
	}
	if CanTransition(StatusDraft, Status("bogus")) {
		t.Fatal("unknown target status must be rejected")
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range allStatuses {
		wantTerminal := s == StatusCompleted || s == StatusVoided
		if got := s.Terminal(); got != wantTerminal {
			t.Fatalf("%s.Terminal() = %v, want %v", s, got, wantTerminal)
		}
	}
}

func TestEnvelope_Transition_IllegalMoveLeavesStatusUnchanged(t *testing.T) {
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			if to == from || contains(allowed[from], to) {
				continue
			}
			e := &Envelope{Status: from}
			err := e.Transition(to)
			if !errors.Is(err, common.ErrInvalidTransition) {
				t.Fatalf("Transition(%s -> %s): want ErrInvalidTransition, got %v", from, to, err)
			}
			if e.Status != from {
				t.Fatalf("Transition(%s -> %s): status mutated to %s on failure", from, to, e.Status)
			}
		}
	}
}

func TestEnvelope_Transition_SameStatusIsNoOp(t *testing.T) {
	for _, s := range allStatuses {
		e := &Envelope{Status: s}
		if err := e.Transition(s); err != nil {
			t.Fatalf("Transition(%s -> %s): no-op must not fail, got %v", s, s, err)
		}
	}
}

func TestEnvelope_Transition_LegalMoveMutates(t *testing.T) {
	e := &Envelope{Status: StatusDraft}
	if err := e.Transition(StatusSent); err != nil {
		t.Fatalf("draft -> sent should be legal: %v", err)
	}
	if e.Status != StatusSent {
		t.Fatalf("status = %s, want %s", e.Status, StatusSent)
	}
}

func TestEnsureExpiration_FirstCallWins(t *testing.T) {
	e := &Envelope{}
	e.EnsureExpiration(DefaultEnvelopeTTL)
	if e.ExpiresAt == nil {
		t.Fatal("ExpiresAt must be set on first call")
	}
	first := *e.ExpiresAt

	e.EnsureExpiration(time.Minute)
	if !e.ExpiresAt.Equal(first) {
		t.Fatalf("ExpiresAt changed on second call: %v -> %v", first, *e.ExpiresAt)
	}
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range allStatuses {
		if !s.Valid() {
			t.Fatalf("%s should be valid", s)
		}
	}
	if Status("archived").Valid() {
		t.Fatal("unknown status must be invalid")
	}
}
