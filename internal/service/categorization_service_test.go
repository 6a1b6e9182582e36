package service

import (
	"context"
	"testing"

	"github.com/bankdesk/servicedesk/internal/domain"
	apperrors "github.com/bankdesk/servicedesk/pkg/util"
)

func TestSuggest(t *testing.T) {
	t.Run("creator records a suggestion once", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-plain")
		cl, err := f.categorization.Suggest(context.Background(), f.requester, ticket.ID, domain.RootCauseHumanError, domain.IssueCategoryRequest)
		if err != nil {
			t.Fatalf("Suggest: %v", err)
		}
		if cl.UserRootCause == nil || *cl.UserRootCause != domain.RootCauseHumanError {
			t.Fatalf("suggestion not recorded: %+v", cl)
		}
		_, err = f.categorization.Suggest(context.Background(), f.requester, ticket.ID, domain.RootCauseSystemError, domain.IssueCategoryProblem)
		if !apperrors.IsCode(err, apperrors.CodeConflict) {
			t.Fatalf("second suggestion err = %v, want CONFLICT", err)
		}
	})

	t.Run("only the creator may suggest", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-plain")
		_, err := f.categorization.Suggest(context.Background(), f.manager1, ticket.ID, domain.RootCauseHumanError, domain.IssueCategoryRequest)
		if !apperrors.IsCode(err, apperrors.CodeForbidden) {
			t.Fatalf("err = %v, want FORBIDDEN", err)
		}
	})
}

func TestConfirm(t *testing.T) {
	t.Run("matching confirmation without reason", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-plain")
		if _, err := f.categorization.Suggest(context.Background(), f.requester, ticket.ID, domain.RootCauseHumanError, domain.IssueCategoryRequest); err != nil {
			t.Fatalf("Suggest: %v", err)
		}
		cl, err := f.categorization.Confirm(context.Background(), f.tech, ticket.ID, domain.RootCauseHumanError, domain.IssueCategoryRequest, "")
		if err != nil {
			t.Fatalf("Confirm: %v", err)
		}
		if !cl.Confirmed() || cl.OverrideReason != nil {
			t.Fatalf("confirmation state wrong: %+v", cl)
		}
		if entries := f.db.auditByType(domain.ChangeTypeClassification); len(entries) != 1 {
			t.Fatalf("classification audit entries = %d, want 1", len(entries))
		}
	})

	t.Run("override requires and stores a reason", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-plain")
		if _, err := f.categorization.Suggest(context.Background(), f.requester, ticket.ID, domain.RootCauseHumanError, domain.IssueCategoryRequest); err != nil {
			t.Fatalf("Suggest: %v", err)
		}
		_, err := f.categorization.Confirm(context.Background(), f.tech, ticket.ID, domain.RootCauseSystemError, domain.IssueCategoryIncident, "")
		if !apperrors.IsCode(err, apperrors.CodeMissingOverrideReason) {
			t.Fatalf("err = %v, want MISSING_OVERRIDE_REASON", err)
		}
		cl, err := f.categorization.Confirm(context.Background(), f.tech, ticket.ID, domain.RootCauseSystemError, domain.IssueCategoryIncident, "core banking incident confirmed in logs")
		if err != nil {
			t.Fatalf("Confirm: %v", err)
		}
		stored, err := f.store.Classifications.GetByTicket(context.Background(), ticket.ID)
		if err != nil {
			t.Fatalf("GetByTicket: %v", err)
		}
		if stored.OverrideReason == nil || *stored.OverrideReason != *cl.OverrideReason {
			t.Fatalf("override reason must persist with the pair: %+v", stored)
		}
	})

	t.Run("requester may not confirm", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-plain")
		_, err := f.categorization.Confirm(context.Background(), f.requester, ticket.ID, domain.RootCauseHumanError, domain.IssueCategoryRequest, "r")
		if !apperrors.IsCode(err, apperrors.CodeForbidden) {
			t.Fatalf("err = %v, want FORBIDDEN", err)
		}
	})
}

func TestBulkConfirm(t *testing.T) {
	t.Run("partial success reports per ticket", func(t *testing.T) {
		f := newFixture()
		okTicket := f.createTicket(t, "cat-plain")
		lockedTicket := f.createTicket(t, "cat-plain")
		if _, err := f.categorization.Lock(context.Background(), f.admin, lockedTicket.ID, true, "audit freeze"); err != nil {
			t.Fatalf("Lock: %v", err)
		}

		result, err := f.categorization.BulkConfirm(context.Background(), f.tech,
			[]string{okTicket.ID, lockedTicket.ID, "missing-id"},
			domain.RootCauseNetworkFault, domain.IssueCategoryIncident, "link flaps traced to branch router")
		if err != nil {
			t.Fatalf("BulkConfirm: %v", err)
		}
		if result.ProcessedCount != 1 {
			t.Fatalf("processed = %d, want 1", result.ProcessedCount)
		}
		if len(result.Results) != 3 {
			t.Fatalf("results = %d, want 3", len(result.Results))
		}
		byID := map[string]BulkItemResult{}
		for _, item := range result.Results {
			byID[item.TicketID] = item
		}
		if byID[okTicket.ID].Code != "" {
			t.Fatalf("ok ticket reported error: %+v", byID[okTicket.ID])
		}
		if byID[lockedTicket.ID].Code != apperrors.CodeClassificationLocked {
			t.Fatalf("locked ticket code = %q, want CLASSIFICATION_LOCKED", byID[lockedTicket.ID].Code)
		}
		if byID["missing-id"].Code != apperrors.CodeNotFound {
			t.Fatalf("missing ticket code = %q, want NOT_FOUND", byID["missing-id"].Code)
		}
	})

	t.Run("invalid pair fails the whole batch", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-plain")
		_, err := f.categorization.BulkConfirm(context.Background(), f.tech,
			[]string{ticket.ID}, "BAD", domain.IssueCategoryIncident, "r")
		if !apperrors.IsCode(err, apperrors.CodeInvalidCategorizationValue) {
			t.Fatalf("err = %v, want INVALID_CATEGORIZATION_VALUE", err)
		}
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		f := newFixture()
		_, err := f.categorization.BulkConfirm(context.Background(), f.tech, nil,
			domain.RootCauseHumanError, domain.IssueCategoryRequest, "")
		if !apperrors.IsCode(err, apperrors.CodeValidationFailed) {
			t.Fatalf("err = %v, want VALIDATION_FAILED", err)
		}
	})
}

func TestLock(t *testing.T) {
	f := newFixture()
	ticket := f.createTicket(t, "cat-plain")

	if _, err := f.categorization.Lock(context.Background(), f.tech, ticket.ID, true, "r"); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("technician lock err = %v, want FORBIDDEN", err)
	}

	if _, err := f.categorization.Lock(context.Background(), f.admin, ticket.ID, true, "quarterly audit"); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	// frozen for technicians, still writable for admins
	_, err := f.categorization.Confirm(context.Background(), f.tech, ticket.ID, domain.RootCauseHumanError, domain.IssueCategoryRequest, "r")
	if !apperrors.IsCode(err, apperrors.CodeClassificationLocked) {
		t.Fatalf("err = %v, want CLASSIFICATION_LOCKED", err)
	}
	if _, err := f.categorization.Confirm(context.Background(), f.admin, ticket.ID, domain.RootCauseHumanError, domain.IssueCategoryRequest, "audit correction"); err != nil {
		t.Fatalf("admin confirm under lock: %v", err)
	}

	if _, err := f.categorization.Lock(context.Background(), f.admin, ticket.ID, false, ""); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	cl, err := f.categorization.Get(context.Background(), f.requester, ticket.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cl.Locked {
		t.Fatal("classification still locked after unlock")
	}
	if entries := f.db.auditByType(domain.ChangeTypeLock); len(entries) != 2 {
		t.Fatalf("lock audit entries = %d, want 2", len(entries))
	}
}
