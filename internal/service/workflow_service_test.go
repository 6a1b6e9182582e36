package service

import (
	"context"
	"sync"
	"testing"

	"github.com/bankdesk/servicedesk/internal/domain"
	"github.com/bankdesk/servicedesk/internal/repository"
	apperrors "github.com/bankdesk/servicedesk/pkg/util"
)

func strPtr(s string) *string { return &s }

type fixture struct {
	*testEnv
	requester *domain.Principal
	manager1  *domain.Principal
	manager2  *domain.Principal
	tech      *domain.Principal
	admin     *domain.Principal
	plainCat  *domain.ServiceCategory
	reviewCat *domain.ServiceCategory
	govCat    *domain.ServiceCategory
}

func newFixture() *fixture {
	env := newTestEnv()
	env.addBranch("branch-1", true)
	env.addBranch("branch-2", true)
	f := &fixture{testEnv: env}
	f.requester = env.addPrincipal(&domain.Principal{
		ID: "req-1", Role: domain.RoleRequester, BranchID: strPtr("branch-1"), Active: true,
	})
	f.manager1 = env.addPrincipal(&domain.Principal{
		ID: "mgr-1", Role: domain.RoleManager, BranchID: strPtr("branch-1"),
		IsAuthorizedReviewer: true, Active: true,
	})
	f.manager2 = env.addPrincipal(&domain.Principal{
		ID: "mgr-2", Role: domain.RoleManager, BranchID: strPtr("branch-2"),
		IsAuthorizedReviewer: true, Active: true,
	})
	f.tech = env.addPrincipal(&domain.Principal{
		ID: "tech-1", Role: domain.RoleTechnician, DepartmentID: strPtr("dep-1"),
		IsAvailable: true, WorkloadCapacity: 10, Active: true,
	})
	f.admin = env.addPrincipal(&domain.Principal{
		ID: "adm-1", Role: domain.RoleAdmin, Active: true,
	})
	f.plainCat = env.addCategory(&domain.ServiceCategory{
		ID: "cat-plain", Name: "Password reset", DepartmentID: "dep-1", IsActive: true,
	})
	f.reviewCat = env.addCategory(&domain.ServiceCategory{
		ID: "cat-review", Name: "Access grant", DepartmentID: "dep-1",
		RequiresApproval: true, IsActive: true,
	})
	f.govCat = env.addCategory(&domain.ServiceCategory{
		ID: "cat-gov", Name: "Treasury system access", DepartmentID: "dep-1",
		IsGovernmentService: true, IsActive: true,
	})
	return f
}

func (f *fixture) createTicket(t *testing.T, categoryID string) *domain.Ticket {
	t.Helper()
	ticket, err := f.workflow.CreateTicket(context.Background(), f.requester, TicketCreateInput{
		Title:             "printer down",
		Description:       "branch printer offline since morning",
		ServiceCategoryID: categoryID,
		BranchID:          "branch-1",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	return ticket
}

func TestCreateTicket(t *testing.T) {
	t.Run("plain category opens directly", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-plain")
		if ticket.Status != domain.TicketStatusOpen {
			t.Fatalf("status = %s, want OPEN", ticket.Status)
		}
		if ticket.RequiresComplianceApproval {
			t.Fatal("plain ticket must not require compliance")
		}
		if _, err := f.store.Compliance.GetByTicket(context.Background(), ticket.ID); err == nil {
			t.Fatal("plain ticket must not have a compliance record")
		}
		if _, err := f.store.Classifications.GetByTicket(context.Background(), ticket.ID); err != nil {
			t.Fatalf("classification row missing: %v", err)
		}
	})

	t.Run("government category starts pending with compliance record", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-gov")
		if ticket.Status != domain.TicketStatusPendingApproval {
			t.Fatalf("status = %s, want PENDING_APPROVAL", ticket.Status)
		}
		if !ticket.RequiresComplianceApproval || !ticket.IsGovernmentTicket {
			t.Fatalf("compliance flags not derived: %+v", ticket)
		}
		approval, err := f.store.Compliance.GetByTicket(context.Background(), ticket.ID)
		if err != nil {
			t.Fatalf("compliance record missing: %v", err)
		}
		if approval.Status != domain.ComplianceStatusPending {
			t.Fatalf("compliance status = %s, want PENDING", approval.Status)
		}
		if approval.ReviewerID == nil || *approval.ReviewerID != "mgr-1" {
			t.Fatalf("reviewer = %v, want same-branch authorized manager", approval.ReviewerID)
		}
	})

	t.Run("requester cannot file against another branch", func(t *testing.T) {
		f := newFixture()
		_, err := f.workflow.CreateTicket(context.Background(), f.requester, TicketCreateInput{
			Title: "t", Description: "d", ServiceCategoryID: "cat-plain", BranchID: "branch-2",
		})
		if !apperrors.IsCode(err, apperrors.CodeForbidden) {
			t.Fatalf("err = %v, want FORBIDDEN", err)
		}
	})

	t.Run("inactive branch rejected", func(t *testing.T) {
		f := newFixture()
		f.addBranch("branch-3", false)
		admin := f.admin
		_, err := f.workflow.CreateTicket(context.Background(), admin, TicketCreateInput{
			Title: "t", Description: "d", ServiceCategoryID: "cat-plain", BranchID: "branch-3",
		})
		if !apperrors.IsCode(err, apperrors.CodeConflict) {
			t.Fatalf("err = %v, want CONFLICT", err)
		}
	})

	t.Run("half a suggestion is invalid", func(t *testing.T) {
		f := newFixture()
		rc := domain.RootCauseHumanError
		_, err := f.workflow.CreateTicket(context.Background(), f.requester, TicketCreateInput{
			Title: "t", Description: "d", ServiceCategoryID: "cat-plain", BranchID: "branch-1",
			UserRootCause: &rc,
		})
		if !apperrors.IsCode(err, apperrors.CodeValidationFailed) {
			t.Fatalf("err = %v, want VALIDATION_FAILED", err)
		}
	})

	t.Run("unknown suggestion value rejected at the gate", func(t *testing.T) {
		f := newFixture()
		rc := domain.RootCause("GHOSTS")
		ic := domain.IssueCategoryRequest
		_, err := f.workflow.CreateTicket(context.Background(), f.requester, TicketCreateInput{
			Title: "t", Description: "d", ServiceCategoryID: "cat-plain", BranchID: "branch-1",
			UserRootCause: &rc, UserIssueCategory: &ic,
		})
		if !apperrors.IsCode(err, apperrors.CodeInvalidCategorizationValue) {
			t.Fatalf("err = %v, want INVALID_CATEGORIZATION_VALUE", err)
		}
	})
}

func TestApprove(t *testing.T) {
	t.Run("same branch reviewer approves", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-gov")
		approved, err := f.workflow.Approve(context.Background(), f.manager1, ticket.ID, "documents checked")
		if err != nil {
			t.Fatalf("Approve: %v", err)
		}
		if approved.Status != domain.TicketStatusApproved {
			t.Fatalf("status = %s, want APPROVED", approved.Status)
		}
		compliance, err := f.store.Compliance.GetByTicket(context.Background(), ticket.ID)
		if err != nil {
			t.Fatalf("compliance: %v", err)
		}
		if compliance.Status != domain.ComplianceStatusApproved || !compliance.DocumentsVerified {
			t.Fatalf("compliance not decided: %+v", compliance)
		}
		if entries := f.db.auditByType(domain.ChangeTypeApproval); len(entries) != 1 {
			t.Fatalf("approval audit entries = %d, want 1", len(entries))
		}
	})

	t.Run("cross branch reviewer denied", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-review")
		_, err := f.workflow.Approve(context.Background(), f.manager2, ticket.ID, "")
		if !apperrors.IsCode(err, apperrors.CodeUnauthorized) {
			t.Fatalf("err = %v, want UNAUTHORIZED", err)
		}
		reloaded, _ := f.store.Tickets.GetByID(context.Background(), ticket.ID)
		if reloaded.Status != domain.TicketStatusPendingApproval {
			t.Fatalf("denied approval must not move the ticket, status = %s", reloaded.Status)
		}
	})

	t.Run("technician denied", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-review")
		_, err := f.workflow.Approve(context.Background(), f.tech, ticket.ID, "")
		if !apperrors.IsCode(err, apperrors.CodeUnauthorized) {
			t.Fatalf("err = %v, want UNAUTHORIZED", err)
		}
	})

	t.Run("second decision is already processed", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-gov")
		if _, err := f.workflow.Approve(context.Background(), f.manager1, ticket.ID, ""); err != nil {
			t.Fatalf("first approve: %v", err)
		}
		_, err := f.workflow.Reject(context.Background(), f.manager1, ticket.ID, "")
		if !apperrors.IsCode(err, apperrors.CodeAlreadyProcessed) {
			t.Fatalf("err = %v, want ALREADY_PROCESSED", err)
		}
	})

	t.Run("reject moves to terminal rejected", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-review")
		rejected, err := f.workflow.Reject(context.Background(), f.manager1, ticket.ID, "not justified")
		if err != nil {
			t.Fatalf("Reject: %v", err)
		}
		if rejected.Status != domain.TicketStatusRejected {
			t.Fatalf("status = %s, want REJECTED", rejected.Status)
		}
	})

	t.Run("admin approves any branch", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-review")
		approved, err := f.workflow.Approve(context.Background(), f.admin, ticket.ID, "override")
		if err != nil {
			t.Fatalf("Approve: %v", err)
		}
		if approved.Status != domain.TicketStatusApproved {
			t.Fatalf("status = %s, want APPROVED", approved.Status)
		}
	})
}

// Two concurrent decisions on the same pending ticket: exactly one wins, the
// other observes ALREADY_PROCESSED, and the stored record is decided once.
func TestApproveConcurrent(t *testing.T) {
	f := newFixture()
	ticket := f.createTicket(t, "cat-gov")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = f.workflow.Approve(context.Background(), f.manager1, ticket.ID, "first")
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.workflow.Reject(context.Background(), f.admin, ticket.ID, "second")
	}()
	wg.Wait()

	var wins, processed int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperrors.IsCode(err, apperrors.CodeAlreadyProcessed):
			processed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || processed != 1 {
		t.Fatalf("wins = %d, already processed = %d; want exactly one of each (errs: %v)", wins, processed, errs)
	}
	compliance, err := f.store.Compliance.GetByTicket(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}
	if compliance.Status == domain.ComplianceStatusPending {
		t.Fatal("compliance record left pending after a decision")
	}
	reloaded, _ := f.store.Tickets.GetByID(context.Background(), ticket.ID)
	if reloaded.Status != domain.TicketStatusApproved && reloaded.Status != domain.TicketStatusRejected {
		t.Fatalf("ticket status = %s, want a decided state", reloaded.Status)
	}
}

func TestOverrideComplianceDecision(t *testing.T) {
	t.Run("admin rewrites a decided record with an audit entry", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-gov")
		if _, err := f.workflow.Approve(context.Background(), f.manager1, ticket.ID, "looks fine"); err != nil {
			t.Fatalf("Approve: %v", err)
		}

		overridden, err := f.workflow.OverrideComplianceDecision(context.Background(), f.admin, ticket.ID, false, "documents were forged")
		if err != nil {
			t.Fatalf("OverrideComplianceDecision: %v", err)
		}
		if overridden.Status != domain.ComplianceStatusRejected {
			t.Fatalf("status = %s, want REJECTED", overridden.Status)
		}
		if overridden.DecidedByID == nil || *overridden.DecidedByID != "adm-1" {
			t.Fatalf("decided by = %v, want the admin", overridden.DecidedByID)
		}

		stored, err := f.store.Compliance.GetByTicket(context.Background(), ticket.ID)
		if err != nil {
			t.Fatalf("compliance: %v", err)
		}
		if stored.Status != domain.ComplianceStatusRejected || stored.Comments != "documents were forged" {
			t.Fatalf("override not persisted: %+v", stored)
		}

		entries := f.db.auditByType(domain.ChangeTypeCompliance)
		if len(entries) != 1 {
			t.Fatalf("compliance audit entries = %d, want 1", len(entries))
		}
		if entries[0].NewValue["override"] != true {
			t.Fatalf("audit entry not marked as override: %+v", entries[0].NewValue)
		}
	})

	t.Run("manager cannot override", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-gov")
		if _, err := f.workflow.Approve(context.Background(), f.manager1, ticket.ID, ""); err != nil {
			t.Fatalf("Approve: %v", err)
		}
		_, err := f.workflow.OverrideComplianceDecision(context.Background(), f.manager1, ticket.ID, false, "")
		if !apperrors.IsCode(err, apperrors.CodeForbidden) {
			t.Fatalf("err = %v, want FORBIDDEN", err)
		}
		stored, _ := f.store.Compliance.GetByTicket(context.Background(), ticket.ID)
		if stored.Status != domain.ComplianceStatusApproved {
			t.Fatalf("denied override must not mutate, status = %s", stored.Status)
		}
	})

	t.Run("pending record is not overridable", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-gov")
		_, err := f.workflow.OverrideComplianceDecision(context.Background(), f.admin, ticket.ID, true, "")
		if !apperrors.IsCode(err, apperrors.CodeConflict) {
			t.Fatalf("err = %v, want CONFLICT", err)
		}
	})

	t.Run("ticket without a compliance record", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-plain")
		_, err := f.workflow.OverrideComplianceDecision(context.Background(), f.admin, ticket.ID, true, "")
		if !apperrors.IsCode(err, apperrors.CodeNotFound) {
			t.Fatalf("err = %v, want NOT_FOUND", err)
		}
	})
}

func TestTransitionStatus(t *testing.T) {
	t.Run("approval targets rerouted to decision operations", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-review")
		_, err := f.workflow.TransitionStatus(context.Background(), f.manager1, ticket.ID, domain.TicketStatusApproved, "")
		if !apperrors.IsCode(err, apperrors.CodeForbidden) {
			t.Fatalf("err = %v, want FORBIDDEN", err)
		}
	})

	t.Run("assignee walks the lifecycle to closed", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-plain")
		result, err := f.assignments.Assign(context.Background(), f.admin, ticket.ID, "tech-1")
		if err != nil || !result.Assigned {
			t.Fatalf("Assign: %v (%+v)", err, result)
		}
		ctx := context.Background()
		for _, target := range []domain.TicketStatus{
			domain.TicketStatusInProgress,
			domain.TicketStatusPending,
			domain.TicketStatusInProgress,
			domain.TicketStatusResolved,
			domain.TicketStatusClosed,
		} {
			if _, err := f.workflow.TransitionStatus(ctx, f.tech, ticket.ID, target, ""); err != nil {
				t.Fatalf("transition to %s: %v", target, err)
			}
		}
		reloaded, _ := f.store.Tickets.GetByID(ctx, ticket.ID)
		if reloaded.Status != domain.TicketStatusClosed || reloaded.ClosedAt == nil {
			t.Fatalf("close incomplete: status=%s closedAt=%v", reloaded.Status, reloaded.ClosedAt)
		}
	})

	t.Run("illegal edge rejected", func(t *testing.T) {
		f := newFixture()
		ticket := f.createTicket(t, "cat-plain")
		_, err := f.workflow.TransitionStatus(context.Background(), f.tech, ticket.ID, domain.TicketStatusResolved, "")
		if !apperrors.IsCode(err, apperrors.CodeInvalidTransition) {
			t.Fatalf("err = %v, want INVALID_TRANSITION", err)
		}
	})
}

func TestListTicketsBranchIsolation(t *testing.T) {
	f := newFixture()
	mine := f.createTicket(t, "cat-plain")

	otherRequester := f.addPrincipal(&domain.Principal{
		ID: "req-2", Role: domain.RoleRequester, BranchID: strPtr("branch-2"), Active: true,
	})
	theirs, err := f.workflow.CreateTicket(context.Background(), otherRequester, TicketCreateInput{
		Title: "atm jam", Description: "note jam in ATM 2", ServiceCategoryID: "cat-plain", BranchID: "branch-2",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	ctx := context.Background()

	got, err := f.workflow.ListTickets(ctx, f.requester, repository.TicketFilter{})
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(got) != 1 || got[0].ID != mine.ID {
		t.Fatalf("requester sees %d tickets, want only their own", len(got))
	}

	got, err = f.workflow.ListTickets(ctx, f.manager2, repository.TicketFilter{})
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(got) != 1 || got[0].ID != theirs.ID {
		t.Fatalf("branch manager sees %d tickets, want only their branch", len(got))
	}

	got, err = f.workflow.ListTickets(ctx, f.admin, repository.TicketFilter{})
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("admin sees %d tickets, want 2", len(got))
	}

	if _, err := f.workflow.GetTicket(ctx, f.manager2, mine.ID); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("cross-branch get err = %v, want FORBIDDEN", err)
	}
}

func TestAuditTrail(t *testing.T) {
	f := newFixture()
	ticket := f.createTicket(t, "cat-gov")
	if _, err := f.workflow.Approve(context.Background(), f.manager1, ticket.ID, "ok"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	entries, err := f.workflow.AuditTrail(context.Background(), f.manager1, ticket.ID, 10, 0)
	if err != nil {
		t.Fatalf("AuditTrail: %v", err)
	}
	if len(entries) != 1 || entries[0].ChangeType != domain.ChangeTypeApproval {
		t.Fatalf("entries = %+v, want one approval entry", entries)
	}
	if _, err := f.workflow.AuditTrail(context.Background(), f.manager2, ticket.ID, 10, 0); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("cross-branch audit err = %v, want FORBIDDEN", err)
	}
}
