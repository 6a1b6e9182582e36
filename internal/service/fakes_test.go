package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/bankdesk/servicedesk/internal/domain"
	"github.com/bankdesk/servicedesk/internal/repository"
)

// memDB backs the fake repositories. The conditional writes take the mutex
// for check and write together, mirroring the SQL conditional UPDATEs.
type memDB struct {
	mu              sync.Mutex
	seq             int
	branches        map[string]*domain.Branch
	principals      map[string]*domain.Principal
	categories      map[string]*domain.ServiceCategory
	tickets         map[string]*domain.Ticket
	compliance      map[string]*domain.ComplianceApproval
	classifications map[string]*domain.Classification
	audit           []domain.AuditEntry
}

func newMemDB() *memDB {
	return &memDB{
		branches:        map[string]*domain.Branch{},
		principals:      map[string]*domain.Principal{},
		categories:      map[string]*domain.ServiceCategory{},
		tickets:         map[string]*domain.Ticket{},
		compliance:      map[string]*domain.ComplianceApproval{},
		classifications: map[string]*domain.Classification{},
	}
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *memDB) store() *repository.Store {
	return &repository.Store{
		Branches:        &fakeBranchRepo{db: db},
		Principals:      &fakePrincipalRepo{db: db},
		Tickets:         &fakeTicketRepo{db: db},
		Categories:      &fakeCategoryRepo{db: db},
		Compliance:      &fakeComplianceRepo{db: db},
		Classifications: &fakeClassificationRepo{db: db},
		Audit:           &fakeAuditRepo{db: db},
	}
}

// fakeUnitOfWork runs the function over the same fake store. Atomicity is
// approximated by the conditional writes, which is what the engine relies on.
type fakeUnitOfWork struct {
	store *repository.Store
}

func (u *fakeUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, s *repository.Store) error) error {
	return fn(ctx, u.store)
}

type fakeBranchRepo struct{ db *memDB }

func (r *fakeBranchRepo) Create(_ context.Context, branch *domain.Branch) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if branch.ID == "" {
		branch.ID = r.db.nextID("branch")
	}
	cp := *branch
	r.db.branches[branch.ID] = &cp
	return nil
}

func (r *fakeBranchRepo) Update(_ context.Context, branch *domain.Branch) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.branches[branch.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *branch
	r.db.branches[branch.ID] = &cp
	return nil
}

func (r *fakeBranchRepo) GetByID(_ context.Context, id string) (*domain.Branch, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	branch, ok := r.db.branches[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *branch
	return &cp, nil
}

func (r *fakeBranchRepo) GetByCode(_ context.Context, code string) (*domain.Branch, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, branch := range r.db.branches {
		if branch.Code == code {
			cp := *branch
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeBranchRepo) ListActive(_ context.Context) ([]domain.Branch, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]domain.Branch, 0)
	for _, branch := range r.db.branches {
		if branch.IsActive {
			out = append(out, *branch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakePrincipalRepo struct{ db *memDB }

func (r *fakePrincipalRepo) Create(_ context.Context, principal *domain.Principal) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if principal.ID == "" {
		principal.ID = r.db.nextID("principal")
	}
	cp := *principal
	r.db.principals[principal.ID] = &cp
	return nil
}

func (r *fakePrincipalRepo) Update(_ context.Context, principal *domain.Principal) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.principals[principal.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *principal
	r.db.principals[principal.ID] = &cp
	return nil
}

func (r *fakePrincipalRepo) GetByID(_ context.Context, id string) (*domain.Principal, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	principal, ok := r.db.principals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *principal
	return &cp, nil
}

func (r *fakePrincipalRepo) GetByEmail(_ context.Context, email string) (*domain.Principal, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, principal := range r.db.principals {
		if strings.EqualFold(principal.Email, email) {
			cp := *principal
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakePrincipalRepo) List(_ context.Context, filter repository.PrincipalFilter) ([]domain.Principal, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]domain.Principal, 0)
	for _, p := range r.db.principals {
		if filter.Role != nil && p.Role != *filter.Role {
			continue
		}
		if filter.BranchID != nil && (p.BranchID == nil || *p.BranchID != *filter.BranchID) {
			continue
		}
		if filter.DepartmentID != nil && (p.DepartmentID == nil || *p.DepartmentID != *filter.DepartmentID) {
			continue
		}
		if filter.AuthorizedReviewer != nil && p.IsAuthorizedReviewer != *filter.AuthorizedReviewer {
			continue
		}
		if filter.Available != nil && p.IsAvailable != *filter.Available {
			continue
		}
		if filter.Active != nil && p.Active != *filter.Active {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

type fakeCategoryRepo struct{ db *memDB }

func (r *fakeCategoryRepo) Create(_ context.Context, category *domain.ServiceCategory) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if category.ID == "" {
		category.ID = r.db.nextID("cat")
	}
	cp := *category
	r.db.categories[category.ID] = &cp
	return nil
}

func (r *fakeCategoryRepo) Update(_ context.Context, category *domain.ServiceCategory) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.categories[category.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *category
	r.db.categories[category.ID] = &cp
	return nil
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.ServiceCategory, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	category, ok := r.db.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *category
	return &cp, nil
}

func (r *fakeCategoryRepo) ListByDepartment(_ context.Context, departmentID string) ([]domain.ServiceCategory, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]domain.ServiceCategory, 0)
	for _, category := range r.db.categories {
		if category.DepartmentID == departmentID {
			out = append(out, *category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeTicketRepo struct{ db *memDB }

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = r.db.nextID("tck")
	}
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	cp := *ticket
	r.db.tickets[ticket.ID] = &cp
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	cp := *ticket
	cp.BranchID = stored.BranchID
	cp.CreatorID = stored.CreatorID
	cp.UpdatedAt = time.Now()
	r.db.tickets[ticket.ID] = &cp
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ticket, ok := r.db.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *ticket
	return &cp, nil
}

func (r *fakeTicketRepo) GetByExternalKey(_ context.Context, key string) (*domain.Ticket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, ticket := range r.db.tickets {
		if ticket.ExternalKey == key {
			cp := *ticket
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]domain.Ticket, 0)
	for _, ticket := range r.db.tickets {
		if filter.CreatorID != nil && ticket.CreatorID != *filter.CreatorID {
			continue
		}
		if filter.BranchID != nil && ticket.BranchID != *filter.BranchID {
			continue
		}
		if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		out = append(out, *ticket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTicketRepo) AssignIfUnassigned(_ context.Context, ticketID, technicianID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ticket, ok := r.db.tickets[ticketID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if ticket.AssigneeID != nil {
		return false, nil
	}
	ticket.AssigneeID = &technicianID
	ticket.Status = domain.TicketStatusAssigned
	ticket.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeTicketRepo) UpdateStatusIf(_ context.Context, ticketID string, expected, next domain.TicketStatus) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ticket, ok := r.db.tickets[ticketID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if ticket.Status != expected {
		return false, nil
	}
	ticket.Status = next
	ticket.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeTicketRepo) OpenWorkloadByAssignees(_ context.Context, assigneeIDs []string) (map[string]int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range assigneeIDs {
		wanted[id] = true
	}
	out := map[string]int{}
	for _, ticket := range r.db.tickets {
		if ticket.AssigneeID == nil || !wanted[*ticket.AssigneeID] {
			continue
		}
		switch ticket.Status {
		case domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusPending:
			out[*ticket.AssigneeID]++
		}
	}
	return out, nil
}

type fakeComplianceRepo struct{ db *memDB }

func (r *fakeComplianceRepo) Create(_ context.Context, approval *domain.ComplianceApproval) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if approval.ID == "" {
		approval.ID = r.db.nextID("cmp")
	}
	cp := *approval
	r.db.compliance[approval.TicketID] = &cp
	return nil
}

func (r *fakeComplianceRepo) GetByTicket(_ context.Context, ticketID string) (*domain.ComplianceApproval, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	approval, ok := r.db.compliance[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *approval
	return &cp, nil
}

func (r *fakeComplianceRepo) DecideIfPending(_ context.Context, ticketID string, status domain.ComplianceStatus, deciderID, comments string, documentsVerified bool) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	approval, ok := r.db.compliance[ticketID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if approval.Status != domain.ComplianceStatusPending {
		return false, nil
	}
	now := time.Now()
	approval.Status = status
	approval.DecidedByID = &deciderID
	approval.Comments = comments
	approval.DocumentsVerified = documentsVerified
	approval.DecidedAt = &now
	return true, nil
}

func (r *fakeComplianceRepo) AdminOverride(_ context.Context, ticketID string, status domain.ComplianceStatus, deciderID, comments string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	approval, ok := r.db.compliance[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	approval.Status = status
	approval.DecidedByID = &deciderID
	approval.Comments = comments
	approval.DecidedAt = &now
	return nil
}

type fakeClassificationRepo struct{ db *memDB }

func (r *fakeClassificationRepo) Create(_ context.Context, classification *domain.Classification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *classification
	r.db.classifications[classification.TicketID] = &cp
	return nil
}

func (r *fakeClassificationRepo) GetByTicket(_ context.Context, ticketID string) (*domain.Classification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	classification, ok := r.db.classifications[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *classification
	return &cp, nil
}

func (r *fakeClassificationRepo) SaveSuggestion(_ context.Context, classification *domain.Classification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.classifications[classification.TicketID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.UserRootCause = classification.UserRootCause
	stored.UserIssueCategory = classification.UserIssueCategory
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *fakeClassificationRepo) SaveConfirmation(_ context.Context, classification *domain.Classification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.classifications[classification.TicketID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.ConfirmedRootCause = classification.ConfirmedRootCause
	stored.ConfirmedCategory = classification.ConfirmedCategory
	stored.OverrideReason = classification.OverrideReason
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *fakeClassificationRepo) SaveLock(_ context.Context, classification *domain.Classification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.classifications[classification.TicketID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Locked = classification.Locked
	stored.LockReason = classification.LockReason
	stored.UpdatedAt = time.Now()
	return nil
}

type fakeAuditRepo struct{ db *memDB }

func (r *fakeAuditRepo) Create(_ context.Context, entry *domain.AuditEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if entry.ID == "" {
		entry.ID = r.db.nextID("aud")
	}
	entry.CreatedAt = time.Now()
	r.db.audit = append(r.db.audit, *entry)
	return nil
}

func (r *fakeAuditRepo) ListByTicket(_ context.Context, ticketID string, limit, offset int) ([]domain.AuditEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]domain.AuditEntry, 0)
	for i := len(r.db.audit) - 1; i >= 0; i-- {
		if r.db.audit[i].TicketID == ticketID {
			out = append(out, r.db.audit[i])
		}
	}
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (db *memDB) auditByType(changeType domain.AuditChangeType) []domain.AuditEntry {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]domain.AuditEntry, 0)
	for _, entry := range db.audit {
		if entry.ChangeType == changeType {
			out = append(out, entry)
		}
	}
	return out
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// testEnv wires the services over the fake store.
type testEnv struct {
	db             *memDB
	store          *repository.Store
	workflow       *WorkflowService
	assignments    *AssignmentService
	categorization *CategorizationService
}

func newTestEnv() *testEnv {
	db := newMemDB()
	store := db.store()
	uow := &fakeUnitOfWork{store: store}
	directory := NewDirectoryService(store.Branches, nil, time.Minute, zap.NewNop())
	env := &testEnv{
		db:    db,
		store: store,
		workflow: NewWorkflowService(WorkflowDependencies{
			Store:      store,
			UnitOfWork: uow,
			Directory:  directory,
		}),
		assignments: NewAssignmentService(AssignmentDependencies{
			Store:      store,
			UnitOfWork: uow,
		}),
		categorization: NewCategorizationService(CategorizationDependencies{
			Store:      store,
			UnitOfWork: uow,
		}),
	}
	return env
}

func (e *testEnv) addBranch(id string, active bool) *domain.Branch {
	branch := &domain.Branch{ID: id, Code: id, Name: id, Kind: domain.BranchKindSub, IsActive: active}
	_ = (&fakeBranchRepo{db: e.db}).Create(context.Background(), branch)
	return branch
}

func (e *testEnv) addPrincipal(p *domain.Principal) *domain.Principal {
	_ = (&fakePrincipalRepo{db: e.db}).Create(context.Background(), p)
	return p
}

func (e *testEnv) addCategory(c *domain.ServiceCategory) *domain.ServiceCategory {
	_ = (&fakeCategoryRepo{db: e.db}).Create(context.Background(), c)
	return c
}
