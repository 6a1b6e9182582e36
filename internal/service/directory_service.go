package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bankdesk/servicedesk/internal/domain"
	"github.com/bankdesk/servicedesk/internal/repository"
	apperrors "github.com/bankdesk/servicedesk/pkg/util"
)

// DirectoryService is the authoritative branch registry the engine consults
// for tenant checks. Lookups go through a Redis read-through cache; the
// database stays the source of truth.
type DirectoryService struct {
	branches repository.BranchRepository
	cache    *redis.Client
	ttl      time.Duration
	logger   *zap.Logger
}

// NewDirectoryService builds the service. cache may be nil (lookups then
// always hit the repository).
func NewDirectoryService(branches repository.BranchRepository, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{branches: branches, cache: cache, ttl: ttl, logger: logger}
}

// GetBranch resolves a branch by id.
func (s *DirectoryService) GetBranch(ctx context.Context, id string) (*domain.Branch, error) {
	if branch := s.cachedBranch(ctx, id); branch != nil {
		return branch, nil
	}
	branch, err := s.branches.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("branch", map[string]any{"branch_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	s.storeBranch(ctx, branch)
	return branch, nil
}

// IsActive reports whether the branch exists and is active.
func (s *DirectoryService) IsActive(ctx context.Context, id string) (bool, error) {
	branch, err := s.GetBranch(ctx, id)
	if err != nil {
		return false, err
	}
	return branch.IsActive, nil
}

// ListActive returns all active branches.
func (s *DirectoryService) ListActive(ctx context.Context) ([]domain.Branch, error) {
	branches, err := s.branches.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return branches, nil
}

// Invalidate drops the cached entry after a directory write.
func (s *DirectoryService) Invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, branchCacheKey(id)).Err(); err != nil {
		s.logger.Warn("branch cache invalidation failed", zap.String("branch_id", id), zap.Error(err))
	}
}

func (s *DirectoryService) cachedBranch(ctx context.Context, id string) *domain.Branch {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, branchCacheKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("branch cache read failed", zap.String("branch_id", id), zap.Error(err))
		}
		return nil
	}
	var branch domain.Branch
	if err := json.Unmarshal(raw, &branch); err != nil {
		return nil
	}
	return &branch
}

func (s *DirectoryService) storeBranch(ctx context.Context, branch *domain.Branch) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(branch)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, branchCacheKey(branch.ID), raw, s.ttl).Err(); err != nil {
		s.logger.Warn("branch cache write failed", zap.String("branch_id", branch.ID), zap.Error(err))
	}
}

func branchCacheKey(id string) string {
	return "branch:" + id
}
