package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/strength-log-api/internal/catalog"
	"github.com/noah-isme/strength-log-api/internal/models"
	"github.com/noah-isme/strength-log-api/internal/repository"
	appErrors "github.com/noah-isme/strength-log-api/pkg/errors"
)

type observationRepository interface {
	GetByID(ctx context.Context, id string) (*models.Observation, error)
	Create(ctx context.Context, obs *models.Observation) error
	CreateAndRecount(ctx context.Context, obs *models.Observation) (int, error)
	DecideAndRecount(ctx context.Context, id string, status models.ObservationStatus) (*models.Observation, int, error)
	List(ctx context.Context, filter models.ObservationFilter) ([]models.Observation, error)
	CountApproved(ctx context.Context, targetID string) (int, error)
	StrengthSummary(ctx context.Context, targetID string) ([]models.StrengthCount, error)
}

type observationUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.UserProfile, error)
}

type gardenCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// GardenConfig tunes garden view caching.
type GardenConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ObservationService implements the observation lifecycle: submission, the
// approval queue, and the garden views derived from approved records.
type ObservationService struct {
	repo      observationRepository
	users     observationUserRepository
	cache     gardenCache
	validator *validator.Validate
	logger    *zap.Logger
	garden    GardenConfig
}

// NewObservationService constructs an ObservationService instance.
func NewObservationService(repo observationRepository, users observationUserRepository, cache gardenCache, validate *validator.Validate, logger *zap.Logger, garden GardenConfig) *ObservationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ObservationService{repo: repo, users: users, cache: cache, validator: validate, logger: logger, garden: garden}
}

// Submit records an observation. The writer role comes from the caller's
// account, never the payload: teacher records are approved immediately and
// the target's garden level is refreshed in the same transaction, while self
// and peer records enter the approval queue as pending.
func (s *ObservationService) Submit(ctx context.Context, claims *models.JWTClaims, req models.SubmitObservationRequest) (*models.ObservationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid observation payload")
	}
	if !models.ValidCategory(req.Category) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
	}
	if !catalog.Exists(req.StrengthID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown strength id: "+req.StrengthID)
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content must not be blank")
	}

	target, err := s.loadStudent(ctx, req.TargetID)
	if err != nil {
		return nil, err
	}

	obs := &models.Observation{
		TargetID:   target.ID,
		WriterID:   claims.UserID,
		TeacherID:  target.TeacherID,
		WriterName: claims.Name,
		TargetName: target.Name,
		Category:   req.Category,
		StrengthID: req.StrengthID,
		Content:    content,
	}

	switch claims.Role {
	case models.RoleTeacher:
		if target.TeacherID == nil || *target.TeacherID != claims.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "student belongs to another roster")
		}
		obs.WriterRole = models.WriterTeacher
		obs.Status = models.StatusApproved
		teacherID := claims.UserID
		obs.TeacherID = &teacherID

		level, err := s.repo.CreateAndRecount(ctx, obs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record observation")
		}
		s.invalidateGarden(ctx, target.ID)
		return &models.ObservationResult{Observation: obs, GardenLevel: level}, nil

	case models.RoleStudent:
		writer, err := s.users.FindByID(ctx, claims.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load writer")
		}
		if !sameRoster(writer, target) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "target is not a classmate")
		}
		if claims.UserID == target.ID {
			obs.WriterRole = models.WriterSelf
		} else {
			obs.WriterRole = models.WriterPeer
		}
		obs.Status = models.StatusPending

		if err := s.repo.Create(ctx, obs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record observation")
		}
		return &models.ObservationResult{Observation: obs, GardenLevel: target.GardenLevel}, nil

	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}
}

// Decide approves or rejects a pending observation. Only the roster teacher
// may decide, a decision is final, and an approval refreshes the target's
// garden level in the same transaction as the status flip.
func (s *ObservationService) Decide(ctx context.Context, claims *models.JWTClaims, observationID string, req models.DecisionRequest) (*models.ObservationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}

	existing, err := s.repo.GetByID(ctx, observationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "observation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load observation")
	}
	if existing.TeacherID == nil || *existing.TeacherID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "observation belongs to another roster")
	}

	obs, level, err := s.repo.DecideAndRecount(ctx, observationID, req.Status)
	if err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "observation is already decided")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "observation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply decision")
	}

	if req.Status == models.StatusApproved {
		s.invalidateGarden(ctx, obs.TargetID)
	}
	return &models.ObservationResult{Observation: obs, GardenLevel: level}, nil
}

// Pending returns the teacher's approval queue, newest first.
func (s *ObservationService) Pending(ctx context.Context, claims *models.JWTClaims) ([]models.Observation, error) {
	if claims.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher role required")
	}
	list, err := s.repo.List(ctx, models.ObservationFilter{TeacherID: claims.UserID, Status: models.StatusPending})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending observations")
	}
	return list, nil
}

// List returns observations scoped by role. Teachers see their whole roster.
// Students see their own submissions in any state, but records about them
// only once approved.
func (s *ObservationService) List(ctx context.Context, claims *models.JWTClaims, filter models.ObservationFilter) ([]models.Observation, error) {
	switch claims.Role {
	case models.RoleTeacher:
		filter.TeacherID = claims.UserID
	case models.RoleStudent:
		if filter.WriterID == claims.UserID {
			filter.TeacherID = ""
		} else {
			filter.TargetID = claims.UserID
			filter.WriterID = ""
			filter.TeacherID = ""
			filter.Status = models.StatusApproved
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}

	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list observations")
	}
	return list, nil
}

// Garden builds the garden view for a student: approved count, persisted
// level, growth stage, and the per-strength breakdown.
func (s *ObservationService) Garden(ctx context.Context, claims *models.JWTClaims, studentID string) (*models.GardenView, error) {
	target, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if claims.Role == models.RoleTeacher {
		if target.TeacherID == nil || *target.TeacherID != claims.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "student belongs to another roster")
		}
	} else if claims.UserID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own garden")
	}

	cacheKey := "garden:" + studentID
	if s.garden.CacheEnabled && s.cache != nil {
		var cached models.GardenView
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	count, err := s.repo.CountApproved(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count observations")
	}
	summary, err := s.repo.StrengthSummary(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize strengths")
	}

	view := &models.GardenView{
		StudentID:     studentID,
		StudentName:   target.Name,
		ApprovedCount: count,
		GardenLevel:   models.CalcGardenLevel(count),
		Stage:         models.GrowthStageFor(count),
		NextStage:     models.NextGrowthStage(count),
		Strengths:     summary,
	}

	if s.garden.CacheEnabled && s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, view, s.garden.CacheTTL); err != nil {
			s.logger.Warn("garden cache store failed", zap.Error(err), zap.String("student_id", studentID))
		}
	}
	return view, nil
}

func (s *ObservationService) loadStudent(ctx context.Context, studentID string) (*models.UserProfile, error) {
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

func (s *ObservationService) invalidateGarden(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "garden:"+studentID+"*"); err != nil {
		s.logger.Warn("failed to invalidate garden cache", zap.Error(err), zap.String("student_id", studentID))
	}
}

func sameRoster(a, b *models.UserProfile) bool {
	if a.ID == b.ID {
		return true
	}
	if a.TeacherID == nil || b.TeacherID == nil {
		return false
	}
	return *a.TeacherID == *b.TeacherID
}
