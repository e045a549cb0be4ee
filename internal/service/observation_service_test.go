package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/strength-log-api/internal/models"
	"github.com/noah-isme/strength-log-api/internal/repository"
	appErrors "github.com/noah-isme/strength-log-api/pkg/errors"
)

type mockObservationRepo struct {
	byID          map[string]*models.Observation
	created       []*models.Observation
	recountLevel  int
	decideErr     error
	listResult    []models.Observation
	lastFilter    models.ObservationFilter
	approvedCount int
	summary       []models.StrengthCount
}

func (m *mockObservationRepo) GetByID(ctx context.Context, id string) (*models.Observation, error) {
	obs, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return obs, nil
}

func (m *mockObservationRepo) Create(ctx context.Context, obs *models.Observation) error {
	obs.ID = "created"
	m.created = append(m.created, obs)
	return nil
}

func (m *mockObservationRepo) CreateAndRecount(ctx context.Context, obs *models.Observation) (int, error) {
	obs.ID = "created"
	m.created = append(m.created, obs)
	return m.recountLevel, nil
}

func (m *mockObservationRepo) DecideAndRecount(ctx context.Context, id string, status models.ObservationStatus) (*models.Observation, int, error) {
	if m.decideErr != nil {
		return nil, 0, m.decideErr
	}
	obs := m.byID[id]
	obs.Status = status
	return obs, m.recountLevel, nil
}

func (m *mockObservationRepo) List(ctx context.Context, filter models.ObservationFilter) ([]models.Observation, error) {
	m.lastFilter = filter
	return m.listResult, nil
}

func (m *mockObservationRepo) CountApproved(ctx context.Context, targetID string) (int, error) {
	return m.approvedCount, nil
}

func (m *mockObservationRepo) StrengthSummary(ctx context.Context, targetID string) ([]models.StrengthCount, error) {
	return m.summary, nil
}

type mockUserLookup struct {
	users map[string]*models.UserProfile
}

func (m *mockUserLookup) FindByID(ctx context.Context, id string) (*models.UserProfile, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type mockGardenCache struct {
	invalidated []string
}

func (m *mockGardenCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, nil
}

func (m *mockGardenCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (m *mockGardenCache) Invalidate(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	return nil
}

func classroom() map[string]*models.UserProfile {
	teacherID := "t1"
	num1, num2 := 1, 2
	return map[string]*models.UserProfile{
		"t1": {ID: "t1", Name: "김선생", Role: models.RoleTeacher, Active: true},
		"s1": {ID: "s1", Name: "강하늘", Role: models.RoleStudent, TeacherID: &teacherID, StudentNumber: &num1, GardenLevel: 1, Active: true},
		"s2": {ID: "s2", Name: "김지우", Role: models.RoleStudent, TeacherID: &teacherID, StudentNumber: &num2, Active: true},
	}
}

func newObservationService(repo *mockObservationRepo, users *mockUserLookup, cache *mockGardenCache) *ObservationService {
	return NewObservationService(repo, users, cache, validator.New(), zap.NewNop(), GardenConfig{CacheEnabled: true, CacheTTL: time.Minute})
}

func teacherClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher, Name: "김선생"}
}

func studentClaims(id, name string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleStudent, Name: name}
}

func TestSubmitTeacherObservationAutoApproves(t *testing.T) {
	repo := &mockObservationRepo{recountLevel: 2}
	users := &mockUserLookup{users: classroom()}
	cache := &mockGardenCache{}
	svc := newObservationService(repo, users, cache)

	res, err := svc.Submit(context.Background(), teacherClaims(), models.SubmitObservationRequest{
		TargetID:   "s1",
		Category:   models.CategoryClass,
		StrengthID: "kindness",
		Content:    "모둠 활동에서 친구를 도와줌",
	})
	require.NoError(t, err)
	assert.Equal(t, models.WriterTeacher, res.Observation.WriterRole)
	assert.Equal(t, models.StatusApproved, res.Observation.Status)
	assert.Equal(t, 2, res.GardenLevel)
	require.NotNil(t, res.Observation.TeacherID)
	assert.Equal(t, "t1", *res.Observation.TeacherID)
	assert.Contains(t, cache.invalidated, "garden:s1*")
}

func TestSubmitPeerObservationIsPending(t *testing.T) {
	repo := &mockObservationRepo{}
	users := &mockUserLookup{users: classroom()}
	cache := &mockGardenCache{}
	svc := newObservationService(repo, users, cache)

	res, err := svc.Submit(context.Background(), studentClaims("s2", "김지우"), models.SubmitObservationRequest{
		TargetID:   "s1",
		Category:   models.CategoryRelationship,
		StrengthID: "teamwork",
		Content:    "쉬는 시간에 친구들을 잘 챙겨줌",
	})
	require.NoError(t, err)
	assert.Equal(t, models.WriterPeer, res.Observation.WriterRole)
	assert.Equal(t, models.StatusPending, res.Observation.Status)
	assert.Equal(t, 1, res.GardenLevel)
	assert.Empty(t, cache.invalidated)
}

func TestSubmitSelfObservationIsPendingSelf(t *testing.T) {
	repo := &mockObservationRepo{}
	users := &mockUserLookup{users: classroom()}
	svc := newObservationService(repo, users, &mockGardenCache{})

	res, err := svc.Submit(context.Background(), studentClaims("s1", "강하늘"), models.SubmitObservationRequest{
		TargetID:   "s1",
		Category:   models.CategoryDailyLife,
		StrengthID: "zest",
		Content:    "아침 달리기를 꾸준히 함",
	})
	require.NoError(t, err)
	assert.Equal(t, models.WriterSelf, res.Observation.WriterRole)
	assert.Equal(t, models.StatusPending, res.Observation.Status)
}

func TestSubmitRejectsUnknownStrength(t *testing.T) {
	svc := newObservationService(&mockObservationRepo{}, &mockUserLookup{users: classroom()}, &mockGardenCache{})

	_, err := svc.Submit(context.Background(), teacherClaims(), models.SubmitObservationRequest{
		TargetID:   "s1",
		Category:   models.CategoryClass,
		StrengthID: "patience",
		Content:    "내용",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitRejectsUnknownCategory(t *testing.T) {
	svc := newObservationService(&mockObservationRepo{}, &mockUserLookup{users: classroom()}, &mockGardenCache{})

	_, err := svc.Submit(context.Background(), teacherClaims(), models.SubmitObservationRequest{
		TargetID:   "s1",
		Category:   "동아리",
		StrengthID: "kindness",
		Content:    "내용",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitRejectsBlankContent(t *testing.T) {
	svc := newObservationService(&mockObservationRepo{}, &mockUserLookup{users: classroom()}, &mockGardenCache{})

	_, err := svc.Submit(context.Background(), teacherClaims(), models.SubmitObservationRequest{
		TargetID:   "s1",
		Category:   models.CategoryClass,
		StrengthID: "kindness",
		Content:    "   \t  ",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitTrimsContent(t *testing.T) {
	repo := &mockObservationRepo{}
	svc := newObservationService(repo, &mockUserLookup{users: classroom()}, &mockGardenCache{})

	result, err := svc.Submit(context.Background(), teacherClaims(), models.SubmitObservationRequest{
		TargetID:   "s1",
		Category:   models.CategoryClass,
		StrengthID: "kindness",
		Content:    "  모둠 활동을 먼저 도왔음  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "모둠 활동을 먼저 도왔음", result.Observation.Content)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "모둠 활동을 먼저 도왔음", repo.created[0].Content)
}

func TestSubmitRejectsOtherRoster(t *testing.T) {
	users := &mockUserLookup{users: classroom()}
	otherTeacher := "t2"
	users.users["s9"] = &models.UserProfile{ID: "s9", Name: "이준", Role: models.RoleStudent, TeacherID: &otherTeacher, Active: true}
	svc := newObservationService(&mockObservationRepo{}, users, &mockGardenCache{})

	_, err := svc.Submit(context.Background(), teacherClaims(), models.SubmitObservationRequest{
		TargetID:   "s9",
		Category:   models.CategoryClass,
		StrengthID: "kindness",
		Content:    "내용",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDecideApprovesPending(t *testing.T) {
	teacherID := "t1"
	repo := &mockObservationRepo{
		recountLevel: 1,
		byID: map[string]*models.Observation{
			"o1": {ID: "o1", TargetID: "s1", WriterID: "s2", TeacherID: &teacherID, WriterRole: models.WriterPeer, Status: models.StatusPending},
		},
	}
	cache := &mockGardenCache{}
	svc := newObservationService(repo, &mockUserLookup{users: classroom()}, cache)

	res, err := svc.Decide(context.Background(), teacherClaims(), "o1", models.DecisionRequest{Status: models.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, res.Observation.Status)
	assert.Equal(t, 1, res.GardenLevel)
	assert.Contains(t, cache.invalidated, "garden:s1*")
}

func TestDecideAlreadyDecidedIsInvalidState(t *testing.T) {
	teacherID := "t1"
	repo := &mockObservationRepo{
		decideErr: repository.ErrNotPending,
		byID: map[string]*models.Observation{
			"o1": {ID: "o1", TargetID: "s1", TeacherID: &teacherID, Status: models.StatusApproved},
		},
	}
	svc := newObservationService(repo, &mockUserLookup{users: classroom()}, &mockGardenCache{})

	_, err := svc.Decide(context.Background(), teacherClaims(), "o1", models.DecisionRequest{Status: models.StatusRejected})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestDecideMissingObservation(t *testing.T) {
	svc := newObservationService(&mockObservationRepo{byID: map[string]*models.Observation{}}, &mockUserLookup{users: classroom()}, &mockGardenCache{})

	_, err := svc.Decide(context.Background(), teacherClaims(), "missing", models.DecisionRequest{Status: models.StatusApproved})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDecideOtherRosterForbidden(t *testing.T) {
	otherTeacher := "t2"
	repo := &mockObservationRepo{
		byID: map[string]*models.Observation{
			"o1": {ID: "o1", TargetID: "s9", TeacherID: &otherTeacher, Status: models.StatusPending},
		},
	}
	svc := newObservationService(repo, &mockUserLookup{users: classroom()}, &mockGardenCache{})

	_, err := svc.Decide(context.Background(), teacherClaims(), "o1", models.DecisionRequest{Status: models.StatusApproved})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestListScopesStudentToApprovedAboutSelf(t *testing.T) {
	repo := &mockObservationRepo{}
	svc := newObservationService(repo, &mockUserLookup{users: classroom()}, &mockGardenCache{})

	_, err := svc.List(context.Background(), studentClaims("s1", "강하늘"), models.ObservationFilter{TargetID: "s2", Status: models.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, "s1", repo.lastFilter.TargetID)
	assert.Equal(t, models.StatusApproved, repo.lastFilter.Status)
}

func TestListStudentOwnSubmissionsAnyStatus(t *testing.T) {
	repo := &mockObservationRepo{}
	svc := newObservationService(repo, &mockUserLookup{users: classroom()}, &mockGardenCache{})

	_, err := svc.List(context.Background(), studentClaims("s1", "강하늘"), models.ObservationFilter{WriterID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "s1", repo.lastFilter.WriterID)
	assert.Equal(t, models.ObservationStatus(""), repo.lastFilter.Status)
}

func TestPendingRequiresTeacher(t *testing.T) {
	svc := newObservationService(&mockObservationRepo{}, &mockUserLookup{users: classroom()}, &mockGardenCache{})

	_, err := svc.Pending(context.Background(), studentClaims("s1", "강하늘"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestGardenViewDerivations(t *testing.T) {
	repo := &mockObservationRepo{
		approvedCount: 9,
		summary: []models.StrengthCount{
			{StrengthID: "kindness", Count: 5},
			{StrengthID: "bravery", Count: 4},
		},
	}
	svc := newObservationService(repo, &mockUserLookup{users: classroom()}, &mockGardenCache{})

	view, err := svc.Garden(context.Background(), studentClaims("s1", "강하늘"), "s1")
	require.NoError(t, err)
	assert.Equal(t, 9, view.ApprovedCount)
	assert.Equal(t, 3, view.GardenLevel)
	assert.Equal(t, 3, view.Stage.Index)
	require.NotNil(t, view.NextStage)
	assert.Equal(t, 13, view.NextStage.Threshold)
	assert.Len(t, view.Strengths, 2)
}

func TestGardenForbiddenForOtherStudent(t *testing.T) {
	svc := newObservationService(&mockObservationRepo{}, &mockUserLookup{users: classroom()}, &mockGardenCache{})

	_, err := svc.Garden(context.Background(), studentClaims("s2", "김지우"), "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
