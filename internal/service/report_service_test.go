package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/strength-log-api/internal/gemini"
	"github.com/noah-isme/strength-log-api/internal/models"
	appErrors "github.com/noah-isme/strength-log-api/pkg/errors"
)

type fakeGenerator struct {
	text       string
	err        error
	calls      int
	lastKey    string
	lastSystem string
	lastUser   string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, apiKey, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.lastKey = apiKey
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func reportEvidence() []models.Observation {
	return []models.Observation{
		{ID: "o1", TargetID: "s1", WriterRole: models.WriterTeacher, Category: models.CategoryClass, StrengthID: "kindness", Content: "모둠 활동에서 친구를 도와줌", Status: models.StatusApproved},
		{ID: "o2", TargetID: "s1", WriterRole: models.WriterPeer, Category: models.CategoryRelationship, StrengthID: "teamwork", Content: "쉬는 시간에 친구들을 잘 챙겨줌", Status: models.StatusApproved},
		{ID: "o3", TargetID: "s1", WriterRole: models.WriterPeer, Category: models.CategoryClass, StrengthID: "humor", Content: "발표를 재미있게 함", Status: models.StatusPending},
		{ID: "o4", TargetID: "s1", WriterRole: models.WriterSelf, Category: models.CategoryDailyLife, StrengthID: "zest", Content: "아침 달리기를 꾸준히 함", Status: models.StatusApproved},
	}
}

func newReportService(observations []models.Observation, generator textGenerator) *ReportService {
	repo := &mockObservationRepo{listResult: observations}
	users := &mockUserLookup{users: classroom()}
	return NewReportService(repo, users, generator, validator.New(), zap.NewNop())
}

func TestSelectEvidence(t *testing.T) {
	evidence := SelectEvidence(reportEvidence())
	require.Len(t, evidence, 2)
	ids := []string{evidence[0].ID, evidence[1].ID}
	assert.Contains(t, ids, "o1")
	assert.Contains(t, ids, "o2")
}

func TestSelectEvidenceExcludesSelfEvenWhenApproved(t *testing.T) {
	evidence := SelectEvidence([]models.Observation{
		{ID: "o1", WriterRole: models.WriterSelf, Status: models.StatusApproved},
	})
	assert.Empty(t, evidence)
}

func TestSelectEvidenceKeepsPendingTeacherRecords(t *testing.T) {
	evidence := SelectEvidence([]models.Observation{
		{ID: "o1", WriterRole: models.WriterTeacher, Status: models.StatusApproved},
	})
	assert.Len(t, evidence, 1)
}

func TestDraftStandardMode(t *testing.T) {
	gen := &fakeGenerator{text: "수업 시간에 적극적으로 참여함."}
	svc := newReportService(reportEvidence(), gen)

	res, err := svc.Draft(context.Background(), teacherClaims(), models.DraftReportRequest{
		StudentID: "s1",
		APIKey:    "key",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportModeStandard, res.Mode)
	assert.Equal(t, 2, res.EvidenceCount)
	assert.Equal(t, "수업 시간에 적극적으로 참여함.", res.Text)
	assert.Equal(t, "key", gen.lastKey)
	assert.Contains(t, gen.lastSystem, "개조식")
	assert.NotContains(t, gen.lastSystem, "참고 예시")
	assert.Contains(t, gen.lastUser, "강하늘")
	assert.Contains(t, gen.lastUser, "교사 기록")
	assert.Contains(t, gen.lastUser, "또래 기록")
	assert.NotContains(t, gen.lastUser, "아침 달리기")
}

func TestDraftExampleBasedModeIncludesLibrary(t *testing.T) {
	gen := &fakeGenerator{text: "draft"}
	svc := newReportService(reportEvidence(), gen)

	res, err := svc.Draft(context.Background(), teacherClaims(), models.DraftReportRequest{
		StudentID: "s1",
		APIKey:    "key",
		Mode:      models.ReportModeExampleBased,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportModeExampleBased, res.Mode)
	assert.Contains(t, gen.lastSystem, "참고 예시")
	for _, ex := range reportExamples {
		assert.Contains(t, gen.lastSystem, ex.Label)
	}
}

func TestDraftMissingAPIKey(t *testing.T) {
	gen := &fakeGenerator{text: "draft"}
	svc := newReportService(reportEvidence(), gen)

	_, err := svc.Draft(context.Background(), teacherClaims(), models.DraftReportRequest{
		StudentID: "s1",
		APIKey:    "   ",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMissingCredential.Code, appErrors.FromError(err).Code)
	assert.Zero(t, gen.calls)
}

func TestDraftInsufficientEvidenceBeforeNetworkCall(t *testing.T) {
	gen := &fakeGenerator{text: "draft"}
	svc := newReportService([]models.Observation{
		{ID: "o1", TargetID: "s1", WriterRole: models.WriterSelf, Status: models.StatusApproved},
	}, gen)

	_, err := svc.Draft(context.Background(), teacherClaims(), models.DraftReportRequest{
		StudentID: "s1",
		APIKey:    "key",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInsufficientEvidence.Code, appErrors.FromError(err).Code)
	assert.Zero(t, gen.calls)
}

func TestDraftUpstreamFailureMapsToUpstreamError(t *testing.T) {
	gen := &fakeGenerator{err: &gemini.StatusError{StatusCode: http.StatusForbidden}}
	svc := newReportService(reportEvidence(), gen)

	_, err := svc.Draft(context.Background(), teacherClaims(), models.DraftReportRequest{
		StudentID: "s1",
		APIKey:    "bad-key",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
}

func TestDraftForbiddenForStudents(t *testing.T) {
	svc := newReportService(reportEvidence(), &fakeGenerator{})

	_, err := svc.Draft(context.Background(), studentClaims("s1", "강하늘"), models.DraftReportRequest{
		StudentID: "s1",
		APIKey:    "key",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDraftOtherRosterForbidden(t *testing.T) {
	gen := &fakeGenerator{text: "draft"}
	repo := &mockObservationRepo{listResult: reportEvidence()}
	users := &mockUserLookup{users: classroom()}
	otherTeacher := "t2"
	users.users["s9"] = &models.UserProfile{ID: "s9", Name: "이준", Role: models.RoleStudent, TeacherID: &otherTeacher, Active: true}
	svc := NewReportService(repo, users, gen, validator.New(), zap.NewNop())

	_, err := svc.Draft(context.Background(), teacherClaims(), models.DraftReportRequest{
		StudentID: "s9",
		APIKey:    "key",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestBuildUserPromptListsSignatureStrengths(t *testing.T) {
	teacherID := "t1"
	student := &models.UserProfile{ID: "s1", Name: "강하늘", Role: models.RoleStudent, TeacherID: &teacherID, Strengths: []string{"kindness", "bravery"}}
	prompt := buildUserPrompt(student, SelectEvidence(reportEvidence()))
	assert.Contains(t, prompt, "친절")
	assert.Contains(t, prompt, "용감성")
	assert.False(t, strings.Contains(prompt, "미등록"))
}
