package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/strength-log-api/internal/catalog"
	"github.com/noah-isme/strength-log-api/internal/gemini"
	"github.com/noah-isme/strength-log-api/internal/models"
	appErrors "github.com/noah-isme/strength-log-api/pkg/errors"
)

type textGenerator interface {
	GenerateText(ctx context.Context, apiKey, systemPrompt, userPrompt string) (string, error)
}

type reportObservationRepository interface {
	List(ctx context.Context, filter models.ObservationFilter) ([]models.Observation, error)
}

type reportUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.UserProfile, error)
}

// ReportService drafts the behavioral report text for a student from their
// observation evidence.
type ReportService struct {
	observations reportObservationRepository
	users        reportUserRepository
	generator    textGenerator
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewReportService constructs a ReportService instance.
func NewReportService(observations reportObservationRepository, users reportUserRepository, generator textGenerator, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReportService{observations: observations, users: users, generator: generator, validator: validate, logger: logger}
}

// Draft generates a report draft for a roster student. Evidence is limited
// to teacher records and approved peer records; self records never feed the
// draft. The caller's API key is used for this request only.
func (s *ReportService) Draft(ctx context.Context, claims *models.JWTClaims, req models.DraftReportRequest) (*models.DraftReportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid draft payload")
	}
	if claims.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher role required")
	}
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingCredential, "api key is required")
	}
	mode := req.Mode
	if mode == "" {
		mode = models.ReportModeStandard
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if student.TeacherID == nil || *student.TeacherID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student belongs to another roster")
	}

	all, err := s.observations.List(ctx, models.ObservationFilter{TargetID: student.ID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load observations")
	}
	evidence := SelectEvidence(all)
	if len(evidence) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInsufficientEvidence, "need teacher records or approved peer records")
	}

	systemPrompt := buildSystemPrompt(mode)
	userPrompt := buildUserPrompt(student, evidence)

	text, err := s.generator.GenerateText(ctx, req.APIKey, systemPrompt, userPrompt)
	if err != nil {
		var statusErr *gemini.StatusError
		if errors.As(err, &statusErr) {
			s.logger.Warn("draft generation rejected upstream",
				zap.Int("status", statusErr.StatusCode),
				zap.String("student_id", student.ID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "text generation call failed, check the API key")
	}

	return &models.DraftReportResponse{
		StudentID:     student.ID,
		StudentName:   student.Name,
		Mode:          mode,
		EvidenceCount: len(evidence),
		Text:          text,
	}, nil
}

// SelectEvidence filters observations down to report-usable records: every
// teacher record plus approved peer records. Self records are excluded
// regardless of status.
func SelectEvidence(observations []models.Observation) []models.Observation {
	evidence := make([]models.Observation, 0, len(observations))
	for _, obs := range observations {
		switch obs.WriterRole {
		case models.WriterTeacher:
			evidence = append(evidence, obs)
		case models.WriterPeer:
			if obs.Status == models.StatusApproved {
				evidence = append(evidence, obs)
			}
		}
	}
	return evidence
}

func buildSystemPrompt(mode models.ReportMode) string {
	if mode != models.ReportModeExampleBased {
		return `당신은 초등학교 4학년 담임교사입니다. 아래 데이터를 바탕으로 '행동특성 및 종합의견'을 작성하세요.
교사 기록과 승인된 친구 기록만 사용하고 학생 본인 기록은 제외할 것.
"~함, ~임" 형태의 개조식 문장 사용.
친구들의 평가를 "동료 학생들로부터 ~라는 긍정적인 평가를 받음" 등의 형태로 포함할 것.
글자 수 공백 포함 400~500자 준수.`
	}

	var examples strings.Builder
	for i, ex := range reportExamples {
		if i > 0 {
			examples.WriteString("\n\n")
		}
		fmt.Fprintf(&examples, "[예시 %d: %s]\n%s", i+1, ex.Label, ex.Text)
	}

	return fmt.Sprintf(`당신은 초등학교 4학년 담임교사입니다. 아래 '작성 요령'과 '참고 예시'를 숙지한 후, 동일한 형식으로 '행동특성 및 종합의견'을 작성하세요.

[작성 요령]
행동특성 및 종합의견은 담임교사가 1년간 학생을 수시 관찰·평가한 누가기록을 바탕으로, 학생을 총체적으로 이해할 수 있도록 문장으로 작성하는 '추천서' 성격의 기록입니다.

1. 핵심 기재 요령
• 구체적 사례 중심 서술: "성실하다", "착하다", "책임감 있다" 같은 상투적·추상적 형용사 나열을 지양하고, 학생이 실제 활동에서 보여준 태도·동기·갈등 관리·협력 등의 구체적 사례와 객관적 누가기록에 근거하여 작성할 것.
• 단점 기재 시 변화 가능성 필수: 장점 위주로 작성하되, 단점·부족한 점을 기록할 경우 반드시 극복 과정이나 '변화 및 발전 가능성'을 함께 기재할 것.
• 분량: 공백 포함 최대 500자(1,500바이트) 이내. 400~500자 범위를 준수할 것.

2. 기재 내용 구성
• 교과 세부능력, 창의적 체험활동, 독서활동 등 다른 항목에 미처 담지 못한 학업 역량·인성·가치관을 담임교사 관점에서 종합 기술.
• 단순 중복 기재 금지: 다른 영역 활동을 그대로 옮겨 적지 말 것. 연계 시 참가 동기나 활동 후 변화 등 담임교사만의 재평가가 드러나야 함.

3. 금지 사항
• 사교육 유발 요인 절대 금지: 공인어학시험 성적, 교외 대회 수상, 모의고사 성적, 교외 인증시험, 논문·도서 출간 등 기재 불가.
• 영재교육 수료 내용 기재 불가.

[참고 예시 — 문체·표현·구성 레퍼런스]
%s
1. 위 예시들의 문체와 표현 패턴을 정확히 따를 것 (예: "~하는 모습이 인상적임", "~하는 등 ~이 돋보임", "~할 것으로 기대됨" 등).
2. 교사 기록과 승인된 친구 기록만 사용하고 학생 본인 기록은 제외할 것.
3. 모든 문장의 끝을 반드시 'ㅁ' 받침으로 끝낼 것 (예: ~함, ~임, ~됨, ~보임, ~있음, ~받음, ~높음, ~뛰어남 등). 절대로 '~다', '~요', '~습니다'로 끝내지 말 것.
4. 친구들의 평가를 "동료 학생들로부터 ~라는 긍정적인 평가를 받음" 등의 형태로 포함할 것.
5. 구체적 사례 중심으로 서술하고, 추상적 형용사 나열("착하다", "성실하다")은 지양할 것.
6. 단점을 언급할 경우 반드시 변화·발전 가능성을 함께 기술할 것.
7. 사교육 유발 요인(교외 수상, 어학시험 등)은 절대 포함하지 말 것.
8. 글자 수 공백 포함 400~500자 준수.
9. 예시 문장을 그대로 복사하지 말고, 해당 학생의 실제 관찰 기록 데이터를 바탕으로 새로 작성할 것.`, examples.String())
}

func buildUserPrompt(student *models.UserProfile, evidence []models.Observation) string {
	var observationText strings.Builder
	for i, obs := range evidence {
		if i > 0 {
			observationText.WriteString("\n")
		}
		label := "또래 기록"
		if obs.WriterRole == models.WriterTeacher {
			label = "교사 기록"
		}
		fmt.Fprintf(&observationText, "%d. [%s] 강점: %s, 영역: %s\n   내용: %s",
			i+1, label, catalog.DisplayName(obs.StrengthID), obs.Category, obs.Content)
	}

	strengthsList := "미등록"
	if len(student.Strengths) > 0 {
		names := make([]string, 0, len(student.Strengths))
		for _, id := range student.Strengths {
			names = append(names, catalog.DisplayName(id))
		}
		strengthsList = strings.Join(names, ", ")
	}

	return fmt.Sprintf(`학생 이름: %s
VIA 대표 강점: %s

관찰 기록:
%s

위 데이터를 바탕으로 행동특성 및 종합의견을 작성해주세요.`, student.Name, strengthsList, observationText.String())
}
