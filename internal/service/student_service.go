package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/strength-log-api/internal/catalog"
	"github.com/noah-isme/strength-log-api/internal/models"
	appErrors "github.com/noah-isme/strength-log-api/pkg/errors"
)

// DefaultStudentPassword is handed to provisioned students until their
// teacher resets it.
const DefaultStudentPassword = "school1234"

type studentUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.UserProfile, error)
	Create(ctx context.Context, user *models.UserProfile) error
	ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.UserProfile, error)
	ExistsStudentNumber(ctx context.Context, teacherID string, number int, excludeID string) (bool, error)
	UpdateStrengths(ctx context.Context, id string, strengths []string) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	DeleteStudentCascade(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type studentCache interface {
	Invalidate(ctx context.Context, pattern string) error
}

// StudentService manages a teacher's roster.
type StudentService struct {
	repo      studentUserRepository
	cache     studentCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService instance.
func NewStudentService(repo studentUserRepository, cache studentCache, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Create provisions a student under the given teacher. Student numbers are
// unique within one teacher's roster.
func (s *StudentService) Create(ctx context.Context, teacherID string, req models.CreateStudentRequest) (*models.UserProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	taken, err := s.repo.ExistsStudentNumber(ctx, teacherID, req.StudentNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student number")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student number is already in use")
	}

	password := req.Password
	if password == "" {
		password = DefaultStudentPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	number := req.StudentNumber
	student := &models.UserProfile{
		Name:          req.Name,
		PasswordHash:  string(hash),
		Role:          models.RoleStudent,
		TeacherID:     &teacherID,
		StudentNumber: &number,
		Active:        true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	student.PasswordHash = ""
	return student, nil
}

// List returns the teacher's roster ordered by student number.
func (s *StudentService) List(ctx context.Context, teacherID string, filter models.StudentFilter) ([]models.UserProfile, error) {
	filter.TeacherID = teacherID
	students, err := s.repo.ListStudents(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	for i := range students {
		students[i].PasswordHash = ""
	}
	return students, nil
}

// Get returns a single student, checking roster ownership for teachers and
// self access for students.
func (s *StudentService) Get(ctx context.Context, claims *models.JWTClaims, studentID string) (*models.UserProfile, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(claims, student); err != nil {
		return nil, err
	}
	student.PasswordHash = ""
	return student, nil
}

// UpdateStrengths replaces a student's signature strengths. Every entry must
// exist in the strength catalog.
func (s *StudentService) UpdateStrengths(ctx context.Context, claims *models.JWTClaims, studentID string, req models.UpdateStrengthsRequest) (*models.UserProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid strengths payload")
	}
	for _, id := range req.Strengths {
		if !catalog.Exists(id) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown strength id: "+id)
		}
	}

	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(claims, student); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStrengths(ctx, studentID, req.Strengths); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update strengths")
	}

	student.Strengths = append(student.Strengths[:0], req.Strengths...)
	student.PasswordHash = ""
	return student, nil
}

// ResetPassword sets a new password on a roster student. Only the owning
// teacher may do this; an empty password resets to the classroom default.
func (s *StudentService) ResetPassword(ctx context.Context, claims *models.JWTClaims, studentID string, req models.ResetStudentPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}

	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if err := s.authorizeTeacher(claims, student); err != nil {
		return err
	}

	password := req.NewPassword
	if password == "" {
		password = DefaultStudentPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	if err := s.repo.UpdatePassword(ctx, studentID, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset password")
	}
	return nil
}

// Delete removes a student and every record that references them. The
// observations, sessions, and profile go in one transaction so a failure
// leaves the roster untouched.
func (s *StudentService) Delete(ctx context.Context, claims *models.JWTClaims, studentID string) error {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if err := s.authorizeTeacher(claims, student); err != nil {
		return err
	}

	if err := s.repo.DeleteStudentCascade(ctx, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, "garden:"+studentID+"*"); err != nil {
			s.logger.Warn("failed to invalidate garden cache", zap.Error(err), zap.String("student_id", studentID))
		}
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     models.AuditActionStudentDelete,
		Resource:   "students",
		ResourceID: &studentID,
		NewValues:  []byte(`{"status":"deleted"}`),
	}); err != nil {
		s.logger.Warn("failed to record student delete audit log", zap.Error(err))
	}

	return nil
}

func (s *StudentService) loadStudent(ctx context.Context, studentID string) (*models.UserProfile, error) {
	student, err := s.repo.FindByID(ctx, studentID)
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

func (s *StudentService) authorize(claims *models.JWTClaims, student *models.UserProfile) error {
	if claims.Role == models.RoleTeacher {
		return s.authorizeTeacher(claims, student)
	}
	if claims.UserID != student.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "students may only access their own profile")
	}
	return nil
}

func (s *StudentService) authorizeTeacher(claims *models.JWTClaims, student *models.UserProfile) error {
	if claims.Role != models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrForbidden, "teacher role required")
	}
	if student.TeacherID == nil || *student.TeacherID != claims.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "student belongs to another roster")
	}
	return nil
}
