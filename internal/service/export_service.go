package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/strength-log-api/internal/catalog"
	"github.com/noah-isme/strength-log-api/internal/models"
	appErrors "github.com/noah-isme/strength-log-api/pkg/errors"
	"github.com/noah-isme/strength-log-api/pkg/export"
	"github.com/noah-isme/strength-log-api/pkg/jobs"
	"github.com/noah-isme/strength-log-api/pkg/storage"
)

type exportJobRepository interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkFinished(ctx context.Context, id, resultURL string) error
	MarkFailed(ctx context.Context, id, message string) error
	ListByTeacher(ctx context.Context, teacherID string) ([]models.ExportJob, error)
}

type exportObservationRepository interface {
	List(ctx context.Context, filter models.ObservationFilter) ([]models.Observation, error)
}

type exportUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.UserProfile, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportService renders observation logs into downloadable CSV or PDF files
// through a background worker queue.
type ExportService struct {
	repo         exportJobRepository
	observations exportObservationRepository
	users        exportUserRepository
	storage      fileStorage
	csv          csvRenderer
	pdf          pdfRenderer
	signer       *storage.SignedURLSigner
	dispatcher   jobDispatcher
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(repo exportJobRepository, observations exportObservationRepository, users exportUserRepository, fs fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		repo:         repo,
		observations: observations,
		users:        users,
		storage:      fs,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		signer:       signer,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
	}
}

// SetDispatcher wires the worker queue. The queue's handler is Process, so
// the queue is built after the service and attached here.
func (s *ExportService) SetDispatcher(d jobDispatcher) {
	s.dispatcher = d
}

// Enqueue creates an export job for the teacher's roster, or a single
// student when TargetID is set, and hands it to the worker pool.
func (s *ExportService) Enqueue(ctx context.Context, claims *models.JWTClaims, req models.ExportRequest) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	if claims.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher role required")
	}

	if req.TargetID != nil {
		student, err := s.users.FindByID(ctx, *req.TargetID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		if student.Role != models.RoleStudent || student.TeacherID == nil || *student.TeacherID != claims.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "student belongs to another roster")
		}
	}

	job := &models.ExportJob{
		TeacherID: claims.UserID,
		TargetID:  req.TargetID,
		Format:    req.Format,
		Status:    models.ExportStatusQueued,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if s.dispatcher == nil {
		if err := s.repo.MarkFailed(ctx, job.ID, "export worker unavailable"); err != nil {
			s.logger.Warn("failed to mark export job failed", zap.Error(err))
		}
		return nil, appErrors.Wrap(errors.New("dispatcher not configured"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "export worker unavailable")
	}
	if err := s.dispatcher.Enqueue(jobs.Job{ID: job.ID, Type: "export"}); err != nil {
		if markErr := s.repo.MarkFailed(ctx, job.ID, "failed to enqueue"); markErr != nil {
			s.logger.Warn("failed to mark export job failed", zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return job, nil
}

// Process renders one queued job. It is the worker queue handler.
func (s *ExportService) Process(ctx context.Context, j jobs.Job) error {
	job, err := s.repo.GetByID(ctx, j.ID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", j.ID, err)
	}
	if err := s.repo.MarkProcessing(ctx, job.ID); err != nil {
		return fmt.Errorf("mark export job processing: %w", err)
	}

	resultURL, err := s.render(ctx, job)
	if err != nil {
		if markErr := s.repo.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			s.logger.Warn("failed to mark export job failed", zap.Error(markErr))
		}
		return fmt.Errorf("render export job %s: %w", job.ID, err)
	}

	if err := s.repo.MarkFinished(ctx, job.ID, resultURL); err != nil {
		return fmt.Errorf("mark export job finished: %w", err)
	}
	s.logger.Info("export job finished", zap.String("job_id", job.ID), zap.String("format", string(job.Format)))
	return nil
}

// Status returns a teacher's job by ID.
func (s *ExportService) Status(ctx context.Context, claims *models.JWTClaims, jobID string) (*models.ExportJob, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.TeacherID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export job belongs to another teacher")
	}
	return job, nil
}

// List returns the teacher's export jobs, newest first.
func (s *ExportService) List(ctx context.Context, claims *models.JWTClaims) ([]models.ExportJob, error) {
	list, err := s.repo.ListByTeacher(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list export jobs")
	}
	return list, nil
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// ResolveDownload validates the token and opens the stored export file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// StartCleanup boots a goroutine that purges expired export files periodically.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.Cleanup(s.cfg.ResultTTL)
				if err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(removed) > 0 {
					s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
				}
			}
		}
	}()
}

func (s *ExportService) render(ctx context.Context, job *models.ExportJob) (string, error) {
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return "", err
	}

	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return "", err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return "", err
	}

	token, _, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return "", err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/exports/download/%s", prefix, token), nil
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	filter := models.ObservationFilter{TeacherID: job.TeacherID}
	title := "Strength Observation Log"
	if job.TargetID != nil {
		filter = models.ObservationFilter{TargetID: *job.TargetID}
		student, err := s.users.FindByID(ctx, *job.TargetID)
		if err != nil {
			return export.Dataset{}, "", fmt.Errorf("load export target: %w", err)
		}
		title = fmt.Sprintf("Strength Observation Log - %s", student.Name)
	}

	observations, err := s.observations.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("load observations: %w", err)
	}

	rows := make([]map[string]string, 0, len(observations))
	for _, obs := range observations {
		rows = append(rows, map[string]string{
			"Date":     obs.CreatedAt.UTC().Format("2006-01-02"),
			"Student":  obs.TargetName,
			"Writer":   obs.WriterName,
			"Role":     string(obs.WriterRole),
			"Category": string(obs.Category),
			"Strength": catalog.DisplayName(obs.StrengthID),
			"Content":  obs.Content,
			"Status":   string(obs.Status),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Date", "Student", "Writer", "Role", "Category", "Strength", "Content", "Status"},
		Rows:    rows,
	}
	return dataset, title, nil
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "roster"
	if job.TargetID != nil {
		scope = *job.TargetID
	}
	return fmt.Sprintf("observations_%s_%s.%s", scope, timestamp, job.Format)
}
