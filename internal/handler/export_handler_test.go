package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/strength-log-api/internal/middleware"
	"github.com/noah-isme/strength-log-api/internal/models"
	"github.com/noah-isme/strength-log-api/internal/service"
	appErrors "github.com/noah-isme/strength-log-api/pkg/errors"
)

type exportServiceMock struct {
	enqueueResp *models.ExportJob
	enqueueErr  error
	statusResp  *models.ExportJob
	statusErr   error
	listResp    []models.ExportJob
	download    *service.ExportDownload
	downloadErr error
}

func (m *exportServiceMock) Enqueue(ctx context.Context, claims *models.JWTClaims, req models.ExportRequest) (*models.ExportJob, error) {
	return m.enqueueResp, m.enqueueErr
}

func (m *exportServiceMock) Status(ctx context.Context, claims *models.JWTClaims, jobID string) (*models.ExportJob, error) {
	return m.statusResp, m.statusErr
}

func (m *exportServiceMock) List(ctx context.Context, claims *models.JWTClaims) ([]models.ExportJob, error) {
	return m.listResp, nil
}

func (m *exportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	return m.download, m.downloadErr
}

func TestExportHandlerEnqueue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportServiceMock{
		enqueueResp: &models.ExportJob{ID: "job-1", Status: models.ExportStatusQueued, Format: models.ExportFormatCSV},
	}
	handler := NewExportHandler(mockSvc)

	payload, _ := json.Marshal(models.ExportRequest{Format: models.ExportFormatCSV})
	c, w := newGinContext(http.MethodPost, "/exports", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher})

	handler.Enqueue(c)
	require.Equal(t, http.StatusAccepted, w.Code)
}

func TestExportHandlerStatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportServiceMock{
		statusErr: appErrors.Clone(appErrors.ErrNotFound, "export job not found"),
	}
	handler := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/exports/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher})

	handler.Status(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	file, err := os.CreateTemp("", "export*.csv")
	require.NoError(t, err)
	defer os.Remove(file.Name())
	_, _ = file.WriteString("Date,Student\n")
	_, _ = file.Seek(0, 0)

	mockSvc := &exportServiceMock{
		download: &service.ExportDownload{
			File:      file,
			Filename:  "observations.csv",
			Format:    models.ExportFormatCSV,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	handler := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/exports/download/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "observations.csv")
}

func TestExportHandlerDownloadMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exportServiceMock{})

	c, w := newGinContext(http.MethodGet, "/exports/download/", nil)

	handler.Download(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
