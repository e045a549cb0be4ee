package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/strength-log-api/internal/middleware"
	"github.com/noah-isme/strength-log-api/internal/models"
	appErrors "github.com/noah-isme/strength-log-api/pkg/errors"
)

type reportServiceMock struct {
	draftResp *models.DraftReportResponse
	draftErr  error
	lastReq   models.DraftReportRequest
}

func (m *reportServiceMock) Draft(ctx context.Context, claims *models.JWTClaims, req models.DraftReportRequest) (*models.DraftReportResponse, error) {
	m.lastReq = req
	return m.draftResp, m.draftErr
}

func TestReportHandlerDraft(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		draftResp: &models.DraftReportResponse{
			StudentID:     "s1",
			StudentName:   "강하늘",
			Mode:          models.ReportModeStandard,
			EvidenceCount: 4,
			Text:          "수업 중 어려운 과제도 끝까지 해결하는 끈기를 보임.",
		},
	}
	handler := NewReportHandler(mockSvc)

	payload, _ := json.Marshal(models.DraftReportRequest{StudentID: "s1", APIKey: "key-1"})
	c, w := newGinContext(http.MethodPost, "/reports/draft", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher})

	handler.Draft(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "s1", mockSvc.lastReq.StudentID)
	require.Contains(t, w.Body.String(), "끈기")
}

func TestReportHandlerDraftUpstreamFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		draftErr: appErrors.Clone(appErrors.ErrUpstream, "text generation call failed, check the API key"),
	}
	handler := NewReportHandler(mockSvc)

	payload, _ := json.Marshal(models.DraftReportRequest{StudentID: "s1", APIKey: "bad-key"})
	c, w := newGinContext(http.MethodPost, "/reports/draft", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher})

	handler.Draft(c)
	require.Equal(t, http.StatusBadGateway, w.Code)
}

func TestReportHandlerDraftRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{})

	c, w := newGinContext(http.MethodPost, "/reports/draft", []byte(`{}`))

	handler.Draft(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
