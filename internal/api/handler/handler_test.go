package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"teamdesk/backend/internal/dto"
	"teamdesk/backend/internal/service"
	"teamdesk/backend/pkg/jwt"
	"teamdesk/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult      *dto.TokenResponse
	loginErr         error
	refreshResult    *dto.TokenResponse
	refreshErr       error
	logoutErr        error
	getCurrentResult *dto.UserResponse
	getCurrentErr    error
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) RefreshToken(_ context.Context, _ string) (*dto.TokenResponse, error) {
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, _ *jwt.Claims) error {
	return m.logoutErr
}
func (m *mockAuthService) GetCurrentUser(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.getCurrentResult, m.getCurrentErr
}

// ── Mock AvailabilityService ──

type mockAvailabilityService struct {
	getResult    *dto.AvailabilityResponse
	getErr       error
	teamResult   *dto.TeamAvailabilityResponse
	teamErr      error
	setResult    *dto.AvailabilityResponse
	setErr       error
	activityErr  error
	scheduleRes  *dto.AvailabilityResponse
	scheduleErr  error
	bizHoursErr  error
	sweepReport  *service.SweepReport
	sweepErr     error
	historyResult []dto.HistoryEntryResponse
	historyTotal  int64
	historyErr    error
	lastSetReq   *dto.UpdateAvailabilityRequest
	lastActivity string
}

func (m *mockAvailabilityService) GetStatus(_ context.Context, _, _ string) (*dto.AvailabilityResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockAvailabilityService) GetTeamStatus(_ context.Context, _, _ string) (*dto.TeamAvailabilityResponse, error) {
	return m.teamResult, m.teamErr
}
func (m *mockAvailabilityService) SetStatus(_ context.Context, _, _ string, req *dto.UpdateAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	m.lastSetReq = req
	return m.setResult, m.setErr
}
func (m *mockAvailabilityService) RecordActivity(_ context.Context, userID, _ string) error {
	m.lastActivity = userID
	return m.activityErr
}
func (m *mockAvailabilityService) ScheduleReturn(_ context.Context, _, _ string, _ *dto.ScheduledReturnRequest) (*dto.AvailabilityResponse, error) {
	return m.scheduleRes, m.scheduleErr
}
func (m *mockAvailabilityService) SetBusinessHours(_ context.Context, _, _ string, _ *dto.BusinessHoursRequest) error {
	return m.bizHoursErr
}
func (m *mockAvailabilityService) ListHistory(_ context.Context, _ string, _ *dto.HistoryListRequest) ([]dto.HistoryEntryResponse, int64, error) {
	return m.historyResult, m.historyTotal, m.historyErr
}
func (m *mockAvailabilityService) Sweep(_ context.Context, _ time.Time) (*service.SweepReport, error) {
	return m.sweepReport, m.sweepErr
}

// ── Mock AssignmentService / WorkloadService ──

type mockAssignmentService struct {
	result *dto.AutoAssignResponse
	err    error
}

func (m *mockAssignmentService) AutoAssign(_ context.Context, _, _ string) (*dto.AutoAssignResponse, error) {
	return m.result, m.err
}

type mockWorkloadService struct {
	result *dto.WorkloadResponse
	err    error
}

func (m *mockWorkloadService) Distribution(_ context.Context, _ string) (*dto.WorkloadResponse, error) {
	return m.result, m.err
}

// ── Mock AnalyticsService ──

type mockAnalyticsService struct {
	result     *dto.AnalyticsResponse
	err        error
	exportData []byte
	exportName string
	exportErr  error
}

func (m *mockAnalyticsService) Analyze(_ context.Context, _ string, _, _ time.Time) (*dto.AnalyticsResponse, error) {
	return m.result, m.err
}
func (m *mockAnalyticsService) Export(_ context.Context, _ string, _, _ time.Time) ([]byte, string, error) {
	return m.exportData, m.exportName, m.exportErr
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setAuth(c *gin.Context) {
	c.Set("user_id", "test-user-id")
	c.Set("role", "admin")
	c.Set("claims", &jwt.Claims{UserID: "test-user-id", Role: "admin", TokenType: "access"})
	c.Next()
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    900,
		},
	}
	h := NewAuthHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Email:    "zhangwei@example.com",
		Password: "Test1234",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Email:    "zhangwei@example.com",
		Password: "wrong-password",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 11001 {
		t.Errorf("expected error code 11001, got %d", resp.Code)
	}
}

func TestAuthHandler_Logout_Success(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/logout", nil)

	r := gin.New()
	r.POST("/auth/logout", setAuth, h.Logout)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AvailabilityHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAvailabilityHandler_SetMyStatus_Success(t *testing.T) {
	mock := &mockAvailabilityService{
		setResult: &dto.AvailabilityResponse{
			UserID:    "test-user-id",
			MailboxID: "mb-1",
			Status:    "busy",
		},
	}
	h := NewAvailabilityHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/mailboxes/mb-1/availability/me", jsonBody(dto.UpdateAvailabilityRequest{
		Status: "busy",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/mailboxes/:mailbox_id/availability/me", setAuth, h.SetMyStatus)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastSetReq == nil || mock.lastSetReq.Status != "busy" {
		t.Error("expected status busy to be forwarded to service")
	}
}

func TestAvailabilityHandler_SetMyStatus_InvalidEnum(t *testing.T) {
	h := NewAvailabilityHandler(&mockAvailabilityService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/mailboxes/mb-1/availability/me", jsonBody(map[string]string{
		"status": "vacation",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/mailboxes/:mailbox_id/availability/me", setAuth, h.SetMyStatus)
	r.ServeHTTP(w, req)

	// oneof 校验在绑定层拦截
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAvailabilityHandler_SetMyStatus_Unauthenticated(t *testing.T) {
	h := NewAvailabilityHandler(&mockAvailabilityService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/mailboxes/mb-1/availability/me", jsonBody(dto.UpdateAvailabilityRequest{
		Status: "busy",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/mailboxes/:mailbox_id/availability/me", h.SetMyStatus) // 未注入认证上下文
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAvailabilityHandler_SetMyStatus_NotMember(t *testing.T) {
	h := NewAvailabilityHandler(&mockAvailabilityService{setErr: service.ErrAvailabilityNotMember})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/mailboxes/mb-other/availability/me", jsonBody(dto.UpdateAvailabilityRequest{
		Status: "busy",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/mailboxes/:mailbox_id/availability/me", setAuth, h.SetMyStatus)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 12006 {
		t.Errorf("expected error code 12006, got %d", resp.Code)
	}
}

func TestAvailabilityHandler_GetTeamStatus_MailboxNotFound(t *testing.T) {
	h := NewAvailabilityHandler(&mockAvailabilityService{teamErr: service.ErrAvailabilityMailboxNotFound})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/mailboxes/mb-missing/availability", nil)

	r := gin.New()
	r.GET("/mailboxes/:mailbox_id/availability", setAuth, h.GetTeamStatus)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 12001 {
		t.Errorf("expected error code 12001, got %d", resp.Code)
	}
}

func TestAvailabilityHandler_RecordActivity(t *testing.T) {
	mock := &mockAvailabilityService{}
	h := NewAvailabilityHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/mailboxes/mb-1/availability/me/activity", nil)

	r := gin.New()
	r.POST("/mailboxes/:mailbox_id/availability/me/activity", setAuth, h.RecordActivity)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastActivity != "test-user-id" {
		t.Errorf("expected activity recorded for test-user-id, got %q", mock.lastActivity)
	}
}

// ═══════════════════════════════════════════════════════════
// AssignmentHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAssignmentHandler_AutoAssign_Skipped(t *testing.T) {
	mock := &mockAssignmentService{
		result: &dto.AutoAssignResponse{
			Outcome:        dto.AssignOutcomeSkipped,
			ConversationID: "c-1",
			SkipReason:     "当前无可接单成员",
		},
	}
	h := NewAssignmentHandler(mock, &mockWorkloadService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/mailboxes/mb-1/conversations/c-1/auto-assign", nil)

	r := gin.New()
	r.POST("/mailboxes/:mailbox_id/conversations/:conversation_id/auto-assign", setAuth, h.AutoAssign)
	r.ServeHTTP(w, req)

	// skipped 是正常业务结果，HTTP 200
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAssignmentHandler_AutoAssign_NotFound(t *testing.T) {
	h := NewAssignmentHandler(&mockAssignmentService{err: service.ErrAssignConversationNotFound}, &mockWorkloadService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/mailboxes/mb-1/conversations/c-missing/auto-assign", nil)

	r := gin.New()
	r.POST("/mailboxes/:mailbox_id/conversations/:conversation_id/auto-assign", setAuth, h.AutoAssign)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestAssignmentHandler_GetWorkload(t *testing.T) {
	h := NewAssignmentHandler(&mockAssignmentService{}, &mockWorkloadService{
		result: &dto.WorkloadResponse{MailboxID: "mb-1"},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/mailboxes/mb-1/workload", nil)

	r := gin.New()
	r.GET("/mailboxes/:mailbox_id/workload", setAuth, h.GetWorkload)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AnalyticsHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAnalyticsHandler_GetAnalytics_Success(t *testing.T) {
	h := NewAnalyticsHandler(&mockAnalyticsService{
		result: &dto.AnalyticsResponse{MailboxID: "mb-1", TotalSessions: 3},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/mailboxes/mb-1/analytics?start=2026-08-01&end=2026-08-08", nil)

	r := gin.New()
	r.GET("/mailboxes/:mailbox_id/analytics", setAuth, h.GetAnalytics)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAnalyticsHandler_GetAnalytics_BadTime(t *testing.T) {
	h := NewAnalyticsHandler(&mockAnalyticsService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/mailboxes/mb-1/analytics?start=yesterday&end=today", nil)

	r := gin.New()
	r.GET("/mailboxes/:mailbox_id/analytics", setAuth, h.GetAnalytics)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAnalyticsHandler_Export_SetsHeaders(t *testing.T) {
	h := NewAnalyticsHandler(&mockAnalyticsService{
		exportData: []byte("PK fake-xlsx"),
		exportName: "availability_20260801_20260808.xlsx",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/mailboxes/mb-1/analytics/export?start=2026-08-01&end=2026-08-08", nil)

	r := gin.New()
	r.GET("/mailboxes/:mailbox_id/analytics/export", setAuth, h.ExportAnalytics)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); cd == "" {
		t.Error("expected Content-Disposition header to be set")
	}
}

