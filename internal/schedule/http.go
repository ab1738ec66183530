package schedule

import (
	"errors"
	"net/http"
	"strings"

	"github.com/FindOutRent/FindOutRent/internal/common/logger"
	"github.com/FindOutRent/FindOutRent/internal/common/server"
	"github.com/gin-gonic/gin"
)

// Handler 排期相关的 HTTP 端点。
type Handler struct {
	engine *Engine
	log    logger.Logger
}

func NewHandler(engine *Engine, log logger.Logger) *Handler {
	return &Handler{engine: engine, log: log}
}

func (h *Handler) Register(r gin.IRouter, listGuard ...gin.HandlerFunc) {
	r.POST("/api/schedules", h.create)
	r.PUT("/api/schedules/:id", h.update)
	r.GET("/api/schedules/vehicle/:id", append(listGuard, h.listByVehicle)...)
	r.GET("/api/dealer/bookings", append(listGuard, h.dealerBookings)...)
}

type scheduleRequest struct {
	Vehicle   string `json:"vehicle"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (h *Handler) create(c *gin.Context) {
	ai, ok := server.AuthFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "status_code": 401, "success": false})
		return
	}
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Vehicle) == "" {
		h.badRequest(c, "vehicle is required")
		return
	}
	start, err := ParseDate(req.StartDate)
	if err != nil {
		h.badRequest(c, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := ParseDate(req.EndDate)
	if err != nil {
		h.badRequest(c, "end_date must be YYYY-MM-DD")
		return
	}

	s, err := h.engine.Create(c.Request.Context(), CreateInput{
		VehicleID: req.Vehicle,
		AccountID: ai.Subject,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		h.engineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"schedule": view(s), "status_code": 201, "success": true})
}

func (h *Handler) update(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	start, err := ParseDate(req.StartDate)
	if err != nil {
		h.badRequest(c, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := ParseDate(req.EndDate)
	if err != nil {
		h.badRequest(c, "end_date must be YYYY-MM-DD")
		return
	}

	s, err := h.engine.Update(c.Request.Context(), c.Param("id"), start, end)
	if err != nil {
		h.engineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": view(s), "status_code": 200, "success": true})
}

func (h *Handler) listByVehicle(c *gin.Context) {
	schedules, err := h.engine.ListForVehicle(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.engineError(c, err)
		return
	}
	h.renderList(c, schedules)
}

// dealerBookings 车商视角：自己名下所有车辆的全部排期。
func (h *Handler) dealerBookings(c *gin.Context) {
	ai, ok := server.AuthFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "status_code": 401, "success": false})
		return
	}
	schedules, err := h.engine.ListForOwner(c.Request.Context(), ai.Subject)
	if err != nil {
		h.engineError(c, err)
		return
	}
	h.renderList(c, schedules)
}

func (h *Handler) renderList(c *gin.Context, schedules []Schedule) {
	views := make([]gin.H, 0, len(schedules))
	for i := range schedules {
		views = append(views, view(&schedules[i]))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(views), "schedules": views, "status_code": 200, "success": true})
}

func view(s *Schedule) gin.H {
	return gin.H{
		"id":         s.ID,
		"vehicle":    s.VehicleID,
		"account":    s.AccountID,
		"start_date": s.StartDate.Format(DateLayout),
		"end_date":   s.EndDate.Format(DateLayout),
		"created_at": s.CreatedAt,
	}
}

func (h *Handler) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "status_code": 400, "success": false})
}

// engineError 区间问题和日期冲突都算客户端错误，给出能直接展示的提示。
func (h *Handler) engineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvertedRange), errors.Is(err, ErrDateRangeConflict):
		if h.log != nil {
			h.log.Warnf("schedule rejected path=%s err=%v", c.FullPath(), err)
		}
		h.badRequest(c, err.Error())
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found", "status_code": 404, "success": false})
	default:
		if h.log != nil {
			h.log.Errorf("unexpected error path=%s err=%v", c.FullPath(), err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred.", "status_code": 500, "success": false})
	}
}
