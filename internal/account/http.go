package account

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/FindOutRent/FindOutRent/internal/common/auth"
	"github.com/FindOutRent/FindOutRent/internal/common/config"
	"github.com/FindOutRent/FindOutRent/internal/common/logger"
	"github.com/FindOutRent/FindOutRent/internal/common/server"
	"github.com/gin-gonic/gin"
)

// Handler 账号相关的 HTTP 端点。
type Handler struct {
	svc     *Service
	authCfg config.AuthConfig
	log     logger.Logger
}

func NewHandler(svc *Service, authCfg config.AuthConfig, log logger.Logger) *Handler {
	return &Handler{svc: svc, authCfg: authCfg, log: log}
}

// Register 挂载路由。listGuard 给列表读路径额外包一层（熔断）。
func (h *Handler) Register(r gin.IRouter, listGuard ...gin.HandlerFunc) {
	r.POST("/api/signup/customer", h.signup(RoleCustomer))
	r.POST("/api/signup/dealer", h.signup(RoleDealer))
	r.POST("/api/login", h.login)
	r.POST("/api/token/refresh", h.refreshToken)
	r.POST("/api/change-password", h.changePassword)

	r.GET("/api/profile", h.getProfile)
	r.PUT("/api/profile", h.updateProfile)
	r.PATCH("/api/profile", h.updateProfile)
	r.DELETE("/api/profile", h.deactivateProfile)

	r.GET("/api/dealers", append(listGuard, h.list(RoleDealer))...)
	r.GET("/api/customers", append(listGuard, h.list(RoleCustomer))...)
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	DealerName  string `json:"dealer_name"`
	GSTNo       string `json:"gst_no"`
	PANCardNo   string `json:"pan_card_no"`
}

func (h *Handler) signup(role Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}

		in := CreateInput{
			Email:       req.Email,
			Password:    req.Password,
			Role:        role,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			PhoneNumber: req.PhoneNumber,
		}
		switch role {
		case RoleDealer:
			in.Dealer = &DealerProfile{DealerName: req.DealerName, GSTNo: req.GSTNo}
		case RoleCustomer:
			in.Customer = &CustomerProfile{PANCardNo: req.PANCardNo}
		}

		if _, err := h.svc.Create(c.Request.Context(), in); err != nil {
			if errors.Is(err, ErrMissingEmail) || errors.Is(err, ErrDuplicateEmail) {
				if h.log != nil {
					h.log.Warnf("%s signup failed: %v", role, err)
				}
				badRequest(c, err.Error())
				return
			}
			internalError(c, h.log, err)
			return
		}

		msg := "Customer registered successfully!"
		if role == RoleDealer {
			msg = "Dealer registered successfully!"
		}
		c.JSON(http.StatusCreated, gin.H{"message": msg, "status_code": 201, "success": true})
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login 成功时同时下发 access + refresh，并附上完整资料（前端免二次拉取）。
// 失败统一 401，不透露是邮箱还是密码错了。
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	a, ok, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		internalError(c, h.log, err)
		return
	}
	if !ok {
		if h.log != nil {
			h.log.Warnf("invalid login attempt email=%s", NormalizeEmail(req.Email))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "status_code": 401, "success": false})
		return
	}

	pair, err := auth.IssueTokens(h.authCfg, a.ID, string(a.Role))
	if err != nil {
		internalError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"refresh":      pair.RefreshToken,
		"access":       pair.AccessToken,
		"id":           a.ID,
		"email":        a.Email,
		"role":         a.Role,
		"first_name":   a.FirstName,
		"last_name":    a.LastName,
		"phone_number": a.PhoneNumber,
		"dealer_name":  a.DealerName,
		"gst_no":       a.GSTNo,
		"pan_card_no":  a.PANCardNo,
		"is_superuser": a.IsSuperuser,
	})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (h *Handler) refreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Refresh) == "" {
		badRequest(c, "Refresh token is required")
		return
	}
	access, _, err := auth.Refresh(h.authCfg, req.Refresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token", "status_code": 401, "success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access, "status_code": 200, "success": true})
}

type changePasswordRequest struct {
	Email       string `json:"email"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	err := h.svc.ChangePassword(c.Request.Context(), req.Email, req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully!", "status_code": 200, "success": true})
	case errors.Is(err, ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "status_code": 404, "success": false})
	case errors.Is(err, ErrInvalidOldPassword),
		errors.Is(err, ErrPasswordUnchanged),
		errors.Is(err, ErrPasswordTooShort):
		if h.log != nil {
			h.log.Warnf("password change failed: %v", err)
		}
		badRequest(c, err.Error())
	default:
		internalError(c, h.log, err)
	}
}

func (h *Handler) getProfile(c *gin.Context) {
	ai, ok := server.AuthFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}
	a, err := h.svc.Get(c.Request.Context(), ai.Subject)
	if err != nil {
		notFoundOrInternal(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type profileUpdateRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
	DealerName  *string `json:"dealer_name"`
	GSTNo       *string `json:"gst_no"`
	PANCardNo   *string `json:"pan_card_no"`
	Password    *string `json:"password"`
}

func (h *Handler) updateProfile(c *gin.Context) {
	ai, ok := server.AuthFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}
	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	a, err := h.svc.UpdateProfile(c.Request.Context(), ai.Subject, ProfileUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		DealerName:  req.DealerName,
		GSTNo:       req.GSTNo,
		PANCardNo:   req.PANCardNo,
		Password:    req.Password,
	})
	if err != nil {
		notFoundOrInternal(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) deactivateProfile(c *gin.Context) {
	ai, ok := server.AuthFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}
	if err := h.svc.Deactivate(c.Request.Context(), ai.Subject); err != nil {
		notFoundOrInternal(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile deactivated successfully", "status_code": 200, "success": true})
}

// list 角色维度的账号列表：搜索 + 排序 + 分页，响应里附带两类角色的统计。
func (h *Handler) list(role Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var isActive *bool
		if v := c.Query("is_active"); v != "" {
			b := strings.EqualFold(v, "true")
			isActive = &b
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page <= 0 {
			page = 1
		}
		size, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
		if size <= 0 || size > 100 {
			size = 10
		}

		accounts, total, err := h.svc.List(c.Request.Context(), ListFilter{
			Role:      role,
			Query:     c.Query("q"),
			IsActive:  isActive,
			OrderBy:   c.DefaultQuery("order_by", "id"),
			OrderDesc: strings.EqualFold(c.DefaultQuery("order_dir", "asc"), "desc"),
			Offset:    (page - 1) * size,
			Limit:     size,
		})
		if err != nil {
			internalError(c, h.log, err)
			return
		}

		totals, err := h.svc.Totals(c.Request.Context())
		if err != nil {
			internalError(c, h.log, err)
			return
		}

		views := make([]gin.H, 0, len(accounts))
		for i := range accounts {
			views = append(views, roleView(&accounts[i]))
		}

		c.JSON(http.StatusOK, gin.H{
			"count":       total,
			"users":       views,
			"totals":      totals,
			"status_code": 200,
			"success":     true,
		})
	}
}

// roleView 按角色收窄输出字段，不把对方角色的字段带出去。
func roleView(a *Account) gin.H {
	switch a.Role {
	case RoleDealer:
		return gin.H{
			"id":           a.ID,
			"email":        a.Email,
			"phone_number": a.PhoneNumber,
			"dealer_name":  a.DealerName,
			"gst_no":       a.GSTNo,
			"role":         a.Role,
			"is_active":    a.IsActive,
		}
	case RoleCustomer:
		return gin.H{
			"id":           a.ID,
			"email":        a.Email,
			"first_name":   a.FirstName,
			"last_name":    a.LastName,
			"phone_number": a.PhoneNumber,
			"pan_card_no":  a.PANCardNo,
			"role":         a.Role,
			"is_active":    a.IsActive,
		}
	default:
		return gin.H{"id": a.ID, "email": a.Email, "role": a.Role, "is_active": a.IsActive}
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "status_code": 400, "success": false})
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "status_code": 401, "success": false})
}

func notFoundOrInternal(c *gin.Context, log logger.Logger, err error) {
	if errors.Is(err, ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "status_code": 404, "success": false})
		return
	}
	internalError(c, log, err)
}

// internalError 意外错误只记日志，对外不暴露细节。
func internalError(c *gin.Context, log logger.Logger, err error) {
	if log != nil {
		log.Errorf("unexpected error path=%s err=%v", c.FullPath(), err)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred.", "status_code": 500, "success": false})
}
