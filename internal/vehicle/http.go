package vehicle

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/FindOutRent/FindOutRent/internal/account"
	"github.com/FindOutRent/FindOutRent/internal/common/logger"
	"github.com/FindOutRent/FindOutRent/internal/common/server"
	"github.com/FindOutRent/FindOutRent/internal/imagestore"
	"github.com/gin-gonic/gin"
)

// Handler 车辆目录的 HTTP 端点。
type Handler struct {
	svc      *Service
	accounts *account.Service
	images   *imagestore.Store
	log      logger.Logger
}

func NewHandler(svc *Service, accounts *account.Service, images *imagestore.Store, log logger.Logger) *Handler {
	return &Handler{svc: svc, accounts: accounts, images: images, log: log}
}

func (h *Handler) Register(r gin.IRouter, listGuard ...gin.HandlerFunc) {
	r.POST("/api/vehicles", h.create)
	r.GET("/api/vehicles/all", append(listGuard, h.listAll)...)
	r.GET("/api/vehicles/user", h.listMine)
	r.GET("/api/vehicles/user/:id", h.listByUser)
	r.GET("/api/vehicles/:id", h.get)
	r.PUT("/api/vehicles/:id", h.update)
	r.DELETE("/api/vehicles/:id", h.remove)
}

// create 接 multipart 表单：普通字段 + images[] 文件。
// 图片先落盘再和车辆同事务入库；入库失败时把已落盘的文件清掉。
func (h *Handler) create(c *gin.Context) {
	ai, ok := server.AuthFromContext(c)
	if !ok {
		h.unauthorized(c)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		h.badRequest(c, "invalid multipart form")
		return
	}

	in := CreateInput{
		OwnerID:     ai.Subject,
		Category:    c.PostForm("category"),
		VehicleType: c.PostForm("vehicle_type"),
		Description: c.PostForm("description"),
		Location:    c.PostForm("location"),
	}
	if in.Category == "" || in.VehicleType == "" {
		h.badRequest(c, "category and vehicle_type are required")
		return
	}
	if v, perr := strconv.Atoi(c.PostForm("capacity")); perr == nil {
		in.Capacity = &v
	}
	in.RentPerHour = parseRent(c.PostForm("rent_per_hour"))
	in.RentPerWeek = parseRent(c.PostForm("rent_per_week"))
	in.RentPerMonth = parseRent(c.PostForm("rent_per_month"))

	var refs []string
	for _, fh := range form.File["images"] {
		ref, serr := h.images.SaveUpload(fh)
		if serr != nil {
			h.cleanupRefs(refs)
			h.badRequest(c, "failed to store image")
			return
		}
		refs = append(refs, ref)
	}
	in.ImageRefs = refs

	v, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		h.cleanupRefs(refs)
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vehicle": h.view(c, v), "status_code": 201, "success": true})
}

func (h *Handler) listAll(c *gin.Context) {
	vehicles, err := h.svc.List(c.Request.Context(), "")
	if err != nil {
		h.internalError(c, err)
		return
	}
	h.renderList(c, vehicles)
}

func (h *Handler) listMine(c *gin.Context) {
	ai, ok := server.AuthFromContext(c)
	if !ok {
		h.unauthorized(c)
		return
	}
	vehicles, err := h.svc.List(c.Request.Context(), ai.Subject)
	if err != nil {
		h.internalError(c, err)
		return
	}
	h.renderList(c, vehicles)
}

func (h *Handler) listByUser(c *gin.Context) {
	vehicles, err := h.svc.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.internalError(c, err)
		return
	}
	h.renderList(c, vehicles)
}

func (h *Handler) get(c *gin.Context) {
	v, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.notFoundOrInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": h.view(c, v), "status_code": 200, "success": true})
}

type updateRequest struct {
	Category     *string  `json:"category"`
	VehicleType  *string  `json:"vehicle_type"`
	Capacity     *int     `json:"capacity"`
	RentPerHour  *float64 `json:"rent_per_hour"`
	RentPerWeek  *float64 `json:"rent_per_week"`
	RentPerMonth *float64 `json:"rent_per_month"`
	Description  *string  `json:"description"`
	Location     *string  `json:"location"`
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	v, err := h.svc.Update(c.Request.Context(), c.Param("id"), UpdateInput{
		Category:     req.Category,
		VehicleType:  req.VehicleType,
		Capacity:     req.Capacity,
		RentPerHour:  req.RentPerHour,
		RentPerWeek:  req.RentPerWeek,
		RentPerMonth: req.RentPerMonth,
		Description:  req.Description,
		Location:     req.Location,
	})
	if err != nil {
		h.notFoundOrInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": h.view(c, v), "status_code": 200, "success": true})
}

// remove 删除车辆；图片行和排期由外键级联清掉，磁盘文件在删前顺手清理。
func (h *Handler) remove(c *gin.Context) {
	id := c.Param("id")
	if v, err := h.svc.Get(c.Request.Context(), id); err == nil {
		for _, img := range v.Images {
			if rerr := h.images.Remove(img.Image); rerr != nil && h.log != nil {
				h.log.Warnf("failed to remove image file ref=%s err=%v", img.Image, rerr)
			}
		}
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.notFoundOrInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vehicle deleted successfully", "status_code": 200, "success": true})
}

func (h *Handler) renderList(c *gin.Context, vehicles []Vehicle) {
	views := make([]gin.H, 0, len(vehicles))
	for i := range vehicles {
		views = append(views, h.view(c, &vehicles[i]))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(views), "vehicles": views, "status_code": 200, "success": true})
}

// view 图片引用展开成可访问 URL，并附上车商的公开信息。
func (h *Handler) view(c *gin.Context, v *Vehicle) gin.H {
	urls := make([]string, 0, len(v.Images))
	for _, img := range v.Images {
		urls = append(urls, h.images.URL(img.Image))
	}

	out := gin.H{
		"id":             v.ID,
		"category":       v.Category,
		"vehicle_type":   v.VehicleType,
		"capacity":       v.Capacity,
		"rent_per_hour":  v.RentPerHour,
		"rent_per_week":  v.RentPerWeek,
		"rent_per_month": v.RentPerMonth,
		"description":    v.Description,
		"location":       v.Location,
		"images":         urls,
		"created_at":     v.CreatedAt,
	}

	if v.OwnerID != nil && h.accounts != nil {
		if a, err := h.accounts.Get(c.Request.Context(), *v.OwnerID); err == nil {
			out["dealer"] = gin.H{
				"id":           a.ID,
				"dealer_name":  a.DealerName,
				"email":        a.Email,
				"phone_number": a.PhoneNumber,
			}
		}
	}
	return out
}

func (h *Handler) cleanupRefs(refs []string) {
	for _, ref := range refs {
		if err := h.images.Remove(ref); err != nil && h.log != nil {
			h.log.Warnf("failed to clean up image ref=%s err=%v", ref, err)
		}
	}
}

func parseRent(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func (h *Handler) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "status_code": 400, "success": false})
}

func (h *Handler) unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "status_code": 401, "success": false})
}

func (h *Handler) notFoundOrInternal(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found", "status_code": 404, "success": false})
		return
	}
	h.internalError(c, err)
}

func (h *Handler) internalError(c *gin.Context, err error) {
	if h.log != nil {
		h.log.Errorf("unexpected error path=%s err=%v", c.FullPath(), err)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred.", "status_code": 500, "success": false})
}
