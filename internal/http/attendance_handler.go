package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sfa-backend/internal/service"
)

// AttendanceHandler mantiene dependencias para endpoints de asistencia.
type AttendanceHandler struct {
	logger     *zap.Logger
	attendance *service.AttendanceService
	limiter    service.ClockRateLimiter
}

// NewAttendanceHandler crea una instancia de AttendanceHandler.
func NewAttendanceHandler(logger *zap.Logger, attendance *service.AttendanceService, limiter service.ClockRateLimiter) *AttendanceHandler {
	return &AttendanceHandler{
		logger:     logger,
		attendance: attendance,
		limiter:    limiter,
	}
}

// ClockIn maneja POST /attendance/clock-in.
func (h *AttendanceHandler) ClockIn(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}
	var req struct {
		ClientTime string `json:"client_time" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid clock in request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if h.limiter != nil && !h.limiter.Allow(claims.UserID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}

	result := h.attendance.ClockIn(c.Request.Context(), claims.UserID, req.ClientTime)
	if !result.Success {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ClockOut maneja POST /attendance/clock-out.
func (h *AttendanceHandler) ClockOut(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}
	var req struct {
		ClientTime string `json:"client_time" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid clock out request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if h.limiter != nil && !h.limiter.Allow(claims.UserID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}

	result := h.attendance.ClockOut(c.Request.Context(), claims.UserID, req.ClientTime)
	if !result.Success {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Status maneja GET /attendance/status.
func (h *AttendanceHandler) Status(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}
	c.JSON(http.StatusOK, h.attendance.CurrentStatus(c.Request.Context(), claims.UserID))
}

// Sessions maneja GET /attendance/sessions.
func (h *AttendanceHandler) Sessions(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}

	period := c.DefaultQuery("period", "today")
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	c.JSON(http.StatusOK, h.attendance.UserSessions(c.Request.Context(), claims.UserID, period, startDate, endDate, limit))
}

// ForceClockOut maneja POST /attendance/force-clock-out/:userId. El rol
// admin lo exige RequireRole en la ruta.
func (h *AttendanceHandler) ForceClockOut(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	result := h.attendance.ForceClockOut(c.Request.Context(), userID)
	if !result.Success {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}
