package http

import (
	"errors"
	"net/http"

	"hobbyhive-chat/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HandleServiceError 把业务错误映射到 HTTP 状态码
func HandleServiceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotAuthenticated) {
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	} else if errors.Is(err, service.ErrEventNotFound) || errors.Is(err, service.ErrRoomNotFound) {
		ErrorResponse(c, http.StatusNotFound, err.Error())
	} else if errors.Is(err, service.ErrEmptyMessage) {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	} else if errors.Is(err, service.ErrHostCannotLeave) || errors.Is(err, service.ErrNotHost) || errors.Is(err, service.ErrTargetIsHost) {
		ErrorResponse(c, http.StatusForbidden, err.Error())
	} else if errors.Is(err, service.ErrPartialRemoval) {
		// 成员资格已删但报名清理未完成；对客户端来说移除已生效
		logrus.WithError(err).Warn("Removal partially completed, repair task enqueued")
		ErrorResponse(c, http.StatusConflict, "removal partially completed, cleanup pending")
	} else if errors.Is(err, service.ErrStorageUnavailable) {
		logrus.WithError(err).Error("Storage unavailable")
		ErrorResponse(c, http.StatusServiceUnavailable, "service temporarily unavailable")
	} else {
		// 记录内部错误便于排查
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
