package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/middleware"
	"github.com/huangang/taskboard/internal/services"
	"github.com/huangang/taskboard/pkg/logger"
	"github.com/huangang/taskboard/pkg/response"
)

// fail writes err as an API error. Causes of unavailable and internal
// errors are logged here and never sent to the client.
func fail(c *gin.Context, err error) {
	switch domain.KindOf(err) {
	case domain.KindUnavailable, domain.KindInternal:
		logger.Error().Err(err).
			Str("route", c.FullPath()).
			Uint("user_id", middleware.GetUserID(c)).
			Msg("request failed")
	}
	response.Error(c, err)
}

func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
