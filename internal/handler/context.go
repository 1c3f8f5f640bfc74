package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
	"github.com/yourusername/assessment-api/internal/service"
)

// agentFromContext извлекает сведения об агенте, установленные
// auth middleware. Отсутствие agent_id означает, что маршрут
// подключен без RequireAuth — это ошибка конфигурации роутера.
func agentFromContext(c *gin.Context) (service.AgentInfo, error) {
	raw, exists := c.Get("agent_id")
	if !exists {
		return service.AgentInfo{}, apperrors.ErrUnauthorized
	}

	info := service.AgentInfo{AgentID: raw.(uint)}
	if name, ok := c.Get("agent_name"); ok {
		info.FullName = name.(string)
	}
	if email, ok := c.Get("agent_email"); ok {
		info.Email = email.(string)
	}
	return info, nil
}
