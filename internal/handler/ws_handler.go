package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/assessment-api/internal/middleware"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
	"github.com/yourusername/assessment-api/internal/service"
)

// Таймауты WebSocket-соединения прокторинга
const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 90 * time.Second
)

// WSHandler принимает анти-чит телеметрию по WebSocket: клиент стримит
// батчи нарушений, сервер отвечает подтверждениями и пушит событие
// принудительного завершения при пересечении порога автоотправки.
type WSHandler struct {
	proctoringService *service.ProctoringService
	attemptService    *service.AttemptService
	candidateService  *service.CandidateService
	jwtSecret         []byte
	allowedOrigins    []string
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(
	proctoringService *service.ProctoringService,
	attemptService *service.AttemptService,
	candidateService *service.CandidateService,
	jwtSecret string,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		proctoringService: proctoringService,
		attemptService:    attemptService,
		candidateService:  candidateService,
		jwtSecret:         []byte(jwtSecret),
		allowedOrigins:    allowedOrigins,
	}
}

func (h *WSHandler) upgrader() gorillaws.Upgrader {
	return gorillaws.Upgrader{
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// Пустой Origin — не браузерный клиент (десктопное приложение
			// прокторинга, curl), такие подключения разрешаем
			if origin == "" {
				return true
			}

			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}

			log.Printf("WebSocket: rejected unauthorized origin: %s", origin)
			return false
		},
	}
}

// wsEnvelope — обертка входящего и исходящего сообщения
type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// violationBatchEvent — полезная нагрузка сообщения violation:batch
type violationBatchEvent struct {
	AssessmentID uint               `json:"assessment_id"`
	AttemptID    uint               `json:"attempt_id"`
	Violations   []ViolationRequest `json:"violations"`
}

// HandleConnection обрабатывает входящее WebSocket соединение.
// Аутентификация — JWT в query-параметре token (заголовки при
// WebSocket-рукопожатии из браузера недоступны).
func (h *WSHandler) HandleConnection(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authentication token parameter"})
		return
	}

	claims, err := h.parseToken(token)
	if err != nil {
		log.Printf("WebSocket: Invalid or expired token - %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	candidate, err := h.candidateService.GetByAgentID(claims.AgentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	up := h.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Error upgrading connection: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("WebSocket: Connection upgraded for AgentID: %d", claims.AgentID)

	h.readLoop(conn, candidate.ID)
}

// readLoop читает сообщения до закрытия соединения клиентом
func (h *WSHandler) readLoop(conn *gorillaws.Conn, candidateID uint) {
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if gorillaws.IsUnexpectedCloseError(err, gorillaws.CloseGoingAway, gorillaws.CloseNormalClosure) {
				log.Printf("[WSHandler] Неожиданное закрытие соединения: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var envelope wsEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			h.sendError(conn, "invalid_format", "Failed to parse message envelope")
			continue
		}

		switch envelope.Type {
		case "violation:batch":
			h.handleViolationBatch(conn, candidateID, envelope.Data)
		case "heartbeat":
			h.send(conn, "server:heartbeat", map[string]interface{}{
				"timestamp": time.Now().UnixMilli(),
			})
		default:
			h.sendError(conn, "unknown_type", fmt.Sprintf("Unknown message type %q", envelope.Type))
		}
	}
}

// handleViolationBatch принимает батч нарушений и отвечает подтверждением.
// Ошибки приема не закрывают соединение: клиент перешлет батч.
func (h *WSHandler) handleViolationBatch(conn *gorillaws.Conn, candidateID uint, data json.RawMessage) {
	var event violationBatchEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.sendError(conn, "invalid_format", "Failed to parse violation:batch event")
		return
	}

	violations := make([]service.ViolationInput, 0, len(event.Violations))
	for _, v := range event.Violations {
		violations = append(violations, toViolationInput(v))
	}

	result, err := h.proctoringService.LogBatch(candidateID, event.AssessmentID, event.AttemptID, violations)
	if err != nil {
		log.Printf("[WSHandler] Ошибка приема батча нарушений попытки #%d: %v", event.AttemptID, err)
		h.sendError(conn, "batch_error", err.Error())
		return
	}

	h.send(conn, "violation:ack", result)

	if result.ShouldAutoSubmit {
		if _, err := h.attemptService.Terminate(event.AttemptID, "violation threshold exceeded"); err != nil {
			if !errors.Is(err, apperrors.ErrConflict) {
				log.Printf("[WSHandler] Не удалось принудительно завершить попытку #%d: %v", event.AttemptID, err)
				return
			}
		}
		h.send(conn, "attempt:terminated", map[string]interface{}{
			"attempt_id": event.AttemptID,
			"reason":     "violation threshold exceeded",
		})
	}
}

func (h *WSHandler) send(conn *gorillaws.Conn, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[WSHandler] Ошибка сериализации %s: %v", msgType, err)
		return
	}

	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(wsEnvelope{Type: msgType, Data: data}); err != nil {
		log.Printf("[WSHandler] Ошибка отправки %s: %v", msgType, err)
	}
}

func (h *WSHandler) sendError(conn *gorillaws.Conn, code, message string) {
	h.send(conn, "server:error", map[string]string{
		"code":    code,
		"message": message,
	})
}

func (h *WSHandler) parseToken(tokenString string) (*middleware.AgentClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &middleware.AgentClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*middleware.AgentClaims)
	if !ok || !token.Valid || claims.AgentID == 0 {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
