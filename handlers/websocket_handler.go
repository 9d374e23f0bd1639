package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/team-space/middleware"
	"github.com/Dosada05/team-space/realtime"
	"github.com/Dosada05/team-space/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub         *realtime.Hub
	teamService services.TeamService
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler accepts upgrades only from allowedOrigins; an empty list allows any origin.
func NewWebSocketHandler(hub *realtime.Hub, ts services.TeamService, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		teamService: ts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// ServeWs обрабатывает WebSocket запросы для конкретной команды.
// Клиент должен подключаться к /ws/teams/{teamID}
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	// Подписаться может только тот, кто видит команду.
	if err := h.teamService.CanAccessTeam(r.Context(), teamID, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader.Upgrade сам отправляет HTTP ошибку клиенту
		slog.WarnContext(r.Context(), "failed to upgrade websocket connection", slog.String("team_id", teamID), slog.Any("error", err))
		return
	}

	client := h.hub.NewClient(conn, services.TeamRoom(teamID), currentUserID)
	if !h.hub.Join(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
