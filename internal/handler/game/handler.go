package game

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arcwright/gamemaster/internal/dice"
	gameService "github.com/arcwright/gamemaster/internal/service/game"
	"github.com/arcwright/gamemaster/pkg/utils"
)

// Handler exposes the game coordinator over HTTP.
type Handler struct {
	coordinator *gameService.Coordinator
	roller      *dice.Roller
}

// New creates the game handler.
func New(coordinator *gameService.Coordinator, roller *dice.Roller) *Handler {
	if roller == nil {
		roller = dice.NewRoller(nil)
	}
	return &Handler{
		coordinator: coordinator,
		roller:      roller,
	}
}

// RegisterRoutes mounts the game routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/messages", h.handleMessage)
	r.Post("/roll", h.handleRoll)
}

// handleMessage runs one inbound chat message through the coordinator and
// returns the ordered reply chunks plus optional narration audio.
func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ChatID      int64  `json:"chatId"`
		UserID      int64  `json:"userId"`
		DisplayName string `json:"displayName"`
		Text        string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ChatID == 0 || payload.UserID == 0 {
		utils.RespondError(w, http.StatusBadRequest, "chatId and userId are required")
		return
	}
	if payload.Text == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if payload.DisplayName == "" {
		payload.DisplayName = "Player"
	}

	reply := h.coordinator.HandleMessage(r.Context(), gameService.Inbound{
		ChatID:      payload.ChatID,
		UserID:      payload.UserID,
		DisplayName: payload.DisplayName,
		Text:        payload.Text,
	})

	utils.RespondJSON(w, http.StatusOK, reply)
}

// handleRoll evaluates a standalone dice expression.
func (h *Handler) handleRoll(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Notation string `json:"notation"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expr, err := dice.Parse(payload.Notation)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid dice notation")
		return
	}

	result := h.roller.Roll(expr)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"notation": expr.String(),
		"draws":    result.Draws,
		"total":    result.Total,
		"text":     result.String(),
	})
}
