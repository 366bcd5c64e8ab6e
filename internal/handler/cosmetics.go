package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"plus-api/internal/middleware"
	"plus-api/internal/model"
	"plus-api/internal/service"
	"plus-api/pkg/apierror"
	"plus-api/pkg/response"
	"plus-api/pkg/uid"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxSelectionBody = 16 << 10
	maxActiveBody    = 256 << 10

	// MaxActivePlayers caps one bulk active lookup.
	MaxActivePlayers = 500
)

// CosmeticsHandler serves catalog and per-player cosmetic endpoints.
type CosmeticsHandler struct {
	cosmetics *service.CosmeticService
	selection *service.SelectionService
	logger    *zap.Logger
}

// NewCosmeticsHandler creates a new cosmetics handler.
func NewCosmeticsHandler(cosmetics *service.CosmeticService, selection *service.SelectionService, logger *zap.Logger) *CosmeticsHandler {
	return &CosmeticsHandler{
		cosmetics: cosmetics,
		selection: selection,
		logger:    logger.Named("cosmetics"),
	}
}

// List handles GET /cosmetics
func (h *CosmeticsHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, nil)
}

// ListCapes handles GET /capes
func (h *CosmeticsHandler) ListCapes(w http.ResponseWriter, r *http.Request) {
	cape := model.CategoryCape
	h.list(w, r, &cape)
}

func (h *CosmeticsHandler) list(w http.ResponseWriter, r *http.Request, category *model.Category) {
	infos, err := h.cosmetics.List(r.Context(), category)
	if err != nil {
		h.logger.Error("failed to list cosmetics", zap.Error(err))
		response.Error(w, err)
		return
	}
	response.Raw(w, http.StatusOK, infos)
}

// playerFromRequest prefers an explicit ?player= over the token subject.
func playerFromRequest(r *http.Request) (uuid.UUID, error) {
	if raw := r.URL.Query().Get("player"); raw != "" {
		player, err := uid.ParsePlayer(raw)
		if err != nil {
			return uuid.Nil, invalidField("player", "%s", err.Error())
		}
		return player, nil
	}
	if td := middleware.GetTokenDataFromContext(r.Context()); td != nil {
		return td.PlayerUUID, nil
	}
	return uuid.Nil, invalidField("player", "player is required")
}

// GetPlayer handles GET /cosmetics/player
func (h *CosmeticsHandler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := playerFromRequest(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	result, err := h.cosmetics.ForPlayer(r.Context(), player)
	if err != nil {
		h.logger.Error("failed to read player cosmetics", zap.Stringer("player", player), zap.Error(err))
		response.Error(w, err)
		return
	}
	response.Raw(w, http.StatusOK, result)
}

// UpdateActiveRequest is the body of PUT /cosmetics/player. A null value
// clears the category.
type UpdateActiveRequest struct {
	Active map[string]json.RawMessage `json:"active"`
}

func (req UpdateActiveRequest) selections() (map[string]*int64, error) {
	if req.Active == nil {
		return nil, invalidField("active", "active is required")
	}
	out := make(map[string]*int64, len(req.Active))
	for key, raw := range req.Active {
		if string(raw) == "null" {
			out[key] = nil
			continue
		}
		var id int64
		if err := json.Unmarshal(raw, &id); err != nil {
			return nil, invalidField("active."+key, "cosmetic id must be an integer or null")
		}
		out[key] = &id
	}
	return out, nil
}

// UpdateActive handles PUT /cosmetics/player
func (h *CosmeticsHandler) UpdateActive(w http.ResponseWriter, r *http.Request) {
	td := middleware.GetTokenDataFromContext(r.Context())
	if td == nil {
		response.Error(w, apierror.Unauthorized("Player token required"))
		return
	}

	var req UpdateActiveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSelectionBody)).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("Invalid JSON body"))
		return
	}

	selections, err := req.selections()
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.selection.UpdateActive(r.Context(), td.PlayerUUID, selections); err != nil {
		h.logger.Info("selection rejected", zap.Stringer("player", td.PlayerUUID), zap.Error(err))
		response.Error(w, toAPIError(err))
		return
	}
	response.NoContent(w)
}

// ActiveRequest is the body of POST /cosmetics/active.
type ActiveRequest struct {
	Players []string `json:"players"`
}

// ActiveResponse maps each player to their active cosmetic ids. Players
// with nothing active are omitted.
type ActiveResponse struct {
	Cosmetics map[string][]int64 `json:"cosmetics"`
}

// Active handles POST /cosmetics/active
func (h *CosmeticsHandler) Active(w http.ResponseWriter, r *http.Request) {
	var req ActiveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActiveBody)).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("Invalid JSON body"))
		return
	}
	if len(req.Players) > MaxActivePlayers {
		response.Error(w, invalidField("players", "at most %d players per request", MaxActivePlayers))
		return
	}

	players := make([]uuid.UUID, 0, len(req.Players))
	for i, raw := range req.Players {
		player, err := uid.ParsePlayer(raw)
		if err != nil {
			response.Error(w, invalidField(fmt.Sprintf("players[%d]", i), "%s", err.Error()))
			return
		}
		players = append(players, player)
	}

	active, err := h.cosmetics.ActiveForPlayers(r.Context(), players)
	if err != nil {
		h.logger.Error("failed to read active cosmetics", zap.Int("players", len(players)), zap.Error(err))
		response.Error(w, err)
		return
	}

	resp := ActiveResponse{Cosmetics: make(map[string][]int64, len(active))}
	for player, ids := range active {
		resp.Cosmetics[player.String()] = ids
	}
	response.Raw(w, http.StatusOK, resp)
}
