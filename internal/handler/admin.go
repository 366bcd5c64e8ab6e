package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"plus-api/internal/model"
	"plus-api/internal/repository"
	"plus-api/internal/service"
	"plus-api/pkg/apierror"
	"plus-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler handles catalog maintenance and runtime stats.
type AdminHandler struct {
	cosmetics *service.CosmeticService
	dbType    string // sqlite, postgres or mysql
	cacheType string
	startTime time.Time
	logger    *zap.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(cosmetics *service.CosmeticService, dbType, cacheType string, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		cosmetics: cosmetics,
		dbType:    dbType,
		cacheType: cacheType,
		startTime: time.Now(),
		logger:    logger.Named("admin"),
	}
}

// GetStats handles GET /admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType
	stats["cache_type"] = h.cacheType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	storage, err := h.cosmetics.Stats(r.Context())
	if err != nil {
		stats["storage"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		storage["status"] = "connected"
		stats["storage"] = storage
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// CreateCosmeticRequest is the body of POST /admin/cosmetics.
type CreateCosmeticRequest struct {
	Type string  `json:"type"`
	Path *string `json:"path"`
}

// CreateCosmetic handles POST /admin/cosmetics
func (h *AdminHandler) CreateCosmetic(w http.ResponseWriter, r *http.Request) {
	var req CreateCosmeticRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("Invalid JSON body"))
		return
	}

	category, err := model.ParseCategory(req.Type)
	if err != nil {
		response.Error(w, invalidField("type", "%s", err.Error()))
		return
	}
	if req.Path != nil {
		p := strings.TrimSpace(*req.Path)
		if p == "" {
			req.Path = nil
		} else {
			req.Path = &p
		}
	}

	c, err := h.cosmetics.Create(r.Context(), category, req.Path)
	if err != nil {
		h.logger.Error("failed to create cosmetic", zap.Error(err))
		response.Error(w, err)
		return
	}
	response.Created(w, c)
}

func positiveID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidField(param, "%s must be a positive integer", param)
	}
	return id, nil
}

// MapPackage handles PUT /admin/packages/{package_id}/cosmetics/{cosmetic_id}
func (h *AdminHandler) MapPackage(w http.ResponseWriter, r *http.Request) {
	packageID, err := positiveID(r, "package_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	cosmeticID, err := positiveID(r, "cosmetic_id")
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.cosmetics.MapPackage(r.Context(), packageID, cosmeticID); err != nil {
		h.logger.Warn("failed to map package",
			zap.Int64("package_id", packageID),
			zap.Int64("cosmetic_id", cosmeticID),
			zap.Error(err),
		)
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(w, apierror.NotFound(fmt.Sprintf("cosmetic %d not found", cosmeticID)))
			return
		}
		response.Error(w, err)
		return
	}

	h.logger.Info("package mapped", zap.Int64("package_id", packageID), zap.Int64("cosmetic_id", cosmeticID))
	response.NoContent(w)
}

// ClearCache handles DELETE /admin/cache
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.cosmetics.ClearCache(r.Context()); err != nil {
		h.logger.Error("failed to clear cache", zap.Error(err))
		response.Error(w, err)
		return
	}
	response.NoContent(w)
}
