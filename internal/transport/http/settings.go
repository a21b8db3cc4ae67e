package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/service/settings"
)

type settingsHandler struct {
	svc    *settings.Service
	logger *log.Entry
}

type settingRequest struct {
	Value string `json:"value"`
	Group string `json:"group"`
}

func (h *settingsHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		items []domain.Setting
		err   error
	)
	if group := r.URL.Query().Get("group"); group != "" {
		items, err = h.svc.Group(r.Context(), group)
	} else {
		items, err = h.svc.All(r.Context())
	}
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if items == nil {
		items = []domain.Setting{}
	}
	writeData(w, http.StatusOK, items)
}

func (h *settingsHandler) get(w http.ResponseWriter, r *http.Request) {
	setting, err := h.svc.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if setting == nil {
		writeErrorCode(w, r, http.StatusNotFound, CodeNotFound, "setting not found")
		return
	}
	writeData(w, http.StatusOK, setting)
}

func (h *settingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	key := chi.URLParam(r, "key")
	if err := h.svc.Set(r.Context(), domain.Setting{Key: key, Value: req.Value, Group: req.Group}); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	setting, err := h.svc.Get(r.Context(), key)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, setting)
}

func (h *settingsHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
