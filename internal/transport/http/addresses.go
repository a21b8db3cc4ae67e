package http

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/service/address"
)

type addressHandler struct {
	svc    *address.Manager
	logger *log.Entry
}

func (h *addressHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	items, err := h.svc.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if items == nil {
		items = []domain.Address{}
	}
	writeData(w, http.StatusOK, items)
}

func (h *addressHandler) getDefault(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	addr, err := h.svc.GetDefault(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if addr == nil {
		writeErrorCode(w, r, http.StatusNotFound, CodeNotFound, "user has no addresses")
		return
	}
	writeData(w, http.StatusOK, addr)
}

func (h *addressHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var fields domain.AddressFields
	if !decodeJSON(w, r, &fields) {
		return
	}

	id, err := h.svc.Add(r.Context(), userID, fields)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	addr, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusCreated, addr)
}

// owned загружает адрес и проверяет, что он принадлежит пользователю из пути.
func (h *addressHandler) owned(w http.ResponseWriter, r *http.Request) (userID, addressID int64, ok bool) {
	if userID, ok = pathID(w, r, "userID"); !ok {
		return 0, 0, false
	}
	if addressID, ok = pathID(w, r, "addressID"); !ok {
		return 0, 0, false
	}

	addr, err := h.svc.Get(r.Context(), addressID)
	switch {
	case err != nil:
		writeError(w, r, err, h.logger)
		return 0, 0, false
	case addr == nil:
		writeError(w, r, domain.ErrAddressNotFound, h.logger)
		return 0, 0, false
	case addr.UserID != userID:
		writeError(w, r, domain.ErrAddressNotOwned, h.logger)
		return 0, 0, false
	}
	return userID, addressID, true
}

func (h *addressHandler) update(w http.ResponseWriter, r *http.Request) {
	_, addressID, ok := h.owned(w, r)
	if !ok {
		return
	}
	var update domain.AddressUpdate
	if !decodeJSON(w, r, &update) {
		return
	}
	if err := h.svc.Update(r.Context(), addressID, update); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	addr, err := h.svc.Get(r.Context(), addressID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, addr)
}

func (h *addressHandler) setDefault(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	addressID, ok := pathID(w, r, "addressID")
	if !ok {
		return
	}
	if err := h.svc.SetDefault(r.Context(), addressID, userID); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *addressHandler) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	addressID, ok := pathID(w, r, "addressID")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), addressID, userID); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *addressHandler) deleteAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if err := h.svc.DeleteAllForUser(r.Context(), userID); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
