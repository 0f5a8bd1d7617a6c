package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gridctl/internal/device"
)

// GroupMember is one resolved member of a named group.
type GroupMember struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Kind    device.Kind `json:"kind"`
	Working bool        `json:"working"`
}

// handleListDevices lists devices, optionally filtered by construct and kind.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	construct := r.URL.Query().Get("construct")
	kind := device.Kind(r.URL.Query().Get("kind"))

	devices := make([]device.Device, 0)
	for _, d := range s.registry.ListDevices(r.Context()) {
		if construct != "" && d.ConstructID != construct {
			continue
		}
		if kind != "" && d.Kind != kind {
			continue
		}
		devices = append(devices, d)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.GetStats())
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to load device")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleApplyReading merges a partial reading into a device, the same way a
// state message from the broker does.
func (s *Server) handleApplyReading(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var reading device.Reading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.ApplyReading(r.Context(), id, reading); err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceNotFound):
			writeNotFound(w, "device not found")
		case errors.Is(err, device.ErrInvalidState):
			writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
		default:
			s.logger.Error("applying reading failed", "device_id", id, "error", err)
			writeInternalError(w, "failed to apply reading")
		}
		return
	}

	d, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to load device")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	group, err := s.registry.GroupByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, device.ErrGroupNotFound) {
			writeNotFound(w, "group not found")
			return
		}
		writeInternalError(w, "failed to resolve group")
		return
	}

	members := make([]GroupMember, 0, group.Len())
	for _, h := range group.Members {
		members = append(members, GroupMember{
			ID:      h.ID(),
			Name:    h.Name(),
			Kind:    h.Kind(),
			Working: h.IsWorking(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    group.Name,
		"members": members,
	})
}
