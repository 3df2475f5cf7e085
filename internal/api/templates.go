package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pagecraft/builder-core/internal/infrastructure/mqtt"
	"github.com/pagecraft/builder-core/internal/template"
)

// createTemplateRequest is the request body for POST /templates.
type createTemplateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// updateTemplateRequest is the request body for PATCH /templates/{id}.
// Metadata and payload updates can ride in a single request; the payload
// write goes through the coordinator like any other.
type updateTemplateRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// handleListTemplates returns a paginated template list, optionally
// filtered by creator.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	params := parsePageParams(r)
	creator := r.URL.Query().Get("creator")

	total, err := s.templates.Count(r.Context(), creator)
	if err != nil {
		s.logger.Error("counting templates failed", "error", err)
		writeInternalError(w, "failed to list templates")
		return
	}

	templates, err := s.templates.List(r.Context(), template.ListFilter{
		CreatorID: creator,
		Limit:     params.PageSize,
		Offset:    params.Offset(),
	})
	if err != nil {
		s.logger.Error("listing templates failed", "error", err)
		writeInternalError(w, "failed to list templates")
		return
	}

	writeJSON(w, http.StatusOK, newPagedResponse(total, params, templates))
}

// handleCreateTemplate stores a new template owned by the caller.
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req createTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	data := req.Data
	if len(data) == 0 {
		data = template.DefaultData
	} else if !json.Valid(data) {
		writeBadRequest(w, "data must be valid JSON")
		return
	}

	tmpl := &template.Template{
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   claims.Subject,
		Data:        data,
	}
	if err := s.templates.Create(r.Context(), tmpl); err != nil {
		s.logger.Error("creating template failed", "error", err)
		writeInternalError(w, "failed to create template")
		return
	}

	s.logger.Info("template created", "template_id", tmpl.ID, "creator_id", tmpl.CreatorID)
	writeJSON(w, http.StatusCreated, tmpl)
}

// handleGetTemplate returns a single template with its payload.
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tmpl, err := s.templates.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, template.ErrTemplateNotFound) {
			writeNotFound(w, "template not found")
			return
		}
		s.logger.Error("getting template failed", "template_id", id, "error", err)
		writeInternalError(w, "failed to get template")
		return
	}

	writeJSON(w, http.StatusOK, tmpl)
}

// handleUpdateTemplate patches a template. Name and description update
// directly; a data payload goes through the update coordinator, which
// enforces ownership and payload validation and serialises writers.
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := claimsFromContext(r.Context())

	var req updateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	tmpl, err := s.templates.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, template.ErrTemplateNotFound) {
			writeNotFound(w, "template not found")
			return
		}
		s.logger.Error("getting template failed", "template_id", id, "error", err)
		writeInternalError(w, "failed to update template")
		return
	}

	admin := isAdmin(claims)
	if tmpl.CreatorID != claims.Subject && !admin {
		writeForbidden(w, "you do not own this template")
		return
	}

	if req.Name != nil || req.Description != nil {
		name := tmpl.Name
		if req.Name != nil {
			if *req.Name == "" {
				writeBadRequest(w, "name cannot be empty")
				return
			}
			name = *req.Name
		}
		description := tmpl.Description
		if req.Description != nil {
			description = *req.Description
		}
		if err := s.templates.UpdateMeta(r.Context(), id, name, description); err != nil {
			s.logger.Error("updating template metadata failed", "template_id", id, "error", err)
			writeInternalError(w, "failed to update template")
			return
		}
	}

	if len(req.Data) > 0 {
		updated, err := s.coordinator.ApplyUpdate(r.Context(), template.UpdateRequest{
			TemplateID:  id,
			ActorID:     claims.Subject,
			BypassOwner: admin,
			Payload:     req.Data,
		})
		if err != nil {
			switch {
			case errors.Is(err, template.ErrTemplateNotFound):
				writeNotFound(w, "template not found")
			case errors.Is(err, template.ErrNotOwner):
				writeForbidden(w, "you do not own this template")
			case errors.Is(err, template.ErrEmptyPayload), errors.Is(err, template.ErrInvalidPayload):
				writeBadRequest(w, "data is required to update the template")
			default:
				s.logger.Error("applying template update failed", "template_id", id, "error", err)
				writeInternalError(w, "failed to update template")
			}
			return
		}
		s.publishTemplateUpdate(updated.ID, claims.Subject, "rest", len(req.Data))
	}

	tmpl, err = s.templates.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("reloading template failed", "template_id", id, "error", err)
		writeInternalError(w, "failed to update template")
		return
	}

	writeJSON(w, http.StatusOK, tmpl)
}

// handleDeleteTemplate removes a template. Owner or admin.
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := claimsFromContext(r.Context())

	tmpl, err := s.templates.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, template.ErrTemplateNotFound) {
			writeNotFound(w, "template not found")
			return
		}
		s.logger.Error("getting template failed", "template_id", id, "error", err)
		writeInternalError(w, "failed to delete template")
		return
	}

	if tmpl.CreatorID != claims.Subject && !isAdmin(claims) {
		writeForbidden(w, "you do not own this template")
		return
	}

	if err := s.templates.Delete(r.Context(), id); err != nil {
		s.logger.Error("deleting template failed", "template_id", id, "error", err)
		writeInternalError(w, "failed to delete template")
		return
	}
	s.coordinator.Forget(id)

	if s.mqtt != nil && s.mqtt.IsConnected() {
		topic := mqtt.Topics{}.TemplateDeleted(id)
		payload := []byte(`{"deleted_by":"` + claims.Subject + `"}`)
		if err := s.mqtt.Publish(topic, payload, 1, false); err != nil {
			s.logger.Warn("publishing template delete event failed", "template_id", id, "error", err)
		}
	}

	s.logger.Info("template deleted", "template_id", id, "deleted_by", claims.Subject)
	w.WriteHeader(http.StatusNoContent)
}

// publishTemplateUpdate fans a successful payload write out to MQTT and
// telemetry. Both are best effort; a write that reached SQLite already
// succeeded from the caller's point of view.
func (s *Server) publishTemplateUpdate(templateID, actorID, source string, payloadBytes int) {
	if s.telemetry != nil {
		s.telemetry.WriteTemplateUpdate(templateID, actorID, source, payloadBytes)
	}

	if s.mqtt != nil && s.mqtt.IsConnected() {
		topic := mqtt.Topics{}.TemplateUpdated(templateID)
		payload := []byte(`{"updated_by":"` + actorID + `","source":"` + source + `"}`)
		if err := s.mqtt.Publish(topic, payload, 1, false); err != nil {
			s.logger.Warn("publishing template update event failed", "template_id", templateID, "error", err)
		}
	}
}
