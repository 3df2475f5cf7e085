package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pagecraft/builder-core/internal/infrastructure/logging"
)

// UpdateRequest describes a single payload overwrite attempt.
type UpdateRequest struct {
	// TemplateID identifies the template to overwrite.
	TemplateID string

	// ActorID is the user attempting the write.
	ActorID string

	// BypassOwner skips the ownership check. Set for admin actors only.
	BypassOwner bool

	// Payload is the full replacement document.
	Payload json.RawMessage
}

// Coordinator serialises template payload writes. All updates, realtime
// and REST alike, must go through ApplyUpdate so that concurrent writers
// to the same template are applied one at a time and updated_at stays
// strictly increasing.
//
// Validation order is fixed: existence, then ownership, then payload.
// A caller who both lacks permission and sends an empty payload gets the
// permission error.
type Coordinator struct {
	repo   Repository
	logger *logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// CoordinatorDeps contains dependencies for creating a Coordinator.
type CoordinatorDeps struct {
	Repo   Repository
	Logger *logging.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(deps CoordinatorDeps) (*Coordinator, error) {
	if deps.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}

	return &Coordinator{
		repo:   deps.Repo,
		logger: deps.Logger.With("component", "coordinator"),
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// ApplyUpdate validates and applies a full payload overwrite, returning the
// updated template. Writers to the same template are serialised; writers to
// different templates proceed in parallel.
func (c *Coordinator) ApplyUpdate(ctx context.Context, req UpdateRequest) (*Template, error) {
	lock := c.lockFor(req.TemplateID)
	lock.Lock()
	defer lock.Unlock()

	tmpl, err := c.repo.GetByID(ctx, req.TemplateID)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("loading template: %w", err)
	}

	if !req.BypassOwner && tmpl.CreatorID != req.ActorID {
		return nil, ErrNotOwner
	}

	if IsEmptyPayload(req.Payload) {
		return nil, ErrEmptyPayload
	}

	// updated_at must move forward even if the wall clock does not.
	ts := time.Now().UTC()
	if !ts.After(tmpl.UpdatedAt) {
		ts = tmpl.UpdatedAt.Add(time.Nanosecond)
	}

	if err := c.repo.UpdatePayload(ctx, req.TemplateID, req.Payload, ts); err != nil {
		return nil, fmt.Errorf("applying update: %w", err)
	}

	c.logger.Debug("template updated",
		"template_id", req.TemplateID,
		"actor_id", req.ActorID,
		"payload_bytes", len(req.Payload),
	)

	tmpl.Data = req.Payload
	tmpl.UpdatedAt = ts
	return tmpl, nil
}

// Forget drops the serialisation lock for a deleted template.
// Safe to call for unknown IDs. It waits for any in-flight writer on the
// template before removing the entry, so a later writer cannot mint a
// fresh mutex and run alongside one still holding the old lock.
func (c *Coordinator) Forget(templateID string) {
	c.mu.Lock()
	l, ok := c.locks[templateID]
	c.mu.Unlock()
	if !ok {
		return
	}

	l.Lock()
	c.mu.Lock()
	delete(c.locks, templateID)
	c.mu.Unlock()
	l.Unlock()
}

// lockFor returns the per-template mutex, creating it on first use.
func (c *Coordinator) lockFor(templateID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.locks[templateID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[templateID] = l
	}
	return l
}
