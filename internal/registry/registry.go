// Package registry owns the lifecycle of pending chat requests: creation,
// cancellation, and listing. It enforces the "at most one open request per
// user" invariant and keeps the Redis request board in step with the
// durable rows.
package registry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/scryst/coffee-chat-discord-bot/internal/config"
	"github.com/scryst/coffee-chat-discord-bot/internal/errs"
	"github.com/scryst/coffee-chat-discord-bot/internal/models"
)

// Store is the slice of the durable store the registry needs.
type Store interface {
	CreateRequest(req *models.Request) error
	GetRequestByID(id string) (*models.Request, error)
	GetPendingRequestForUser(userID int64) (*models.Request, error)
	ListPendingRequests(excludeUserID, groupID int64) ([]models.Request, error)
	UpdateRequestStatus(id, from, to string) (bool, error)
	SetRequestAnnouncement(id string, chatID int64, messageID int) error
	CountPendingRequests() (int64, error)

	AddPendingToBoard(requestID string) error
	RemovePendingFromBoard(requestID string) error
	PublishBoardEvent(event models.BoardEvent) error
}

// Presence answers whether a user is currently in an active chat. The relay
// core implements it.
type Presence interface {
	IsInActiveChat(userID int64) (bool, error)
}

type Registry struct {
	Store    Store
	Presence Presence

	// mu serializes Create so two racing creates cannot both pass the
	// duplicate-pending check.
	mu sync.Mutex
}

func NewRegistry(s Store, p Presence) *Registry {
	return &Registry{Store: s, Presence: p}
}

// ValidateTopic checks the request input bounds. Violations are reported as
// invalid-argument errors carrying the exact reason.
func ValidateTopic(topic, description string) error {
	topic = strings.TrimSpace(topic)
	if len(topic) < config.TopicMinLen {
		return errs.InvalidArg(fmt.Sprintf("topic must be at least %d characters", config.TopicMinLen))
	}
	if len(topic) > config.TopicMaxLen {
		return errs.InvalidArg(fmt.Sprintf("topic must be at most %d characters", config.TopicMaxLen))
	}
	if len(description) > config.DescriptionMaxLen {
		return errs.InvalidArg(fmt.Sprintf("description must be at most %d characters", config.DescriptionMaxLen))
	}
	return nil
}

// Create opens a new pending request for the user. It is rejected when the
// input is out of bounds, when the user already owns a pending request, or
// when the user is currently in an active chat.
func (r *Registry) Create(user *models.User, groupID int64, topic, description, scope string) (*models.Request, error) {
	if err := ValidateTopic(topic, description); err != nil {
		return nil, err
	}
	if scope != models.ScopeLocal {
		scope = models.ScopeGlobal
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.Store.GetPendingRequestForUser(user.ID)
	if err != nil {
		return nil, errs.Internal("failed to check for an existing request", err)
	}
	if existing != nil {
		return nil, errs.New(errs.CodeDuplicateRequest, "user already has a pending request")
	}

	inChat, err := r.Presence.IsInActiveChat(user.ID)
	if err != nil {
		return nil, errs.Internal("failed to check active chat state", err)
	}
	if inChat {
		return nil, errs.New(errs.CodeRequesterBusy, "user is already in an active chat")
	}

	req := &models.Request{
		UserID:      user.ID,
		GroupID:     groupID,
		Topic:       strings.TrimSpace(topic),
		Description: strings.TrimSpace(description),
		Scope:       scope,
		Status:      models.RequestPending,
	}
	if err := r.Store.CreateRequest(req); err != nil {
		return nil, errs.Internal("failed to create request", err)
	}

	r.mirrorBoard(req, models.EventRequestCreated)
	log.Infof("Created request %s (topic %q) for user %d", req.ID, req.Topic, user.ID)
	return req, nil
}

// Cancel moves the user's own pending request to cancelled. Cancelling a
// foreign or non-pending request is a no-op reported as not found.
func (r *Registry) Cancel(requestID string, actingUserID int64) error {
	req, err := r.Store.GetRequestByID(requestID)
	if err != nil {
		return errs.Internal("failed to load request", err)
	}
	if req == nil || req.UserID != actingUserID || !req.IsPending() {
		return errs.NotFound("no pending request to cancel")
	}

	moved, err := r.Store.UpdateRequestStatus(requestID, models.RequestPending, models.RequestCancelled)
	if err != nil {
		return errs.Internal("failed to cancel request", err)
	}
	if !moved {
		// Lost the race against an accept or another cancel.
		return errs.NotFound("no pending request to cancel")
	}

	req.Status = models.RequestCancelled
	r.mirrorBoard(req, models.EventRequestCancelled)
	log.Infof("Cancelled request %s for user %d", requestID, actingUserID)
	return nil
}

// ListPending returns open requests newest first, optionally excluding one
// user's own request. A group context sees global requests plus its own
// local ones; a private context (groupID 0) sees only global requests.
func (r *Registry) ListPending(excludeUserID, groupID int64) ([]models.Request, error) {
	return r.Store.ListPendingRequests(excludeUserID, groupID)
}

// OpenRequestFor returns the user's pending request, or nil.
func (r *Registry) OpenRequestFor(userID int64) (*models.Request, error) {
	return r.Store.GetPendingRequestForUser(userID)
}

// UpdateAnnouncement records the public board post of a request. The
// announcement reference stays mutable after the request leaves pending.
func (r *Registry) UpdateAnnouncement(requestID string, chatID int64, messageID int) error {
	return r.Store.SetRequestAnnouncement(requestID, chatID, messageID)
}

// OpenCount returns the number of pending requests for status summaries.
func (r *Registry) OpenCount() (int64, error) {
	return r.Store.CountPendingRequests()
}

// mirrorBoard keeps the Redis board in step with a request transition. The
// board is a cache over the durable rows, so failures are logged and the
// operation itself still succeeds.
func (r *Registry) mirrorBoard(req *models.Request, kind string) {
	var err error
	if req.IsPending() {
		err = r.Store.AddPendingToBoard(req.ID)
	} else {
		err = r.Store.RemovePendingFromBoard(req.ID)
	}
	if err != nil {
		log.Warnf("Failed to mirror request %s to the board: %v", req.ID, err)
	}

	count, err := r.Store.CountPendingRequests()
	if err != nil {
		log.Warnf("Failed to count pending requests: %v", err)
	}
	event := models.BoardEvent{
		Kind:      kind,
		RequestID: req.ID,
		Topic:     req.Topic,
		Scope:     req.Scope,
		OpenCount: int(count),
		At:        time.Now(),
	}
	if err := r.Store.PublishBoardEvent(event); err != nil {
		log.Warnf("Failed to publish board event for request %s: %v", req.ID, err)
	}
}
