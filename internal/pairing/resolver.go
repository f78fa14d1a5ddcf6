// Package pairing matches an accepting user to a pending request. The
// request transition and chat creation form one logically atomic step: no
// database transaction spans the two rows, so atomicity is enforced by call
// ordering plus compensating rollback.
package pairing

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/scryst/coffee-chat-discord-bot/internal/errs"
	"github.com/scryst/coffee-chat-discord-bot/internal/models"
)

// Store is the slice of the durable store the resolver needs.
type Store interface {
	GetRequestByID(id string) (*models.Request, error)
	GetPendingRequestForUser(userID int64) (*models.Request, error)
	UpdateRequestStatus(id, from, to string) (bool, error)
	CountPendingRequests() (int64, error)
	CreateChat(chat *models.Chat) error
	MarkChatEnded(chatID string, endedAt time.Time) (bool, error)

	AddPendingToBoard(requestID string) error
	RemovePendingFromBoard(requestID string) error
	PublishBoardEvent(event models.BoardEvent) error
}

// Relay is the part of the relay core the resolver drives.
type Relay interface {
	StartChat(chat *models.Chat) error
	IsInActiveChat(userID int64) (bool, error)
}

type Resolver struct {
	Store Store
	Relay Relay
}

func NewResolver(s Store, r Relay) *Resolver {
	return &Resolver{Store: s, Relay: r}
}

// Accept matches the accepting user to a pending request, creating the chat
// and starting the relay session. Rejection reasons, in priority order:
// stale request, self-accept, accepter busy, requester busy. Once the
// pairing succeeds, the accepter's own unrelated pending request is
// auto-cancelled: one user, one active engagement at a time across both
// roles. A rejected or rolled-back accept leaves that request untouched.
func (r *Resolver) Accept(requestID string, accepter *models.User) (*models.Chat, error) {
	req, err := r.Store.GetRequestByID(requestID)
	if err != nil {
		return nil, errs.Internal("failed to load request", err)
	}
	if req == nil || !req.IsPending() {
		return nil, errs.New(errs.CodeStaleRequest, "request is no longer available")
	}
	if req.UserID == accepter.ID {
		return nil, errs.New(errs.CodeSelfAccept, "cannot accept your own request")
	}

	busy, err := r.Relay.IsInActiveChat(accepter.ID)
	if err != nil {
		return nil, errs.Internal("failed to check accepter state", err)
	}
	if busy {
		return nil, errs.New(errs.CodeAccepterBusy, "accepter is already in an active chat")
	}

	// Both parties are re-checked at accept time: the requester may have
	// joined an unrelated chat since posting.
	busy, err = r.Relay.IsInActiveChat(req.UserID)
	if err != nil {
		return nil, errs.Internal("failed to check requester state", err)
	}
	if busy {
		return nil, errs.New(errs.CodeRequesterBusy, "requester is already in an active chat")
	}

	moved, err := r.Store.UpdateRequestStatus(requestID, models.RequestPending, models.RequestAccepted)
	if err != nil {
		return nil, errs.Internal("failed to accept request", err)
	}
	if !moved {
		// Another accept or a cancel won the race.
		return nil, errs.New(errs.CodeStaleRequest, "request is no longer available")
	}

	chat := &models.Chat{
		RequestID:   req.ID,
		RequesterID: req.UserID,
		AccepterID:  accepter.ID,
		Topic:       req.Topic,
		Status:      models.ChatActive,
		StartedAt:   time.Now(),
	}
	if err := r.Store.CreateChat(chat); err != nil {
		r.revertRequest(req)
		return nil, errs.Internal("failed to create chat", err)
	}

	r.publish(req, models.EventRequestAccepted, true)

	if err := r.Relay.StartChat(chat); err != nil {
		log.Errorf("Relay start failed for chat %s, rolling back pairing: %v", chat.ID, err)
		if _, endErr := r.Store.MarkChatEnded(chat.ID, time.Now()); endErr != nil {
			log.Errorf("Rollback: failed to close chat %s: %v", chat.ID, endErr)
		}
		r.revertRequest(req)
		return nil, err
	}

	r.cancelOwnRequest(accepter.ID)

	log.Infof("Request %s accepted by user %d, chat %s started", req.ID, accepter.ID, chat.ID)
	return chat, nil
}

// cancelOwnRequest cancels the accepter's own pending request, if any. Only
// the accepting side auto-cancels; a requester who gets accepted keeps any
// unrelated state untouched.
func (r *Resolver) cancelOwnRequest(accepterID int64) {
	own, err := r.Store.GetPendingRequestForUser(accepterID)
	if err != nil {
		log.Warnf("Failed to look up accepter's own request: %v", err)
		return
	}
	if own == nil {
		return
	}
	moved, err := r.Store.UpdateRequestStatus(own.ID, models.RequestPending, models.RequestCancelled)
	if err != nil || !moved {
		log.Warnf("Failed to auto-cancel request %s: %v", own.ID, err)
		return
	}
	own.Status = models.RequestCancelled
	r.publish(own, models.EventRequestCancelled, true)
	log.Infof("Auto-cancelled request %s: owner %d accepted another request", own.ID, accepterID)
}

// revertRequest moves an accepted request back toward pending so no
// observer is left seeing an accepted request without an active chat.
func (r *Resolver) revertRequest(req *models.Request) {
	moved, err := r.Store.UpdateRequestStatus(req.ID, models.RequestAccepted, models.RequestPending)
	if err != nil || !moved {
		log.Errorf("Rollback: failed to revert request %s to pending: %v", req.ID, err)
		return
	}
	req.Status = models.RequestPending
	r.publish(req, models.EventRequestCreated, false)
}

// publish mirrors a request transition to the Redis board. removeFromBoard
// distinguishes requests leaving the pending set from ones re-entering it.
// Board failures never fail the pairing; the board is a cache.
func (r *Resolver) publish(req *models.Request, kind string, removeFromBoard bool) {
	var err error
	if removeFromBoard {
		err = r.Store.RemovePendingFromBoard(req.ID)
	} else {
		err = r.Store.AddPendingToBoard(req.ID)
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
