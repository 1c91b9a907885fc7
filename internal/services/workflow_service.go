package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"intranet/internal/models"
	"intranet/internal/store"
	"intranet/pkg/auth"
)

var (
	// ErrInvalidDecision is returned for decisions other than approved/rejected
	ErrInvalidDecision = errors.New("decision must be approved or rejected")
	// ErrAlreadyDecided is returned when the request is no longer pending
	ErrAlreadyDecided = errors.New("workflow request already decided")
)

// WorkflowService moves HR requests through pending -> approved/rejected
type WorkflowService struct {
	store  store.Store
	locker Locker
	now    func() time.Time
}

// NewWorkflowService creates a new workflow service
func NewWorkflowService(s store.Store, locker Locker) *WorkflowService {
	return &WorkflowService{
		store:  s,
		locker: locker,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Decide records an admin decision on a pending request
func (s *WorkflowService) Decide(ctx context.Context, id, decision, comment string, admin *auth.Identity) (*models.WorkflowRequest, error) {
	if decision != models.WorkflowApproved && decision != models.WorkflowRejected {
		return nil, ErrInvalidDecision
	}

	unlock, err := s.locker.Lock(ctx, "workflow:"+id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	record, err := s.store.Get(ctx, models.CollectionWorkflows, id)
	if err != nil {
		return nil, err
	}

	var req models.WorkflowRequest
	if err := models.DecodeRecord(record, &req); err != nil {
		return nil, err
	}
	if req.Status != "" && req.Status != models.WorkflowPending {
		return nil, ErrAlreadyDecided
	}

	now := s.now()
	patch := store.Record{
		"status":    decision,
		"decidedBy": admin.Email,
		"decidedAt": now.Format(time.RFC3339Nano),
	}
	if comment != "" {
		patch["comment"] = comment
	}
	if err := s.store.Update(ctx, models.CollectionWorkflows, id, patch); err != nil {
		return nil, fmt.Errorf("failed to record decision: %w", err)
	}

	req.ID = id
	req.Status = decision
	req.DecidedBy = admin.Email
	req.DecidedAt = &now
	if comment != "" {
		req.Comment = comment
	}

	GetMetrics().RecordStoreWrite(models.CollectionWorkflows, "decision")
	log.Printf("📋 [WORKFLOW] Request %s %s by %s", id, decision, admin.Email)
	return &req, nil
}
