package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"intranet/internal/models"
	"intranet/internal/store"
)

var (
	// ErrPollClosed is returned when voting on an inactive or expired poll
	ErrPollClosed = errors.New("poll is closed")
	// ErrUnknownOption is returned for a vote on an option the poll does not offer
	ErrUnknownOption = errors.New("unknown poll option")
)

// PollService records votes and counts results
type PollService struct {
	store  store.Store
	locker Locker
	now    func() time.Time
}

// NewPollService creates a new poll service
func NewPollService(s store.Store, locker Locker) *PollService {
	return &PollService{
		store:  s,
		locker: locker,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *PollService) get(ctx context.Context, pollID string) (*models.Poll, error) {
	record, err := s.store.Get(ctx, models.CollectionPolls, pollID)
	if err != nil {
		return nil, err
	}

	var poll models.Poll
	if err := models.DecodeRecord(record, &poll); err != nil {
		return nil, err
	}
	poll.ID = pollID
	return &poll, nil
}

// Vote records the caller's choice. A second vote replaces the first.
func (s *PollService) Vote(ctx context.Context, pollID, userID, option string) (*models.PollResults, error) {
	unlock, err := s.locker.Lock(ctx, "poll:"+pollID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	poll, err := s.get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !poll.IsOpen(s.now()) {
		return nil, ErrPollClosed
	}
	if !poll.HasOption(option) {
		return nil, ErrUnknownOption
	}

	if poll.Votes == nil {
		poll.Votes = make(map[string]string)
	}
	poll.Votes[userID] = option

	votes := make(map[string]interface{}, len(poll.Votes))
	for voter, choice := range poll.Votes {
		votes[voter] = choice
	}
	if err := s.store.Update(ctx, models.CollectionPolls, pollID, store.Record{"votes": votes}); err != nil {
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	GetMetrics().RecordStoreWrite(models.CollectionPolls, "vote")
	return tally(poll), nil
}

// Results returns the per-option vote counts
func (s *PollService) Results(ctx context.Context, pollID string) (*models.PollResults, error) {
	poll, err := s.get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return tally(poll), nil
}

func tally(poll *models.Poll) *models.PollResults {
	results := &models.PollResults{
		PollID: poll.ID,
		Counts: make(map[string]int, len(poll.Options)),
	}
	for _, option := range poll.Options {
		results.Counts[option] = 0
	}
	for _, choice := range poll.Votes {
		if _, ok := results.Counts[choice]; ok {
			results.Counts[choice]++
			results.Total++
		}
	}
	return results
}
