package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"intranet/internal/models"
	"intranet/internal/store"
)

var (
	// ErrFabNotFound is returned when the user has no FAB message
	ErrFabNotFound = errors.New("fab message not found")
	// ErrNoActiveFollowUp is returned by CompleteFollowUp when nothing is pending
	ErrNoActiveFollowUp = errors.New("no follow-up is pending for this user")
	// ErrCampaignIndex is returned for an index outside the pipeline
	ErrCampaignIndex = errors.New("campaign index out of range")
	// ErrCampaignCompleted is returned when activating a campaign that is already done
	ErrCampaignCompleted = errors.New("campaign already completed")
)

// FabService runs the per-user campaign pipeline behind the follow-up bubble
type FabService struct {
	store  store.Store
	locker Locker
	now    func() time.Time
}

// NewFabService creates a new FAB service
func NewFabService(s store.Store, locker Locker) *FabService {
	return &FabService{
		store:  s,
		locker: locker,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// FabStats is both chart datasets computed in one pass
type FabStats struct {
	Status models.CampaignStatusStats `json:"status"`
	Tags   []models.TagCount          `json:"tags"`
}

// Get returns the FAB message of a user
func (s *FabService) Get(ctx context.Context, userID string) (*models.FabMessage, error) {
	msg, _, err := s.load(ctx, userID)
	return msg, err
}

// List returns every FAB message ordered by user id
func (s *FabService) List(ctx context.Context) ([]models.FabMessage, error) {
	records, err := s.store.List(ctx, models.CollectionFabMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to list fab messages: %w", err)
	}
	store.SortBy(records, "userId", false)

	messages := make([]models.FabMessage, 0, len(records))
	for _, record := range records {
		var msg models.FabMessage
		if err := models.DecodeRecord(record, &msg); err != nil {
			log.Printf("⚠️  [FAB] Skipping malformed message %s: %v", record.ID(), err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// ResolveCollaborator maps a portal account to the collaborator id that FAB
// messages are keyed by. Collaborators are matched on email, case-insensitively;
// the account id is used when no collaborator matches.
func (s *FabService) ResolveCollaborator(ctx context.Context, accountID, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return accountID, nil
	}

	records, err := s.store.List(ctx, models.CollectionCollaborators)
	if err != nil {
		return "", fmt.Errorf("failed to list collaborators: %w", err)
	}
	for _, record := range records {
		if e, _ := record["email"].(string); strings.EqualFold(strings.TrimSpace(e), email) {
			return record.ID(), nil
		}
	}
	return accountID, nil
}

// load finds the message of userID. Messages are keyed by user id; older
// records with generated ids are found by scanning for the userId field.
func (s *FabService) load(ctx context.Context, userID string) (*models.FabMessage, string, error) {
	record, err := s.store.Get(ctx, models.CollectionFabMessages, userID)
	if errors.Is(err, store.ErrNotFound) {
		record, err = s.findByUser(ctx, userID)
	}
	if err != nil {
		return nil, "", err
	}

	var msg models.FabMessage
	if err := models.DecodeRecord(record, &msg); err != nil {
		return nil, "", err
	}
	return &msg, record.ID(), nil
}

func (s *FabService) findByUser(ctx context.Context, userID string) (store.Record, error) {
	records, err := s.store.List(ctx, models.CollectionFabMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to list fab messages: %w", err)
	}
	for _, record := range records {
		if uid, _ := record["userId"].(string); uid == userID {
			return record, nil
		}
	}
	return nil, ErrFabNotFound
}

// mutate runs fn on the user's message under the per-user lock and persists
// the result when fn reports a change
func (s *FabService) mutate(ctx context.Context, userID string, fn func(msg *models.FabMessage) (bool, error)) (*models.FabMessage, error) {
	unlock, err := s.locker.Lock(ctx, "fab:"+userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	msg, recordID, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	changed, err := fn(msg)
	if err != nil {
		return nil, err
	}
	if !changed {
		return msg, nil
	}

	now := s.now()
	msg.UpdatedAt = &now
	msg.ID = ""

	record, err := models.EncodeRecord(msg)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Set(ctx, models.CollectionFabMessages, recordID, record); err != nil {
		return nil, fmt.Errorf("failed to save fab message: %w", err)
	}

	msg.ID = recordID
	return msg, nil
}

// CompleteFollowUp closes the active campaign of a user and moves the bubble
// to the next unfinished campaign, or to completed when none is left
func (s *FabService) CompleteFollowUp(ctx context.Context, userID string) (*models.FabMessage, error) {
	msg, err := s.mutate(ctx, userID, func(msg *models.FabMessage) (bool, error) {
		active := msg.ActiveCampaign()
		if active == nil {
			return false, ErrNoActiveFollowUp
		}

		now := s.now()
		active.Status = models.CampaignCompleted
		active.CompletedAt = &now

		for next := msg.ActiveCampaignIndex + 1; next < len(msg.Pipeline); next++ {
			if !msg.Pipeline[next].IsCompleted() {
				msg.Pipeline[next].Status = models.CampaignActive
				msg.ActiveCampaignIndex = next
				return true, nil
			}
		}

		msg.ActiveCampaignIndex = models.NoActiveCampaign
		msg.Status = models.FabStatusCompleted
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	GetMetrics().RecordFabTransition("complete")
	log.Printf("✅ [FAB] Follow-up completed for user %s (status=%s, active=%d)", userID, msg.Status, msg.ActiveCampaignIndex)
	return msg, nil
}

// MarkEffective stamps effectiveAt on a campaign. An existing stamp is kept.
func (s *FabService) MarkEffective(ctx context.Context, userID string, index int) (*models.FabMessage, error) {
	msg, err := s.mutate(ctx, userID, func(msg *models.FabMessage) (bool, error) {
		if index < 0 || index >= len(msg.Pipeline) {
			return false, ErrCampaignIndex
		}
		if msg.Pipeline[index].EffectiveAt != nil {
			return false, nil
		}
		now := s.now()
		msg.Pipeline[index].EffectiveAt = &now
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	GetMetrics().RecordFabTransition("effective")
	return msg, nil
}

// Activate starts a follow-up on the campaign at index
func (s *FabService) Activate(ctx context.Context, userID string, index int) (*models.FabMessage, error) {
	msg, err := s.mutate(ctx, userID, func(msg *models.FabMessage) (bool, error) {
		if index < 0 || index >= len(msg.Pipeline) {
			return false, ErrCampaignIndex
		}
		if msg.Pipeline[index].IsCompleted() {
			return false, ErrCampaignCompleted
		}

		for i := range msg.Pipeline {
			if i != index && msg.Pipeline[i].Status == models.CampaignActive {
				msg.Pipeline[i].Status = models.CampaignPending
			}
		}
		msg.Pipeline[index].Status = models.CampaignActive
		msg.ActiveCampaignIndex = index
		msg.Status = models.FabStatusPendingFollowUp
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	GetMetrics().RecordFabTransition("activate")
	log.Printf("📣 [FAB] Follow-up %d activated for user %s", index, userID)
	return msg, nil
}

// Stats computes the campaign status totals and the tag distribution
func (s *FabService) Stats(ctx context.Context) (*FabStats, error) {
	messages, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	status, tags := ComputeFabStats(messages)
	return &FabStats{Status: status, Tags: tags}, nil
}

// ComputeFabStats walks every pipeline once. Tags are reported in the fixed
// order; tags outside the set follow alphabetically.
func ComputeFabStats(messages []models.FabMessage) (models.CampaignStatusStats, []models.TagCount) {
	var stats models.CampaignStatusStats
	byTag := make(map[string]*models.TagCount, len(models.CampaignTags))
	tags := make([]models.TagCount, 0, len(models.CampaignTags))

	for _, tag := range models.CampaignTags {
		byTag[tag] = &models.TagCount{Tag: tag}
	}

	for _, msg := range messages {
		stats.Messages++
		if msg.Status == models.FabStatusPendingFollowUp {
			stats.PendingFollowUps++
		}

		for _, c := range msg.Pipeline {
			stats.TotalCampaigns++
			switch c.Status {
			case models.CampaignCompleted:
				stats.CompletedCampaigns++
			case models.CampaignActive:
				stats.ActiveCampaigns++
			default:
				stats.PendingCampaigns++
			}
			if c.EffectiveAt != nil {
				stats.EffectiveCampaigns++
			}

			tc, ok := byTag[c.Tag]
			if !ok {
				tc = &models.TagCount{Tag: c.Tag}
				byTag[c.Tag] = tc
			}
			tc.Total++
			if c.IsCompleted() {
				tc.Completed++
			}
			if c.EffectiveAt != nil {
				tc.Effective++
			}
		}
	}

	for _, tag := range models.CampaignTags {
		tags = append(tags, *byTag[tag])
	}

	var extra []string
	for tag := range byTag {
		if !models.IsCampaignTag(tag) {
			extra = append(extra, tag)
		}
	}
	sort.Strings(extra)
	for _, tag := range extra {
		tags = append(tags, *byTag[tag])
	}

	return stats, tags
}
