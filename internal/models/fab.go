package models

import (
	"fmt"
	"time"
)

// FabMessage statuses
const (
	FabStatusPendingFollowUp = "pending_follow_up"
	FabStatusIdle            = "idle"
	FabStatusCompleted       = "completed"
)

// Campaign statuses
const (
	CampaignPending   = "pending"
	CampaignActive    = "active"
	CampaignCompleted = "completed"
)

// NoActiveCampaign is the activeCampaignIndex of a message without a follow-up in progress
const NoActiveCampaign = -1

// CampaignTags is the fixed tag set, in display order
var CampaignTags = []string{
	"onboarding",
	"engagement",
	"retention",
	"upsell",
	"feedback",
	"reactivation",
}

// Campaign is one step of a FAB pipeline
type Campaign struct {
	Tag             string     `json:"tag" validate:"required,campaign_tag"`
	Status          string     `json:"status" validate:"omitempty,oneof=pending active completed"`
	EffectiveAt     *time.Time `json:"effectiveAt,omitempty"`
	FollowUpMessage string     `json:"followUpMessage"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// IsCompleted reports whether the campaign step is done
func (c *Campaign) IsCompleted() bool {
	return c.Status == CampaignCompleted
}

// FabMessage is the per-user campaign pipeline behind the follow-up bubble.
// The record id is the userId.
type FabMessage struct {
	ID                  string     `json:"id,omitempty"`
	UserID              string     `json:"userId" validate:"required"`
	Status              string     `json:"status" validate:"omitempty,oneof=pending_follow_up idle completed"`
	ActiveCampaignIndex int        `json:"activeCampaignIndex"`
	Pipeline            []Campaign `json:"pipeline" validate:"dive"`
	UpdatedAt           *time.Time `json:"updatedAt,omitempty"`
}

// Validate checks that a pending follow-up points at an existing campaign
func (m *FabMessage) Validate() error {
	if m.Status != FabStatusPendingFollowUp {
		return nil
	}
	if m.ActiveCampaignIndex < 0 || m.ActiveCampaignIndex >= len(m.Pipeline) {
		return fmt.Errorf("activeCampaignIndex %d is outside the pipeline (length %d)", m.ActiveCampaignIndex, len(m.Pipeline))
	}
	return nil
}

// ActiveCampaign returns the campaign the bubble currently shows, or nil when idle
func (m *FabMessage) ActiveCampaign() *Campaign {
	if m.Status != FabStatusPendingFollowUp {
		return nil
	}
	if m.ActiveCampaignIndex < 0 || m.ActiveCampaignIndex >= len(m.Pipeline) {
		return nil
	}
	return &m.Pipeline[m.ActiveCampaignIndex]
}

// CampaignStatusStats backs the campaign status chart
type CampaignStatusStats struct {
	Messages           int `json:"messages"`
	PendingFollowUps   int `json:"pendingFollowUps"`
	TotalCampaigns     int `json:"totalCampaigns"`
	CompletedCampaigns int `json:"completedCampaigns"`
	ActiveCampaigns    int `json:"activeCampaigns"`
	PendingCampaigns   int `json:"pendingCampaigns"`
	EffectiveCampaigns int `json:"effectiveCampaigns"`
}

// TagCount is one bar of the tag distribution chart
type TagCount struct {
	Tag       string `json:"tag"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Effective int    `json:"effective"`
}
