package models

import "time"

// PortalConfigID is the id of the admin configuration document in the config collection
const PortalConfigID = "admin"

// PortalConfig is the server-side admin configuration document
type PortalConfig struct {
	AdminEmails      []string `json:"adminEmails" validate:"dive,email"`
	SuperAdminEmails []string `json:"superAdminEmails" validate:"dive,email"`
}

// BillingLine is one service of the billing summary
type BillingLine struct {
	Service string  `json:"service"`
	Cost    float64 `json:"cost"`
}

// BillingSummary is returned to super admins by the billing endpoint
type BillingSummary struct {
	ProjectID   string        `json:"projectId"`
	Currency    string        `json:"currency"`
	PeriodStart time.Time     `json:"periodStart"`
	PeriodEnd   time.Time     `json:"periodEnd"`
	TotalCost   float64       `json:"totalCost"`
	Services    []BillingLine `json:"services"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Source      string        `json:"source"`
}

// FeedItem is one merged RSS/Atom entry
type FeedItem struct {
	Title          string     `json:"title"`
	Link           string     `json:"link"`
	GUID           string     `json:"guid,omitempty"`
	PubDate        string     `json:"pubDate,omitempty"`
	IsoDate        *time.Time `json:"isoDate,omitempty"`
	ContentSnippet string     `json:"contentSnippet,omitempty"`
	Author         string     `json:"author,omitempty"`
	Categories     []string   `json:"categories,omitempty"`
	Source         string     `json:"source"`
	FeedTitle      string     `json:"feedTitle,omitempty"`
}
