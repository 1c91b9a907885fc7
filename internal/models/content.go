package models

import "time"

// News is a home page news article. Content is markdown.
type News struct {
	ID       string    `json:"id,omitempty"`
	Title    string    `json:"title" validate:"required,max=300"`
	Content  string    `json:"content"`
	Author   string    `json:"author,omitempty"`
	ImageURL string    `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Date     time.Time `json:"date" validate:"required"`
	Tags     []string  `json:"tags,omitempty"`
}

// Document is an entry of a document repository (usually a Drive link)
type Document struct {
	ID           string     `json:"id,omitempty"`
	Title        string     `json:"title" validate:"required"`
	URL          string     `json:"url" validate:"required,url"`
	Category     string     `json:"category,omitempty"`
	Description  string     `json:"description,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty"`
	OwnerEmail   string     `json:"ownerEmail,omitempty" validate:"omitempty,email"`
}

// Lab is a training module of the labs area
type Lab struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	VideoURL    string `json:"videoUrl,omitempty" validate:"omitempty,url"`
	MaterialURL string `json:"materialUrl,omitempty" validate:"omitempty,url"`
	Order       int    `json:"order"`
}

// Ranking is one row of a sales/performance ranking
type Ranking struct {
	ID         string  `json:"id,omitempty"`
	Name       string  `json:"name" validate:"required"`
	Department string  `json:"department,omitempty"`
	Score      float64 `json:"score"`
	Position   int     `json:"position" validate:"gte=0"`
	Period     string  `json:"period,omitempty"`
}

// Message is an admin-published announcement
type Message struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title" validate:"required"`
	Body        string     `json:"body" validate:"required"`
	Audience    string     `json:"audience,omitempty"`
	Priority    string     `json:"priority,omitempty" validate:"omitempty,oneof=low normal high"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// QuickLink is a shortcut shown in the sidebar
type QuickLink struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label" validate:"required"`
	URL   string `json:"url" validate:"required,url"`
	Icon  string `json:"icon,omitempty"`
	Order int    `json:"order"`
}

// Event is a corporate calendar event
type Event struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title" validate:"required"`
	Date        time.Time `json:"date" validate:"required"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	CalendarURL string    `json:"calendarUrl,omitempty" validate:"omitempty,url"`
}

// Highlight is a carousel banner
type Highlight struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title" validate:"required"`
	ImageURL string `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Link     string `json:"link,omitempty" validate:"omitempty,url"`
	Order    int    `json:"order"`
}

// Application is a tile linking to an internal system
type Application struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name" validate:"required"`
	URL         string `json:"url" validate:"required,url"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
}
