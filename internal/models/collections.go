package models

import "sort"

// Collection names
const (
	CollectionNews          = "news"
	CollectionDocuments     = "documents"
	CollectionLabs          = "labs"
	CollectionRankings      = "rankings"
	CollectionContacts      = "contacts"
	CollectionCollaborators = "collaborators"
	CollectionMessages      = "messages"
	CollectionPolls         = "polls"
	CollectionQuickLinks    = "quickLinks"
	CollectionWorkflows     = "workflows"
	CollectionEvents        = "events"
	CollectionHighlights    = "highlights"
	CollectionApplications  = "applications"
	CollectionFabMessages   = "idleFabMessages"

	// Restricted collections, never served by the generic CRUD routes
	CollectionAuditLogs = "audit_logs"
	CollectionConfig    = "config"
	CollectionUsers     = "users"
)

// WriteAccess describes who may write to a collection through the generic routes
type WriteAccess int

const (
	// WriteAdmin allows create/update/delete for admins only
	WriteAdmin WriteAccess = iota
	// WriteCreateAuthenticated allows any authenticated user to create; update/delete stay admin-only
	WriteCreateAuthenticated
)

// ReadAccess describes what non-admin callers may read. Admins read everything.
type ReadAccess int

const (
	// ReadAuthenticated exposes every record to any authenticated user
	ReadAuthenticated ReadAccess = iota
	// ReadOwn exposes only the records whose OwnerField equals the caller id
	ReadOwn
	// ReadAdmin hides the collection from non-admins
	ReadAdmin
)

// CollectionDef describes a collection served by the generic CRUD routes
type CollectionDef struct {
	Name string

	// New returns a pointer to the typed model used to validate payloads
	New func() interface{}

	// SortField and SortDesc define list ordering. Empty SortField keeps store order.
	SortField string
	SortDesc  bool

	// KeyField, when set, makes the record id equal to that field's value
	KeyField string

	Write WriteAccess
	Read  ReadAccess

	// OwnerField holds the caller id on ReadOwn collections
	OwnerField string

	// PerUserField is a map keyed by user id; non-admins only see their own entry
	PerUserField string
}

var collectionDefs = map[string]CollectionDef{
	CollectionNews:          {Name: CollectionNews, New: func() interface{} { return &News{} }, SortField: "date", SortDesc: true},
	CollectionDocuments:     {Name: CollectionDocuments, New: func() interface{} { return &Document{} }, SortField: "lastModified", SortDesc: true},
	CollectionLabs:          {Name: CollectionLabs, New: func() interface{} { return &Lab{} }, SortField: "order"},
	CollectionRankings:      {Name: CollectionRankings, New: func() interface{} { return &Ranking{} }, SortField: "position"},
	CollectionContacts:      {Name: CollectionContacts, New: func() interface{} { return &Contact{} }, SortField: "name"},
	CollectionCollaborators: {Name: CollectionCollaborators, New: func() interface{} { return &Collaborator{} }, SortField: "name"},
	CollectionMessages:      {Name: CollectionMessages, New: func() interface{} { return &Message{} }, SortField: "publishedAt", SortDesc: true},
	CollectionPolls:         {Name: CollectionPolls, New: func() interface{} { return &Poll{} }, SortField: "createdAt", SortDesc: true, PerUserField: "votes"},
	CollectionQuickLinks:    {Name: CollectionQuickLinks, New: func() interface{} { return &QuickLink{} }, SortField: "order"},
	CollectionWorkflows:     {Name: CollectionWorkflows, New: func() interface{} { return &WorkflowRequest{} }, SortField: "createdAt", SortDesc: true, Write: WriteCreateAuthenticated, Read: ReadOwn, OwnerField: "requesterId"},
	CollectionEvents:        {Name: CollectionEvents, New: func() interface{} { return &Event{} }, SortField: "date"},
	CollectionHighlights:    {Name: CollectionHighlights, New: func() interface{} { return &Highlight{} }, SortField: "order"},
	CollectionApplications:  {Name: CollectionApplications, New: func() interface{} { return &Application{} }, SortField: "order"},
	CollectionFabMessages:   {Name: CollectionFabMessages, New: func() interface{} { return &FabMessage{} }, SortField: "userId", KeyField: "userId", Read: ReadAdmin},
}

// LookupCollection returns the definition of a collection served by the generic routes
func LookupCollection(name string) (CollectionDef, bool) {
	def, ok := collectionDefs[name]
	return def, ok
}

// CollectionNames lists the generic collections in alphabetical order
func CollectionNames() []string {
	names := make([]string, 0, len(collectionDefs))
	for name := range collectionDefs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
