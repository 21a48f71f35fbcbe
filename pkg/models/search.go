package models

import "time"

// SortBy selects the ordering of ranked candidates
type SortBy string

const (
	SortByRelevance SortBy = "relevance"
	SortByName      SortBy = "name"
	SortByRecent    SortBy = "recent"
)

// Criteria is the conjunctive filter accepted by advanced search
type Criteria struct {
	Name         string `json:"name,omitempty" yaml:"name"`
	Email        string `json:"email,omitempty" yaml:"email"`
	Phone        string `json:"phone,omitempty" yaml:"phone"`
	Status       string `json:"status,omitempty" yaml:"status"`
	City         string `json:"city,omitempty" yaml:"city"`
	State        string `json:"state,omitempty" yaml:"state"`
	MinRelevance *int   `json:"min_relevance,omitempty" yaml:"min_relevance" validate:"omitempty,min=0"`
}

// IsEmpty reports whether no field criterion was supplied
func (c Criteria) IsEmpty() bool {
	return c.Name == "" && c.Email == "" && c.Phone == "" && c.Status == "" && c.City == "" && c.State == ""
}

// AdvancedMatch is one record accepted by advanced search
type AdvancedMatch struct {
	Record CustomerRecord `json:"record"`
	Score  int            `json:"relevance_score"`
}

// SearchSummary describes the outcome of one search. Callers keep it to feed statistics.
type SearchSummary struct {
	ID                string    `json:"id,omitempty"`
	Query             string    `json:"query"`
	TotalFound        int       `json:"total_found"`
	AvgRelevanceScore int       `json:"avg_relevance_score"`
	TopMatchReason    string    `json:"top_match_reason"`
	HighConfidence    int       `json:"high_confidence"`
	SearchedAt        time.Time `json:"searched_at"`
}

// Statistics describes the candidate dataset, optionally with the caller's last search
type Statistics struct {
	TotalClients     int            `json:"total_clients"`
	UniqueClients    int            `json:"unique_clients"`
	ActiveClients    int            `json:"active_clients"`
	ClientsWithEmail int            `json:"clients_with_email"`
	ClientsWithPhone int            `json:"clients_with_phone"`
	UniqueEmails     int            `json:"unique_emails"`
	UniquePhones     int            `json:"unique_phones"`
	DataCompleteness int            `json:"data_completeness"`
	LastSearch       *SearchSummary `json:"last_search"`
}

// PlatformStats are the store level counters of one platform
type PlatformStats struct {
	Platform      Platform `json:"platform" db:"platform"`
	Total         int      `json:"total" db:"total"`
	UniqueClients int      `json:"unique_clients" db:"unique_clients"`
	UniqueEmails  int      `json:"unique_emails" db:"unique_emails"`
	TotalValue    float64  `json:"total_value" db:"total_value"`
	Active        int      `json:"active" db:"active"`
	Cancelled     int      `json:"cancelled" db:"cancelled"`
}

// ImportStatus is the lifecycle of an import run
type ImportStatus string

const (
	ImportStatusRunning   ImportStatus = "running"
	ImportStatusSucceeded ImportStatus = "succeeded"
	ImportStatusSkipped   ImportStatus = "skipped"
	ImportStatusFailed    ImportStatus = "failed"
)

// ImportRun records one CSV import attempt
type ImportRun struct {
	ID          string       `json:"id" db:"id"`
	Platform    Platform     `json:"platform" db:"platform"`
	FileName    string       `json:"file_name" db:"file_name"`
	Fingerprint string       `json:"fingerprint" db:"fingerprint"`
	Status      ImportStatus `json:"status" db:"status"`
	RowsRead    int          `json:"rows_read" db:"rows_read"`
	RowsSkipped int          `json:"rows_skipped" db:"rows_skipped"`
	RowsWritten int          `json:"rows_written" db:"rows_written"`
	Error       *string      `json:"error,omitempty" db:"error"`
	StartedAt   time.Time    `json:"started_at" db:"started_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty" db:"finished_at"`
}
