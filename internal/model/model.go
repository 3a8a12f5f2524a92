// Package model defines the domain types used across the application.
package model

import "time"

// ContentType classifies a harvested content record.
type ContentType string

// Supported content types.
const (
	TypeImage ContentType = "image"
	TypeVideo ContentType = "video"
	TypeQuote ContentType = "quote"
	TypeJoke  ContentType = "joke"
	TypeFact  ContentType = "fact"
	TypeWeb   ContentType = "web"
)

// ContentTypes lists all supported content types in canonical order.
var ContentTypes = []ContentType{TypeImage, TypeVideo, TypeQuote, TypeJoke, TypeFact, TypeWeb}

// Valid reports whether t is one of the supported content types.
func (t ContentType) Valid() bool {
	for _, ct := range ContentTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// ContentRecord is a single harvested unit of content. Identity within a type
// is the NaturalKey: the URL for images and web pages, the provider video ID
// for videos, and "source/externalID" for quotes, jokes and facts.
type ContentRecord struct {
	ID           int64
	Type         ContentType
	NaturalKey   string
	Provider     string
	Title        string
	Text         string
	URL          string
	Thumb        string
	Language     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastShownAt  *time.Time
	LikeCount    int
	DislikeCount int
	ShowWeight   int
	IsSuppressed bool
}

// RunStatus is the terminal outcome of one cron job execution.
type RunStatus string

// Run statuses.
const (
	RunSuccess RunStatus = "success"
	RunFailure RunStatus = "failure"
)

// TriggerSource records what started a cron job execution.
type TriggerSource string

// Trigger sources.
const (
	TriggerCron    TriggerSource = "cron"
	TriggerManual  TriggerSource = "manual"
	TriggerUnknown TriggerSource = "unknown"
)

// CronRunEntry is one immutable journal record per job execution.
// Entries are append-only; nothing in this service mutates or deletes them.
type CronRunEntry struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Status           RunStatus         `json:"status"`
	StartedAt        time.Time         `json:"startedAt"`
	FinishedAt       time.Time         `json:"finishedAt"`
	DurationMs       int64             `json:"durationMs"`
	TriggeredBy      TriggerSource     `json:"triggeredBy"`
	Details          map[string]string `json:"details,omitempty"`
	DetailsTruncated int               `json:"detailsTruncated,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// UsageCounter holds one local calendar day's usage counts, bucketed by
// content type, language and provider. Day is a date string computed in the
// configured reporting timezone.
type UsageCounter struct {
	Day        string           `json:"day"`
	ByType     map[string]int64 `json:"byType"`
	ByLanguage map[string]int64 `json:"byLanguage"`
	ByProvider map[string]int64 `json:"byProvider"`
}

// CronJobSummary aggregates the journal entries of one job name inside a
// reporting window.
type CronJobSummary struct {
	Name      string        `json:"name"`
	Total     int           `json:"total"`
	Successes int           `json:"successes"`
	Failures  int           `json:"failures"`
	LastRun   *CronRunEntry `json:"lastRun,omitempty"`
}

// DailyReport is the derived daily rollup. It is computed on demand and never
// persisted; delivery belongs to an external collaborator.
type DailyReport struct {
	Day             string                `json:"day"`
	WindowStart     time.Time             `json:"windowStart"`
	WindowEnd       time.Time             `json:"windowEnd"`
	Timezone        string                `json:"timezone"`
	CreatedByType   map[ContentType]int64 `json:"createdByType"`
	UpdatedByType   map[ContentType]int64 `json:"updatedByType"`
	Usage           *UsageCounter         `json:"usage,omitempty"`
	CronJobs        []CronJobSummary      `json:"cronJobs"`
	InventoryByType map[ContentType]int64 `json:"inventoryByType"`
	InventoryTotal  int64                 `json:"inventoryTotal"`
}
