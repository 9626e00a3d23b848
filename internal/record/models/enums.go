package models

import (
	"fmt"
)

// Status is the closed lifecycle set for a record. Archived is terminal.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusArchived  Status = "archived"
)

// statusTransitions is the caller-controlled lifecycle graph. Any non-archived
// status may move to archived; the scheduler uses the same edge.
var statusTransitions = map[Status][]Status{
	StatusDraft:     {StatusPending, StatusArchived},
	StatusPending:   {StatusActive, StatusArchived},
	StatusActive:    {StatusSuspended, StatusArchived},
	StatusSuspended: {StatusActive, StatusArchived},
	StatusArchived:  {},
}

// ParseStatus validates a status string against the closed set.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusPending, StatusActive, StatusSuspended, StatusArchived:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status: %q", s)
}

// IsValid reports closed-set membership.
func (s Status) IsValid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// CanTransitionTo reports whether the lifecycle graph allows moving to next.
// Staying on the same status is always allowed (idempotent writes).
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Priority is the closed urgency set.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParsePriority validates a priority string against the closed set.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return Priority(s), nil
	}
	return "", fmt.Errorf("unknown priority: %q", s)
}

func (p Priority) IsValid() bool {
	_, err := ParsePriority(string(p))
	return err == nil
}

// Category is the closed grouping set.
type Category string

const (
	CategoryGeneral     Category = "general"
	CategoryFinance     Category = "finance"
	CategoryEngineering Category = "engineering"
	CategoryMarketing   Category = "marketing"
	CategorySupport     Category = "support"
)

// ParseCategory validates a category string against the closed set.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryGeneral, CategoryFinance, CategoryEngineering, CategoryMarketing, CategorySupport:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

func (c Category) IsValid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}
