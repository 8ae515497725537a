package models

import "time"

type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Team struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	EventID     uint      `gorm:"index;uniqueIndex:idx_team_name" json:"eventId"`
	Name        string    `gorm:"uniqueIndex:idx_team_name" json:"name"`
	ProjectName string    `json:"projectName"`
	Slug        string    `json:"slug"`
	CreatedAt   time.Time `json:"createdAt"`
}

const DefaultCriterionMaxScore = 10

type Criterion struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	EventID     uint   `gorm:"index;uniqueIndex:idx_criterion_name" json:"eventId"`
	Name        string `gorm:"uniqueIndex:idx_criterion_name" json:"name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
	MaxScore    int    `json:"maxScore"`
}

// Jury is a single panel of an event. Members share the access code, and each
// panel slot of an event belongs to exactly one jury.
type Jury struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EventID    uint      `gorm:"index;uniqueIndex:idx_jury_panel" json:"eventId"`
	Panel      PanelSlot `gorm:"uniqueIndex:idx_jury_panel" json:"panel"`
	Name       string    `json:"name"`
	AccessCode string    `gorm:"uniqueIndex" json:"accessCode,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
