package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type PanelSlot int

const (
	Panel1 PanelSlot = iota + 1
	Panel2
	Panel3
)

const PanelCount = 3

var PanelSlots = [PanelCount]PanelSlot{Panel1, Panel2, Panel3}

func (p PanelSlot) Valid() bool {
	return p >= Panel1 && p <= Panel3
}

func (p PanelSlot) Key() string {
	return fmt.Sprintf("panel%d", int(p))
}

type PanelScore struct {
	ID         uint           `gorm:"primaryKey" json:"-"`
	TeamID     uint           `gorm:"uniqueIndex:idx_panel_slot;not null" json:"-"`
	Panel      PanelSlot      `gorm:"uniqueIndex:idx_panel_slot;not null" json:"panel"`
	Scores     map[string]int `gorm:"serializer:json" json:"scores"`
	Total      int            `json:"total"`
	Remarks    string         `json:"remarks"`
	AIFeedback *string        `json:"aiFeedback,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func (p *PanelScore) Clone() *PanelScore {
	if p == nil {
		return nil
	}
	dst := *p
	dst.Scores = make(map[string]int, len(p.Scores))
	for k, v := range p.Scores {
		dst.Scores[k] = v
	}
	if p.AIFeedback != nil {
		text := *p.AIFeedback
		dst.AIFeedback = &text
	}
	return &dst
}

// TeamScores is the per-team aggregate: up to one PanelScore per slot plus the
// derived average. AvgScore is nil until at least one panel has submitted.
type TeamScores struct {
	TeamID               uint         `gorm:"primaryKey"`
	Panels               []PanelScore `gorm:"foreignKey:TeamID;references:TeamID"`
	AvgScore             *float64
	ConsolidatedFeedback *string
	Version              int64
	UpdatedAt            time.Time
}

func (s *TeamScores) Slot(slot PanelSlot) *PanelScore {
	if s == nil {
		return nil
	}
	for i := range s.Panels {
		if s.Panels[i].Panel == slot {
			return &s.Panels[i]
		}
	}
	return nil
}

// Populated returns the filled slots in slot order.
func (s *TeamScores) Populated() []*PanelScore {
	res := make([]*PanelScore, 0, PanelCount)
	for _, slot := range PanelSlots {
		if panel := s.Slot(slot); panel != nil {
			res = append(res, panel)
		}
	}
	return res
}

func (s *TeamScores) Totals() []int {
	populated := s.Populated()
	totals := make([]int, len(populated))
	for i, panel := range populated {
		totals[i] = panel.Total
	}
	return totals
}

func (s *TeamScores) Clone() *TeamScores {
	if s == nil {
		return nil
	}
	dst := *s
	dst.Panels = make([]PanelScore, len(s.Panels))
	for i := range s.Panels {
		dst.Panels[i] = *s.Panels[i].Clone()
	}
	if s.AvgScore != nil {
		avg := *s.AvgScore
		dst.AvgScore = &avg
	}
	if s.ConsolidatedFeedback != nil {
		text := *s.ConsolidatedFeedback
		dst.ConsolidatedFeedback = &text
	}
	return &dst
}

type teamScoresJSON struct {
	TeamID               uint        `json:"teamId"`
	Panel1               *PanelScore `json:"panel1,omitempty"`
	Panel2               *PanelScore `json:"panel2,omitempty"`
	Panel3               *PanelScore `json:"panel3,omitempty"`
	AvgScore             *float64    `json:"avgScore,omitempty"`
	ConsolidatedFeedback *string     `json:"consolidatedFeedback,omitempty"`
	Version              int64       `json:"version"`
	UpdatedAt            time.Time   `json:"updatedAt"`
}

// MarshalJSON lays the panels out under their slot keys (panel1..panel3).
func (s TeamScores) MarshalJSON() ([]byte, error) {
	return json.Marshal(teamScoresJSON{
		TeamID:               s.TeamID,
		Panel1:               s.Slot(Panel1),
		Panel2:               s.Slot(Panel2),
		Panel3:               s.Slot(Panel3),
		AvgScore:             s.AvgScore,
		ConsolidatedFeedback: s.ConsolidatedFeedback,
		Version:              s.Version,
		UpdatedAt:            s.UpdatedAt,
	})
}

func (s *TeamScores) UnmarshalJSON(data []byte) error {
	var raw teamScoresJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = TeamScores{
		TeamID:               raw.TeamID,
		AvgScore:             raw.AvgScore,
		ConsolidatedFeedback: raw.ConsolidatedFeedback,
		Version:              raw.Version,
		UpdatedAt:            raw.UpdatedAt,
	}
	for i, panel := range []*PanelScore{raw.Panel1, raw.Panel2, raw.Panel3} {
		if panel == nil {
			continue
		}
		panel.Panel = PanelSlots[i]
		panel.TeamID = raw.TeamID
		s.Panels = append(s.Panels, *panel)
	}
	return nil
}
