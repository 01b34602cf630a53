// Package models defines the domain types for Life Matrix.
package models

import "time"

// Dimension is one tracked life category.
type Dimension struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Active bool   `json:"active" yaml:"active"`
	Color  string `json:"color" yaml:"color"`
}

// HistoryEntry is one recorded piece of progress. Dimension name and color
// are copied at creation so the entry still reads correctly after a rename.
type HistoryEntry struct {
	ID        string   `json:"id"`
	DimName   string   `json:"dimName"`
	DimColor  string   `json:"dimColor"`
	Text      string   `json:"text"`
	Tags      []string `json:"tags"`
	Points    int      `json:"pts"`
	Timestamp int64    `json:"timestamp"` // unix milliseconds
	DateStr   string   `json:"dateStr"`
}

// Snapshot is the unit of persistence: the whole profile, written wholesale
// after every mutation.
type Snapshot struct {
	Name       string         `json:"name"`
	Avatar     string         `json:"avatar,omitempty"`
	Dimensions []Dimension    `json:"dimensions"`
	Scores     []int          `json:"scores"`
	History    []HistoryEntry `json:"history"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// Score returns the experience stored for the dimension at index, or 0 when
// the vector is shorter than the dimension sequence.
func (s *Snapshot) Score(index int) int {
	if index < 0 || index >= len(s.Scores) {
		return 0
	}
	return s.Scores[index]
}

// GrowScores zero-fills the score vector until it holds at least n slots.
func (s *Snapshot) GrowScores(n int) {
	for len(s.Scores) < n {
		s.Scores = append(s.Scores, 0)
	}
}

// ActiveCount returns the number of active dimensions.
func (s *Snapshot) ActiveCount() int {
	n := 0
	for _, d := range s.Dimensions {
		if d.Active {
			n++
		}
	}
	return n
}

// DimensionIndex returns the sequence position of the dimension with id, or -1.
func (s *Snapshot) DimensionIndex(id string) int {
	for i, d := range s.Dimensions {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s *Snapshot) Clone() Snapshot {
	out := *s
	out.Dimensions = append([]Dimension(nil), s.Dimensions...)
	out.Scores = append([]int(nil), s.Scores...)
	out.History = make([]HistoryEntry, len(s.History))
	for i, e := range s.History {
		e.Tags = append([]string(nil), e.Tags...)
		out.History[i] = e
	}
	return out
}
