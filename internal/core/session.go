package core

import "time"

type FollowupType string

const (
	FollowupTimeRange    FollowupType = "time_range"
	FollowupDailyAverage FollowupType = "daily_average"
	FollowupSingleTime   FollowupType = "single_time"
)

// Priority orders context types. Higher wins the gated slot.
func (t FollowupType) Priority() int {
	switch t {
	case FollowupTimeRange:
		return 3
	case FollowupDailyAverage:
		return 2
	case FollowupSingleTime:
		return 1
	}
	return 0
}

// FollowupContext is a frame of reference for elliptical follow-ups.
// Data keys: "time" for single_time, "start"/"end" for time_range,
// "date" for daily_average. Values use TimeLayout or "2006-01-02".
type FollowupContext struct {
	Type      FollowupType      `json:"type"`
	Data      map[string]string `json:"data"`
	Timestamp time.Time         `json:"timestamp"`
}

type Turn struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
	Route  Route  `json:"route"`
}

// SensorWindow caches what the last sensor turn looked at.
type SensorWindow struct {
	Window string      `json:"window"`
	Start  time.Time   `json:"start"`
	End    time.Time   `json:"end"`
	Rows   []SensorRow `json:"rows,omitempty"`
	Tag    string      `json:"tag,omitempty"`
	Label  string      `json:"label,omitempty"`
}

type Session struct {
	ID                string           `json:"session_id"`
	TurnID            int              `json:"turn_id"`
	History           []Turn           `json:"history"`
	LastSensorWindow  *SensorWindow    `json:"last_sensor_ctx,omitempty"`
	FollowupTimestamp *time.Time       `json:"followup_timestamp,omitempty"`
	FollowupContext   *FollowupContext `json:"followup_context,omitempty"`
	RecentContext     *FollowupContext `json:"recent_context,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	LastActivity      time.Time        `json:"last_activity"`
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:           id,
		History:      []Turn{},
		CreatedAt:    now,
		LastActivity: now,
	}
}

// AppendHistory adds a turn and keeps only the newest max entries.
func (s *Session) AppendHistory(t Turn, max int) {
	s.History = append(s.History, t)
	if max > 0 && len(s.History) > max {
		s.History = append([]Turn(nil), s.History[len(s.History)-max:]...)
	}
}

// RecentHistory returns up to n newest turns in chronological order.
func (s *Session) RecentHistory(n int) []Turn {
	if n <= 0 || len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// Expired reports whether the session has been idle longer than ttl.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.LastActivity) > ttl
}

// Normalize moves every stored instant into KST after a reload.
func (s *Session) Normalize() {
	s.CreatedAt = s.CreatedAt.In(KST)
	s.LastActivity = s.LastActivity.In(KST)
	if s.FollowupTimestamp != nil {
		t := s.FollowupTimestamp.In(KST)
		s.FollowupTimestamp = &t
	}
	for _, c := range []*FollowupContext{s.FollowupContext, s.RecentContext} {
		if c != nil {
			c.Timestamp = c.Timestamp.In(KST)
		}
	}
	if w := s.LastSensorWindow; w != nil {
		w.Start = w.Start.In(KST)
		w.End = w.End.In(KST)
		for i := range w.Rows {
			w.Rows[i].Timestamp = w.Rows[i].Timestamp.In(KST)
		}
	}
}
