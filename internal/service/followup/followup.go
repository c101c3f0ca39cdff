// Package followup remembers the temporal frame of the last sensor
// answer and rewrites elliptical follow-ups ("그때 습도는?") into
// self-contained queries.
package followup

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/sensor/intent"
	"github.com/sandevgo/airbot/internal/sensor/timeparse"
)

const (
	dateLayout   = "2006-01-02"
	koreanMinute = "2006년 01월 02일 15시 04분"
	koreanDate   = "2006년 01월 02일"
)

type Manager struct {
	extractor *timeparse.Extractor
}

func New(extractor *timeparse.Extractor) *Manager {
	return &Manager{extractor: extractor}
}

// SetContext records a frame. The recent slot always takes it; the gated
// slot only when the new type's priority is at least the current one.
func (m *Manager) SetContext(s *core.Session, typ core.FollowupType, data map[string]string) {
	now := m.extractor.Now()
	s.RecentContext = &core.FollowupContext{Type: typ, Data: maps.Clone(data), Timestamp: now}
	if cur := s.FollowupContext; cur == nil || typ.Priority() >= cur.Type.Priority() {
		s.FollowupContext = &core.FollowupContext{Type: typ, Data: maps.Clone(data), Timestamp: now}
	}
}

// GetContext returns the gated slot.
func (m *Manager) GetContext(s *core.Session) *core.FollowupContext {
	return s.FollowupContext
}

// SetTimestamp stores the last concrete instant a recency answer used.
func (m *Manager) SetTimestamp(s *core.Session, t time.Time) {
	t = t.In(core.KST)
	s.FollowupTimestamp = &t
}

// Clear drops every frame, e.g. on /reset.
func (m *Manager) Clear(s *core.Session) {
	s.FollowupContext = nil
	s.RecentContext = nil
	s.FollowupTimestamp = nil
}

// Expand rewrites query with the stored frame when it has no time of its
// own and still looks like a sensor follow-up. Anything else comes back
// unchanged.
func (m *Manager) Expand(query string, s *core.Session) string {
	if s == nil || m.hasOwnTime(query) {
		return query
	}
	if !intent.HasSensorKeyword(query) && !intent.HasFollowupHint(query) {
		return query
	}

	ctx := s.RecentContext
	if ctx == nil {
		ctx = s.FollowupContext
	}
	if ctx != nil {
		if prefix, ok := describe(ctx); ok {
			return prefix + " " + query
		}
	}
	if s.FollowupTimestamp != nil {
		return s.FollowupTimestamp.In(core.KST).Format(koreanMinute) + " " + query
	}
	if w := s.LastSensorWindow; w != nil && !w.Start.IsZero() && !w.End.IsZero() {
		return fmt.Sprintf("%s (기준 구간: %s~%s)", query,
			w.Start.In(core.KST).Format(core.TimeLayout), w.End.In(core.KST).Format(core.TimeLayout))
	}
	return query
}

func (m *Manager) hasOwnTime(query string) bool {
	if m.extractor.MentionsTime(query) || timeparse.IsRecent(query) {
		return true
	}
	if _, ok := timeparse.RelativeOffset(query); ok {
		return true
	}
	if _, ok := timeparse.RelativeDay(query); ok {
		return true
	}
	return intent.IsDailyAverage(query, false, false)
}

func describe(c *core.FollowupContext) (string, bool) {
	switch c.Type {
	case core.FollowupSingleTime:
		t, err := time.ParseInLocation(core.TimeLayout, c.Data["time"], core.KST)
		if err != nil {
			return "", false
		}
		return t.Format(koreanMinute), true
	case core.FollowupTimeRange:
		start, err1 := time.ParseInLocation(core.TimeLayout, c.Data["start"], core.KST)
		end, err2 := time.ParseInLocation(core.TimeLayout, c.Data["end"], core.KST)
		if err1 != nil || err2 != nil {
			return "", false
		}
		return start.Format(koreanMinute) + "부터 " + end.Format(koreanMinute) + "까지", true
	case core.FollowupDailyAverage:
		d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(c.Data["date"]), core.KST)
		if err != nil {
			return "", false
		}
		return d.Format(koreanDate) + " 하루 평균", true
	}
	return "", false
}

// TimeData builds the data map for a single_time frame.
func TimeData(t time.Time) map[string]string {
	return map[string]string{"time": t.In(core.KST).Format(core.TimeLayout)}
}

func RangeData(start, end time.Time) map[string]string {
	return map[string]string{
		"start": start.In(core.KST).Format(core.TimeLayout),
		"end":   end.In(core.KST).Format(core.TimeLayout),
	}
}

func DateData(d time.Time) map[string]string {
	return map[string]string{"date": d.In(core.KST).Format(dateLayout)}
}
