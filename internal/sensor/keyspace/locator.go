package keyspace

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/pkg/log"
)

// Match is a closest-match result. Delta is actual minus requested.
type Match struct {
	Key       string
	Requested time.Time
	Actual    time.Time
	Delta     time.Duration
	Data      []byte
	Size      int64
}

// Exact reports whether the match sits on the requested minute.
func (m *Match) Exact() bool {
	return m.Delta == 0
}

// DeltaMinutes is the absolute difference in whole minutes.
func (m *Match) DeltaMinutes() int {
	d := m.Delta
	if d < 0 {
		d = -d
	}
	return int(d / time.Minute)
}

type Locator struct {
	store        core.ObjectStore
	radiusHours  int
	listLimit    int
	maxFileBytes int64
}

func NewLocator(store core.ObjectStore, radiusHours, listLimit int, maxFileBytes int64) *Locator {
	if radiusHours <= 0 {
		radiusHours = 72
	}
	return &Locator{
		store:        store,
		radiusHours:  radiusHours,
		listLimit:    listLimit,
		maxFileBytes: maxFileBytes,
	}
}

// Locate finds the file for exactly target at the given granularity.
// Minute lookups list the minavg hour slot, everything else the houravg
// slot. It never widens.
func (l *Locator) Locate(ctx context.Context, target time.Time, gran core.Granularity) (string, bool, error) {
	kind, token := KindHourAvg, HourToken(target)
	if gran == core.GranularityMinute {
		kind, token = KindMinAvg, MinuteToken(target)
	}

	objs, err := l.store.List(ctx, HourPrefix(kind, target), l.listLimit)
	if err != nil {
		return "", false, err
	}
	for _, o := range objs {
		if strings.Contains(path.Base(o.Key), token) {
			return o.Key, true, nil
		}
	}
	return "", false, nil
}

// LocateClosest widens hour by hour (0, -1, +1, -2, +2, ...) and stops at
// the first radius that has files. Within that radius the file whose
// filename stamp is nearest to target wins. Hour requests look at
// houravg before minavg, everything else the reverse.
func (l *Locator) LocateClosest(ctx context.Context, target time.Time, gran core.Granularity) (*Match, error) {
	logger := log.FromCtx(ctx)
	target = target.In(core.KST)
	order := []string{KindMinAvg, KindHourAvg}
	if gran == core.GranularityHour {
		order = []string{KindHourAvg, KindMinAvg}
	}
	base := target.Truncate(time.Hour)

	for r := 0; r <= l.radiusHours; r++ {
		offsets := []int{-r, r}
		if r == 0 {
			offsets = []int{0}
		}

		var found []core.ObjectInfo
		for _, off := range offsets {
			hour := base.Add(time.Duration(off) * time.Hour)
			for _, kind := range order {
				objs, err := l.store.List(ctx, HourPrefix(kind, hour), l.listLimit)
				if err != nil {
					if ctx.Err() != nil {
						return nil, ctx.Err()
					}
					logger.Debug().Err(err).Str("kind", kind).Time("hour", hour).Msg("closest-match listing failed")
					continue
				}
				objs = stamped(objs)
				if len(objs) > 0 {
					found = append(found, objs...)
					break
				}
			}
		}
		if len(found) == 0 {
			continue
		}

		best := nearest(found, target)
		actual, _ := FileStamp(best.Key)
		data, err := l.store.Get(ctx, best.Key, l.maxFileBytes)
		if err != nil {
			return nil, err
		}
		logger.Debug().
			Str("key", best.Key).
			Int("radius", r).
			Dur("delta", actual.Sub(target)).
			Msg("closest-match found")
		return &Match{
			Key:       best.Key,
			Requested: target,
			Actual:    actual,
			Delta:     actual.Sub(target),
			Data:      data,
			Size:      best.Size,
		}, nil
	}
	return nil, nil
}

func stamped(objs []core.ObjectInfo) []core.ObjectInfo {
	out := objs[:0:0]
	for _, o := range objs {
		if !strings.HasSuffix(o.Key, ".json") {
			continue
		}
		if _, ok := FileStamp(o.Key); ok {
			out = append(out, o)
		}
	}
	return out
}

// nearest picks the minimum absolute distance. Ties go to the earlier
// file, then the smaller key.
func nearest(objs []core.ObjectInfo, target time.Time) core.ObjectInfo {
	best := objs[0]
	bestT, _ := FileStamp(best.Key)
	for _, o := range objs[1:] {
		t, _ := FileStamp(o.Key)
		d, bd := absDur(t.Sub(target)), absDur(bestT.Sub(target))
		if d < bd || (d == bd && (t.Before(bestT) || (t.Equal(bestT) && o.Key < best.Key))) {
			best, bestT = o, t
		}
	}
	return best
}

func absDur(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
