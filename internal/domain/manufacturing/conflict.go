package manufacturing

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Overlaps reports whether half-open windows [aStart, aEnd) and [bStart, bEnd) intersect
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Conflict is one overlap between two schedules on a work center
type Conflict struct {
	ScheduleID     int64
	OtherID        int64
	OtherReference string
	WorkCenterID   int64
	OverlapStart   time.Time
	OverlapEnd     time.Time
}

// FindConflicts lists the non-cancelled schedules in others overlapping target
func FindConflicts(target *ProductionSchedule, others []*ProductionSchedule) []Conflict {
	out := make([]Conflict, 0)
	if target.Status == ScheduleStatusCancelled {
		return out
	}
	for _, o := range others {
		if o == target || (o.ID != 0 && o.ID == target.ID) {
			continue
		}
		if o.Status == ScheduleStatusCancelled || o.WorkCenterID != target.WorkCenterID {
			continue
		}
		if !Overlaps(target.ScheduledStart, target.ScheduledEnd, o.ScheduledStart, o.ScheduledEnd) {
			continue
		}
		start, end := target.ScheduledStart, target.ScheduledEnd
		if o.ScheduledStart.After(start) {
			start = o.ScheduledStart
		}
		if o.ScheduledEnd.Before(end) {
			end = o.ScheduledEnd
		}
		out = append(out, Conflict{
			ScheduleID:     target.ID,
			OtherID:        o.ID,
			OtherReference: o.Reference,
			WorkCenterID:   target.WorkCenterID,
			OverlapStart:   start,
			OverlapEnd:     end,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OverlapStart.Before(out[j].OverlapStart) })
	return out
}

// DetectConflicts recomputes conflict flags for every schedule of a work center
// and returns the schedules whose flags changed.
func DetectConflicts(wc *WorkCenter, schedules []*ProductionSchedule) []*ProductionSchedule {
	changed := make([]*ProductionSchedule, 0)
	for _, s := range schedules {
		details := describeConflicts(wc, FindConflicts(s, schedules))
		if s.SetConflict(details) {
			changed = append(changed, s)
		}
	}
	return changed
}

func describeConflicts(wc *WorkCenter, conflicts []Conflict) string {
	if len(conflicts) == 0 {
		return ""
	}
	name := wc.Name
	if name == "" {
		name = wc.Code
	}
	parts := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		parts = append(parts, fmt.Sprintf("overlaps %s on %s from %s to %s",
			c.OtherReference, name,
			c.OverlapStart.UTC().Format(time.RFC3339), c.OverlapEnd.UTC().Format(time.RFC3339)))
	}
	return strings.Join(parts, "; ")
}
