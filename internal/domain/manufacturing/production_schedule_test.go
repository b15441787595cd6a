package manufacturing

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func schedule(t *testing.T, id int64, ref string, start, end time.Time) *ProductionSchedule {
	t.Helper()
	s, err := NewProductionSchedule(ScheduleSpec{
		Reference:         ref,
		ProductionOrderID: 1,
		WorkCenterID:      9,
		Start:             start,
		End:               end,
		Quantity:          d(10),
	})
	require.NoError(t, err)
	s.ID = id
	return s
}

func workCenter(t *testing.T) *WorkCenter {
	t.Helper()
	wc, err := NewWorkCenter("WC-1", "Press", 480, d(100))
	require.NoError(t, err)
	wc.ID = 9
	return wc
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps(at(10, 0), at(11, 0), at(10, 30), at(11, 30)))
	assert.False(t, Overlaps(at(10, 0), at(11, 0), at(11, 0), at(12, 0)), "half-open windows that touch do not overlap")
	assert.True(t, Overlaps(at(10, 0), at(12, 0), at(10, 30), at(11, 0)), "containment overlaps")
}

func TestDetectConflicts(t *testing.T) {
	wc := workCenter(t)

	t.Run("overlapping windows both conflict, abutting window does not", func(t *testing.T) {
		a := schedule(t, 1, "PS-A", at(10, 0), at(11, 0))
		b := schedule(t, 2, "PS-B", at(10, 30), at(11, 30))
		c := schedule(t, 3, "PS-C", at(11, 30), at(12, 30))

		changed := DetectConflicts(wc, []*ProductionSchedule{a, b, c})
		assert.Len(t, changed, 2)
		assert.True(t, a.HasConflict)
		assert.True(t, b.HasConflict)
		assert.False(t, c.HasConflict)
		assert.Contains(t, a.ConflictDetails, "PS-B")
		assert.Contains(t, a.ConflictDetails, "Press")
		assert.Contains(t, b.ConflictDetails, "PS-A")
		assert.NotContains(t, b.ConflictDetails, "PS-C")

		var raised int
		for _, s := range []*ProductionSchedule{a, b} {
			for _, ev := range s.GetDomainEvents() {
				if ev.EventType() == EventTypeScheduleConflictDetected {
					raised++
				}
			}
		}
		assert.Equal(t, 2, raised)
	})

	t.Run("flags clear once the overlap goes away", func(t *testing.T) {
		a := schedule(t, 1, "PS-A", at(10, 0), at(11, 0))
		b := schedule(t, 2, "PS-B", at(10, 30), at(11, 30))
		DetectConflicts(wc, []*ProductionSchedule{a, b})
		require.True(t, a.HasConflict)

		require.NoError(t, b.Cancel("planner", "moved"))
		changed := DetectConflicts(wc, []*ProductionSchedule{a, b})
		assert.Len(t, changed, 2)
		assert.False(t, a.HasConflict)
		assert.Empty(t, a.ConflictDetails)
		assert.False(t, b.HasConflict)
	})

	t.Run("reschedule out of the overlap clears flags", func(t *testing.T) {
		a := schedule(t, 1, "PS-A", at(10, 0), at(11, 0))
		b := schedule(t, 2, "PS-B", at(10, 30), at(11, 30))
		DetectConflicts(wc, []*ProductionSchedule{a, b})

		require.NoError(t, b.Reschedule(at(11, 0), at(12, 0)))
		DetectConflicts(wc, []*ProductionSchedule{a, b})
		assert.False(t, a.HasConflict)
		assert.False(t, b.HasConflict)
	})

	t.Run("unchanged flags are not reported", func(t *testing.T) {
		a := schedule(t, 1, "PS-A", at(10, 0), at(11, 0))
		b := schedule(t, 2, "PS-B", at(10, 30), at(11, 30))
		DetectConflicts(wc, []*ProductionSchedule{a, b})
		assert.Empty(t, DetectConflicts(wc, []*ProductionSchedule{a, b}))
	})
}

func TestProductionSchedule_Windows(t *testing.T) {
	_, err := NewProductionSchedule(ScheduleSpec{ProductionOrderID: 1, WorkCenterID: 1, Start: at(10, 0), End: at(10, 0), Quantity: d(1)})
	assert.True(t, errors.Is(err, shared.ErrValidation), "zero length")

	_, err = NewProductionSchedule(ScheduleSpec{ProductionOrderID: 1, WorkCenterID: 1, Start: at(11, 0), End: at(10, 0), Quantity: d(1)})
	assert.True(t, errors.Is(err, shared.ErrValidation), "inverted")

	s := schedule(t, 1, "PS-A", at(10, 0), at(11, 0))
	assert.True(t, errors.Is(s.Reschedule(at(12, 0), at(11, 0)), shared.ErrValidation))
	assert.Equal(t, at(10, 0), s.ScheduledStart)
}

func TestProductionSchedule_Lifecycle(t *testing.T) {
	t.Run("complete caps output at scheduled quantity", func(t *testing.T) {
		s := schedule(t, 1, "PS-A", at(10, 0), at(11, 0))
		assert.True(t, errors.Is(s.Complete("op", d(1), d(0)), shared.ErrInvalidState))

		require.NoError(t, s.Start("op"))
		require.NotNil(t, s.ActualStart)
		assert.True(t, errors.Is(s.Complete("op", d(9), d(2)), shared.ErrValidation))

		require.NoError(t, s.Complete("op", d(9), d(1)))
		assert.Equal(t, ScheduleStatusCompleted, s.Status)
		assert.True(t, errors.Is(s.Reschedule(at(12, 0), at(13, 0)), shared.ErrInvalidState))
	})

	t.Run("hold resumes to the held-from status", func(t *testing.T) {
		s := schedule(t, 1, "PS-A", at(10, 0), at(11, 0))
		require.NoError(t, s.MarkReady("planner"))
		require.NoError(t, s.Hold("planner", "tooling"))
		assert.Equal(t, ScheduleStatusOnHold, s.Status)
		assert.True(t, errors.Is(s.Hold("planner", "again"), shared.ErrInvalidState))

		require.NoError(t, s.Resume("planner"))
		assert.Equal(t, ScheduleStatusReady, s.Status)
	})
}

func TestWorkCenter_Utilization(t *testing.T) {
	wc := workCenter(t)

	a := schedule(t, 1, "PS-A", at(8, 0), at(10, 0))
	b := schedule(t, 2, "PS-B", at(13, 0), at(15, 0))
	cancelled := schedule(t, 3, "PS-C", at(15, 0), at(17, 0))
	require.NoError(t, cancelled.Cancel("planner", "dropped"))

	wc.RecomputeUtilization([]*ProductionSchedule{a, b, cancelled}, CalendarDays(a.ScheduledStart, a.ScheduledEnd))
	// 240 booked minutes of 480 available
	assert.True(t, wc.UtilizationPercentage.Equal(d(50)), "got %s", wc.UtilizationPercentage)

	wc.EfficiencyPercentage = d(80)
	wc.RecomputeUtilization([]*ProductionSchedule{a, b}, CalendarDays(a.ScheduledStart, a.ScheduledEnd))
	assert.True(t, wc.UtilizationPercentage.Equal(ds("62.5")), "got %s", wc.UtilizationPercentage)
}

func TestWorkCenter_UtilizationKeepsSeconds(t *testing.T) {
	wc := workCenter(t)
	a := schedule(t, 1, "PS-A", at(8, 0), at(12, 0).Add(30*time.Second))

	wc.RecomputeUtilization([]*ProductionSchedule{a}, CalendarDays(a.ScheduledStart, a.ScheduledEnd))
	// 240.5 booked minutes of 480 available
	assert.True(t, wc.UtilizationPercentage.Equal(ds("50.1")), "got %s", wc.UtilizationPercentage)
}

func TestCalendarDays(t *testing.T) {
	assert.Len(t, CalendarDays(at(22, 0), at(23, 0)), 1)
	assert.Len(t, CalendarDays(at(22, 0), at(26, 0)), 2)
	assert.Len(t, CalendarDays(at(22, 0), at(24, 0)), 1, "end at midnight stays on the first day")
}

func TestWorkCenter_Guards(t *testing.T) {
	wc := workCenter(t)
	require.NoError(t, wc.CanSchedule())

	wc.IsAvailable = false
	assert.True(t, errors.Is(wc.CanSchedule(), shared.ErrInvalidState))

	require.NoError(t, wc.SetBatchLimits(d(5), d(50)))
	assert.True(t, errors.Is(wc.CheckBatchSize(d(4)), shared.ErrValidation))
	assert.True(t, errors.Is(wc.CheckBatchSize(d(51)), shared.ErrValidation))
	assert.NoError(t, wc.CheckBatchSize(d(20)))

	_, err := NewWorkCenter("WC-2", "Lathe", 0, d(100))
	assert.True(t, errors.Is(err, shared.ErrValidation))
}
