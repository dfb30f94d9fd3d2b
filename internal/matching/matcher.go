// Package matching turns the pending signups of a time slot into persisted
// dinner groups.
//
// A run claims the slot, partitions its pending signups in signup order,
// assigns venues round-robin, and persists each group in its own
// transaction. One group failing to persist does not stop the others, and
// the slot stays open so a later run can place the signups left behind.
package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sharedtable/fare/internal/events"
	"github.com/sharedtable/fare/internal/metrics"
	"github.com/sharedtable/fare/internal/models"
	"github.com/sharedtable/fare/internal/partition"
	"github.com/sharedtable/fare/internal/storage"
)

// ErrSlotNotOpen is returned when a run finds the slot already grouped,
// closed, or claimed by another run.
var ErrSlotNotOpen = errors.New("time slot is not open for matching")

const (
	defaultConcurrency = 4
	defaultTimeout     = 30 * time.Second
)

// Store is the persistence the matcher needs.
type Store interface {
	storage.TimeSlotStore
	storage.SignupStore
	storage.GroupStore
	storage.RestaurantStore
}

// Matcher runs matching for time slots.
type Matcher struct {
	store       Store
	policies    *partition.PolicyTable
	publisher   events.Publisher
	logger      *slog.Logger
	concurrency int
	timeout     time.Duration
	now         func() time.Time
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) { m.logger = logger }
}

// WithConcurrency bounds how many slots RunOpen matches at once.
func WithConcurrency(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithTimeout bounds the work of a single run after the slot is claimed.
func WithTimeout(d time.Duration) Option {
	return func(m *Matcher) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// New creates a Matcher. A nil publisher drops events.
func New(store Store, policies *partition.PolicyTable, publisher events.Publisher, opts ...Option) *Matcher {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	m := &Matcher{
		store:       store,
		policies:    policies,
		publisher:   publisher,
		logger:      slog.Default(),
		concurrency: defaultConcurrency,
		timeout:     defaultTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Policies returns the policy table the matcher partitions with.
func (m *Matcher) Policies() *partition.PolicyTable {
	return m.policies
}

// PlannedGroup is a group that a run would persist.
type PlannedGroup struct {
	RestaurantName    string
	RestaurantAddress string
	Signups           []*models.Signup
}

// Plan is the outcome of partitioning a slot, before anything is written.
type Plan struct {
	Slot       *models.TimeSlot
	DinnerType partition.DinnerType
	Policy     partition.GroupSizePolicy
	Groups     []PlannedGroup
	Remainder  []*models.Signup
}

// Report describes a completed run.
type Report struct {
	SlotID     string
	DinnerType string

	// Groups are the groups that were persisted, in formation order.
	Groups []*models.DinnerGroup

	// Remainder are signups left pending because too few remained.
	Remainder []*models.Signup

	// Failed counts groups that could not be persisted. Their signups stay
	// pending.
	Failed int

	// SlotStatus is the slot status after the run.
	SlotStatus models.TimeSlotStatus
}

// Grouped returns the number of signups placed in persisted groups.
func (r *Report) Grouped() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Members)
	}
	return n
}

// Preview partitions the slot's pending signups without writing anything.
func (m *Matcher) Preview(ctx context.Context, slotID string) (*Plan, error) {
	slot, err := m.store.GetTimeSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	return m.plan(ctx, slot)
}

func (m *Matcher) plan(ctx context.Context, slot *models.TimeSlot) (*Plan, error) {
	dt, err := partition.ParseDinnerType(slot.DinnerType)
	if err != nil {
		return nil, err
	}
	policy, err := m.policies.Lookup(dt)
	if err != nil {
		return nil, err
	}

	signups, err := m.store.ListPendingSignups(ctx, slot.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending signups: %w", err)
	}

	result, err := partition.Partition(signups, dt, m.policies)
	if err != nil {
		return nil, err
	}

	restaurants, err := m.store.ListActiveRestaurants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}

	plan := &Plan{
		Slot:       slot,
		DinnerType: dt,
		Policy:     policy,
		Groups:     make([]PlannedGroup, len(result.Groups)),
		Remainder:  result.Remainder,
	}
	for i, members := range result.Groups {
		plan.Groups[i].Signups = members
		if len(restaurants) > 0 {
			r := restaurants[i%len(restaurants)]
			plan.Groups[i].RestaurantName = r.Name
			plan.Groups[i].RestaurantAddress = r.Address
		}
	}
	return plan, nil
}

// Run matches one time slot.
//
// The slot is claimed (open to matching) first, so concurrent runs on the
// same slot cannot both form groups; the loser gets ErrSlotNotOpen. A slot
// with an unknown dinner type is released back to open and no groups are
// formed. Otherwise the slot ends grouped when every planned group was
// persisted and at least one was formed. If any group failed, or none was
// formed, it ends open.
func (m *Matcher) Run(ctx context.Context, slotID string) (*Report, error) {
	start := m.now()
	result := metrics.ResultFailed
	defer func() {
		metrics.MatchingRuns.WithLabelValues(result).Inc()
		metrics.MatchingDuration.Observe(time.Since(start).Seconds())
	}()

	if err := m.store.ClaimTimeSlot(ctx, slotID, models.TimeSlotOpen, models.TimeSlotMatching); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			result = metrics.ResultSkipped
			return nil, fmt.Errorf("%w: %v", ErrSlotNotOpen, err)
		}
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// The final status transition must happen even if the run timed out.
	finishCtx := context.WithoutCancel(ctx)

	slot, err := m.store.GetTimeSlot(runCtx, slotID)
	if err != nil {
		m.release(finishCtx, slotID, models.TimeSlotOpen)
		return nil, err
	}

	plan, err := m.plan(runCtx, slot)
	if err != nil {
		m.logger.Error("Matching aborted", "slot_id", slotID, "dinner_type", slot.DinnerType, "error", err)
		m.release(finishCtx, slotID, models.TimeSlotOpen)
		return nil, err
	}

	report := m.persist(runCtx, plan)

	final := models.TimeSlotOpen
	if len(report.Groups) > 0 && report.Failed == 0 {
		final = models.TimeSlotGrouped
	}
	if err := m.store.ClaimTimeSlot(finishCtx, slotID, models.TimeSlotMatching, final); err != nil {
		return report, fmt.Errorf("failed to finish matching for slot %s: %w", slotID, err)
	}
	report.SlotStatus = final

	label := plan.DinnerType.String()
	metrics.GroupsFormed.WithLabelValues(label).Add(float64(len(report.Groups)))
	metrics.SignupsGrouped.WithLabelValues(label).Add(float64(report.Grouped()))
	metrics.SignupsRemainder.WithLabelValues(label).Add(float64(len(report.Remainder)))
	if len(report.Groups) > 0 {
		result = metrics.ResultGrouped
	} else {
		result = metrics.ResultNoGroups
	}

	m.logger.Info("Matching complete",
		"slot_id", slotID,
		"dinner_type", label,
		"groups", len(report.Groups),
		"grouped", report.Grouped(),
		"remainder", len(report.Remainder),
		"failed", report.Failed,
		"status", final,
	)

	return report, nil
}

func (m *Matcher) persist(ctx context.Context, plan *Plan) *Report {
	slot := plan.Slot
	report := &Report{
		SlotID:     slot.ID,
		DinnerType: plan.DinnerType.String(),
		Remainder:  plan.Remainder,
	}

	for i, planned := range plan.Groups {
		group := &models.DinnerGroup{
			TimeSlotID:        slot.ID,
			RestaurantName:    planned.RestaurantName,
			RestaurantAddress: planned.RestaurantAddress,
			ReservationDate:   slot.Date,
			ReservationTime:   slot.Time,
			Members:           make([]models.GroupMember, len(planned.Signups)),
		}
		for j, s := range planned.Signups {
			group.Members[j] = models.GroupMember{SignupID: s.ID, UserID: s.UserID}
		}

		if err := m.store.CreateDinnerGroup(ctx, group); err != nil {
			m.logger.Error("Failed to persist dinner group",
				"slot_id", slot.ID,
				"index", i,
				"size", len(planned.Signups),
				"error", err,
			)
			metrics.GroupPersistFailures.Inc()
			report.Failed++
			continue
		}
		report.Groups = append(report.Groups, group)

		event := events.GroupFormedEvent{
			GroupID:         group.ID,
			TimeSlotID:      slot.ID,
			DinnerType:      report.DinnerType,
			RestaurantName:  group.RestaurantName,
			ReservationDate: group.ReservationDate,
			ReservationTime: group.ReservationTime,
			UserIDs:         group.UserIDs(),
			FormedAt:        m.now().UTC(),
		}
		if err := m.publisher.PublishGroupFormed(ctx, event); err != nil {
			m.logger.Warn("Failed to publish group formed event", "group_id", group.ID, "error", err)
			metrics.EventPublishFailures.Inc()
		}
	}

	return report
}

func (m *Matcher) release(ctx context.Context, slotID string, to models.TimeSlotStatus) {
	if err := m.store.ClaimTimeSlot(ctx, slotID, models.TimeSlotMatching, to); err != nil {
		m.logger.Error("Failed to release time slot", "slot_id", slotID, "error", err)
	}
}

// Release moves a slot left in matching back to open. Groups already
// persisted stay; their signups are no longer pending and are not regrouped.
func (m *Matcher) Release(ctx context.Context, slotID string) error {
	if err := m.store.ClaimTimeSlot(ctx, slotID, models.TimeSlotMatching, models.TimeSlotOpen); err != nil {
		return fmt.Errorf("failed to release time slot %s: %w", slotID, err)
	}
	m.logger.Warn("Time slot released", "slot_id", slotID)
	return nil
}

// RecoverStale reopens slots whose matching claim is older than any run could
// take, which happens when the process died mid-run. It returns their IDs.
func (m *Matcher) RecoverStale(ctx context.Context) ([]string, error) {
	before := m.now().Add(-m.staleAfter()).Unix()
	ids, err := m.store.ResetStaleTimeSlots(ctx, models.TimeSlotMatching, models.TimeSlotOpen, before)
	if err != nil {
		return nil, fmt.Errorf("failed to recover stale time slots: %w", err)
	}
	for _, id := range ids {
		m.logger.Warn("Recovered stale time slot", "slot_id", id)
	}
	return ids, nil
}

func (m *Matcher) staleAfter() time.Duration {
	return 2 * m.timeout
}

// RunOpen matches every open slot, at most the configured number at once.
// Stale claims are recovered first. Slots claimed by another run in the
// meantime are skipped. A failing slot does not stop the others; all failures
// are returned joined, alongside the reports of the slots that succeeded.
func (m *Matcher) RunOpen(ctx context.Context) ([]*Report, error) {
	if _, err := m.RecoverStale(ctx); err != nil {
		return nil, err
	}

	slots, err := m.store.ListTimeSlots(ctx, models.TimeSlotOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to list open time slots: %w", err)
	}

	reports := make([]*Report, len(slots))
	errs := make([]error, len(slots))

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, slot := range slots {
		g.Go(func() error {
			report, err := m.Run(ctx, slot.ID)
			switch {
			case errors.Is(err, ErrSlotNotOpen):
				m.logger.Info("Skipping time slot", "slot_id", slot.ID, "reason", err)
			case err != nil:
				errs[i] = fmt.Errorf("slot %s: %w", slot.ID, err)
			}
			reports[i] = report
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*Report, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, errors.Join(errs...)
}
