package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"wf_reminder_bot/internal/domain/cycle"
	"wf_reminder_bot/internal/domain/fissure"
	"wf_reminder_bot/internal/domain/reminder"
)

// Custom application-level errors for the reminder service
var (
	ErrCycleUnavailable  = errors.New("cycle data is unavailable")
	ErrMarketUnavailable = errors.New("market data is unavailable")
	ErrPhaseNotFound     = errors.New("phase not found for this region")
	ErrItemNotFound      = errors.New("item not found")
	ErrRankNotSupported  = errors.New("this item has no ranks")
	ErrRankOutOfRange    = errors.New("rank is out of range for this item")
	ErrInvalidPrice      = errors.New("price must not be negative")
	ErrInvalidSide       = errors.New("side must be sell or buy")
	ErrEmptyMission      = errors.New("mission type is required")
	ErrEmptyLabel        = errors.New("reminder label is required")
	ErrTimeInPast        = errors.New("reminder time must be in the future")
	ErrAlreadyHandled    = errors.New("reminder has already fired or been cancelled")
	ErrAmbiguousID       = errors.New("id matches more than one reminder")
)

// minIDSuffix is the shortest id tail accepted for cancellation.
const minIDSuffix = 6

type ReminderService struct {
	repo   reminder.Repository
	cycles *CycleTracker
	market *MarketService
	logger *logrus.Entry
	now    func() time.Time
	newID  func() string
}

func NewReminderService(repo reminder.Repository, cycles *CycleTracker, market *MarketService, logger *logrus.Entry) *ReminderService {
	return &ReminderService{
		repo:   repo,
		cycles: cycles,
		market: market,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return ulid.Make().String() },
	}
}

func (s *ReminderService) base(kind reminder.Kind, userID, channelID int64, displayName string) *reminder.Reminder {
	return &reminder.Reminder{
		ID:          s.newID(),
		Kind:        kind,
		UserID:      userID,
		ChannelID:   channelID,
		DisplayName: displayName,
		Enabled:     true,
		CreatedTS:   s.now().Unix(),
	}
}

func (s *ReminderService) add(ctx context.Context, r *reminder.Reminder) (*reminder.Reminder, error) {
	if err := s.repo.Add(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to store reminder: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"reminder_id": r.ID,
		"user_id":     r.UserID,
		"kind":        r.Kind,
		"trigger_ts":  r.TriggerTS,
	}).Info("Reminder created")
	return r, nil
}

// CreateCycleReminder schedules a reminder leadMinutes before the next start
// of phaseName in regionName. The trigger time is always in the future.
func (s *ReminderService) CreateCycleReminder(ctx context.Context, userID, channelID int64, regionName, phaseName string, leadMinutes int) (*reminder.Reminder, error) {
	region, err := s.cycles.Regions().Find(regionName)
	if err != nil {
		return nil, err
	}
	phase, ok := findPhase(region.Phases, phaseName)
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrPhaseNotFound, phaseName, region.Label)
	}
	if leadMinutes < 0 {
		leadMinutes = 0
	}

	status, err := s.cycles.Status(ctx, region.Key)
	if err != nil {
		return nil, err
	}
	startTS, triggerTS := cycle.ComputeTriggerTimes(status, phase.Key, leadMinutes, s.now().Unix())
	if startTS <= 0 || triggerTS <= 0 {
		return nil, fmt.Errorf("%w: cannot resolve the next %s", ErrCycleUnavailable, phase.Label)
	}

	r := s.base(reminder.KindCycle, userID, channelID, fmt.Sprintf("%s - %s", region.Label, phase.Label))
	r.TriggerTS = triggerTS
	r.Cycle = &reminder.CycleTarget{
		Region:      region.Key,
		TargetPhase: phase.Key,
		StartTS:     startTS,
		LeadMinutes: leadMinutes,
	}
	r.Metadata = map[string]string{
		reminder.MetaRegionLabel: region.Label,
		reminder.MetaPhaseLabel:  phase.Label,
	}
	return s.add(ctx, r)
}

func findPhase(pattern cycle.Pattern, name string) (cycle.Phase, bool) {
	name = strings.TrimSpace(name)
	for _, ph := range pattern {
		if strings.EqualFold(ph.Key, name) || strings.EqualFold(ph.Label, name) {
			return ph, true
		}
	}
	return cycle.Phase{}, false
}

// CreateMarketReminder watches one side of an item's order book for a price
// at or past target. Rankable items default to rank 0.
func (s *ReminderService) CreateMarketReminder(ctx context.Context, userID, channelID int64, query string, side reminder.Side, target int, rank *int) (*reminder.Reminder, error) {
	if !side.Valid() {
		return nil, ErrInvalidSide
	}
	if target < 0 {
		return nil, ErrInvalidPrice
	}
	item, err := s.market.ResolveItem(ctx, query)
	if err != nil {
		return nil, err
	}

	switch {
	case !item.Rankable() && rank != nil:
		return nil, fmt.Errorf("%w: %s", ErrRankNotSupported, item.Name)
	case item.Rankable() && rank == nil:
		zero := 0
		rank = &zero
	case item.Rankable() && (*rank < 0 || *rank > *item.MaxRank):
		return nil, fmt.Errorf("%w: %s accepts 0-%d", ErrRankOutOfRange, item.Name, *item.MaxRank)
	}

	name := item.Name
	if rank != nil {
		name = fmt.Sprintf("%s (rank %d)", item.Name, *rank)
	}
	r := s.base(reminder.KindMarket, userID, channelID, name)
	r.Market = &reminder.MarketTarget{
		Slug:        item.Slug,
		ItemName:    item.Name,
		Side:        side,
		TargetPrice: target,
	}
	if rank != nil {
		v := *rank
		r.Market.Rank = &v
	}
	return s.add(ctx, r)
}

// CreateFissureReminder waits for the next fissure of a mission type.
func (s *ReminderService) CreateFissureReminder(ctx context.Context, userID, channelID int64, mission string, difficulty reminder.Difficulty) (*reminder.Reminder, error) {
	mission = fissure.CanonicalMission(mission)
	if mission == "" {
		return nil, ErrEmptyMission
	}
	if difficulty == "" {
		difficulty = reminder.DifficultyAll
	}
	if !difficulty.Valid() {
		return nil, fmt.Errorf("%w: %q", reminder.ErrInvalidDifficulty, difficulty)
	}

	label := string(difficulty)
	if difficulty == reminder.DifficultyAll {
		label = "any"
	}
	r := s.base(reminder.KindFissure, userID, channelID, fmt.Sprintf("%s (%s)", mission, label))
	r.Fissure = &reminder.FissureTarget{MissionType: mission, Difficulty: difficulty}
	return s.add(ctx, r)
}

// CreateCustomReminder fires a plain labelled reminder at a fixed time.
func (s *ReminderService) CreateCustomReminder(ctx context.Context, userID, channelID int64, label string, at time.Time) (*reminder.Reminder, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrEmptyLabel
	}
	if !at.After(s.now()) {
		return nil, ErrTimeInPast
	}
	r := s.base(reminder.KindCustom, userID, channelID, label)
	r.TriggerTS = at.Unix()
	return s.add(ctx, r)
}

// List returns the user's pending reminders in listing order.
func (s *ReminderService) List(ctx context.Context, userID int64) ([]*reminder.Reminder, error) {
	items, err := s.repo.List(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return items, nil
}

// CancelByIndex cancels the index-th (1-based) pending reminder of List.
func (s *ReminderService) CancelByIndex(ctx context.Context, userID int64, index int) (*reminder.Reminder, error) {
	items, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if index < 1 || index > len(items) {
		return nil, fmt.Errorf("%w: no reminder #%d", reminder.ErrReminderNotFound, index)
	}
	return s.disable(ctx, items[index-1])
}

// CancelByID cancels one of the user's reminders by full id or by the
// unique tail of one (as shown in listings), at least six characters long.
func (s *ReminderService) CancelByID(ctx context.Context, userID int64, id string) (*reminder.Reminder, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return nil, reminder.ErrReminderNotFound
	}
	items, err := s.repo.List(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}

	var match *reminder.Reminder
	for _, it := range items {
		if strings.ToUpper(it.ID) == id {
			match = it
			break
		}
	}
	if match == nil && len(id) >= minIDSuffix {
		for _, it := range items {
			if !strings.HasSuffix(strings.ToUpper(it.ID), id) {
				continue
			}
			if match != nil {
				return nil, ErrAmbiguousID
			}
			match = it
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", reminder.ErrReminderNotFound, id)
	}
	if !match.Enabled {
		return nil, ErrAlreadyHandled
	}
	return s.disable(ctx, match)
}

func (s *ReminderService) disable(ctx context.Context, r *reminder.Reminder) (*reminder.Reminder, error) {
	ok, err := s.repo.Disable(ctx, r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel reminder: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyHandled
	}
	r.Enabled = false
	s.logger.WithFields(logrus.Fields{"reminder_id": r.ID, "user_id": r.UserID}).Info("Reminder cancelled")
	return r, nil
}

// ClearHistory removes the user's fired and cancelled reminders.
func (s *ReminderService) ClearHistory(ctx context.Context, userID int64) (int, error) {
	n, err := s.repo.ClearDisabled(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear reminder history: %w", err)
	}
	return n, nil
}
