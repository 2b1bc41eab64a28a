package app

import (
	"context"
	"fmt"
	"time"

	"wf_reminder_bot/internal/domain/fissure"
	"wf_reminder_bot/internal/domain/reminder"
)

// FissureBoard serves the active fissure listing for the /fissures command.
type FissureBoard struct {
	source FissureSource
	now    func() time.Time
}

func NewFissureBoard(source FissureSource) *FissureBoard {
	return &FissureBoard{source: source, now: time.Now}
}

// Active groups the open fissures by difficulty. A specific difficulty keeps
// only its own group.
func (b *FissureBoard) Active(ctx context.Context, difficulty reminder.Difficulty) (fissure.Board, error) {
	snapshot, err := b.source.Fissures(ctx)
	if err != nil {
		return fissure.Board{}, fmt.Errorf("failed to fetch fissures: %w", err)
	}
	board := fissure.Group(snapshot, b.now())
	switch difficulty {
	case reminder.DifficultyNormal:
		return fissure.Board{Normal: board.Normal}, nil
	case reminder.DifficultyHard:
		return fissure.Board{Hard: board.Hard}, nil
	case reminder.DifficultyStorm:
		return fissure.Board{Storm: board.Storm}, nil
	default:
		return board, nil
	}
}
