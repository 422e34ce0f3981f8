package services

import (
	"context"
	"fmt"
	"log/slog"

	"wealthpillar/internal/core"
	"wealthpillar/internal/cycle"
	"wealthpillar/internal/log"
)

// A person can fall at most this many periods behind before the processor
// gives up on the cascade for one tick. The next tick picks up where it left.
const maxCascadeCloses = 24

// RolloverProcessor advances period ledgers: it closes periods whose window
// has ended, opens the successor, and prunes stale exceptions.
type RolloverProcessor struct {
	repo          Repository
	calendar      *cycle.Calendar
	service       *CycleService
	retentionDays int
}

func NewRolloverProcessor(repo Repository, calendar *cycle.Calendar, service *CycleService, retentionDays int) *RolloverProcessor {
	if calendar == nil {
		calendar = cycle.DefaultCalendar()
	}
	if retentionDays <= 0 {
		retentionDays = cycle.DefaultExceptionRetentionDays
	}
	return &RolloverProcessor{
		repo:          repo,
		calendar:      calendar,
		service:       service,
		retentionDays: retentionDays,
	}
}

// ProcessRollovers runs one tick over every person. A failing person is
// logged and skipped; the tick keeps going. Returns the number of periods
// closed.
func (p *RolloverProcessor) ProcessRollovers(ctx context.Context, today core.Date) (int, error) {
	if p.repo == nil || p.service == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	ids, err := p.repo.ListPersonIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list persons: %w", err)
	}

	slog.InfoContext(ctx, "Processing rollovers",
		log.FieldComponent, log.ComponentRollover,
		log.FieldOperation, log.OpRollover,
		"persons", len(ids),
		"processing_date", today.String())

	closedTotal := 0
	for _, id := range ids {
		closed, err := p.processPerson(ctx, id, today)
		closedTotal += closed
		if err != nil {
			slog.ErrorContext(ctx, "Rollover failed for person",
				log.FieldComponent, log.ComponentRollover,
				log.FieldPersonID, id,
				log.FieldError, err.Error())
			continue
		}
	}

	slog.InfoContext(ctx, "Rollover processing complete",
		log.FieldComponent, log.ComponentRollover,
		"closed", closedTotal,
		"persons", len(ids))
	return closedTotal, nil
}

func (p *RolloverProcessor) processPerson(ctx context.Context, id string, today core.Date) (int, error) {
	person, err := p.repo.GetPerson(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("load person: %w", err)
	}

	pruned := cycle.PruneExceptionsOlderThan(*person, today, p.retentionDays)
	if len(pruned.Exceptions) != len(person.Exceptions) {
		if err := p.repo.SavePerson(ctx, pruned); err != nil {
			return 0, fmt.Errorf("save pruned exceptions: %w", err)
		}
		slog.InfoContext(ctx, "Pruned stale exceptions",
			log.FieldComponent, log.ComponentRollover,
			log.FieldOperation, log.OpPrune,
			log.FieldPersonID, id,
			"removed", len(person.Exceptions)-len(pruned.Exceptions))
	}

	if pruned.CycleStartDay == 0 {
		return 0, nil
	}

	closed := 0
	for step := 0; step < maxCascadeCloses; step++ {
		person, err := p.repo.GetPerson(ctx, id)
		if err != nil {
			return closed, fmt.Errorf("reload person: %w", err)
		}

		open, ok := cycle.CurrentOpenPeriod(*person)
		if !ok {
			w, err := p.calendar.CurrentNormalPeriod(person.CycleStartDay, today)
			if err != nil {
				return closed, fmt.Errorf("derive current period: %w", err)
			}
			updated := cycle.OpenPeriod(*person, w.Start)
			if err := p.repo.SavePerson(ctx, updated); err != nil {
				return closed, fmt.Errorf("save opened period: %w", err)
			}
			slog.InfoContext(ctx, "Opened first tracked period",
				log.FieldComponent, log.ComponentRollover,
				log.FieldPersonID, id,
				log.FieldWindowStart, w.Start.String())
			return closed, nil
		}

		res, err := p.calendar.ResolveActivePeriod(*person, open.Start)
		if err != nil {
			return closed, fmt.Errorf("resolve open period window: %w", err)
		}
		if !res.Window.End.Before(today.Time) {
			// Still inside the window, nothing to roll.
			return closed, nil
		}

		if err := p.service.ClosePeriod(ctx, id, res.Window.End); err != nil {
			return closed, fmt.Errorf("close period at %s: %w", res.Window.End, err)
		}
		closed++
	}

	slog.WarnContext(ctx, "Rollover cascade limit reached",
		log.FieldComponent, log.ComponentRollover,
		log.FieldPersonID, id,
		"closed", closed)
	return closed, nil
}
