package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nourish/api"
	"nourish/models"
)

// DayService composes the reads a dashboard and a progress view need.
type DayService struct {
	entries *EntryService
	log     *zap.Logger
}

func NewDayService(entries *EntryService, log *zap.Logger) *DayService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DayService{entries: entries, log: log}
}

// LoadDay fetches the summary and the entries of a date in parallel.
func (s *DayService) LoadDay(ctx context.Context, date string) (*models.DayView, error) {
	view := &models.DayView{Date: date}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sum, err := s.entries.DailySummary(gctx, date)
		if err != nil {
			return err
		}
		view.Summary = *sum
		return nil
	})
	g.Go(func() error {
		day, err := s.entries.ListByDate(gctx, date)
		if err != nil {
			return err
		}
		view.Entries = day
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}

// LoadWeek fetches the daily summaries of the Sunday-start week containing
// day. A day that fails to load is left empty; an expired session fails the
// whole week.
func (s *DayService) LoadWeek(ctx context.Context, day time.Time) (*models.WeekProgress, error) {
	start := models.WeekStart(day)
	week := &models.WeekProgress{Start: start, Days: make([]models.DayProgress, 7)}

	g, gctx := errgroup.WithContext(ctx)
	for i := range week.Days {
		date := start.AddDate(0, 0, i)
		week.Days[i].Date = date
		g.Go(func() error {
			sum, err := s.entries.DailySummary(gctx, models.FormatDate(date))
			if err != nil {
				if api.IsSessionExpired(err) {
					return err
				}
				s.log.Warn("daily summary unavailable",
					zap.String("date", models.FormatDate(date)), zap.Error(err))
				return nil
			}
			week.Days[i].Nutrients = sum.Nutrients
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return week, nil
}
