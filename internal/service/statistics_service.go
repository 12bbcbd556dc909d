package service

import (
	"context"
	"sort"
	"time"

	"salesdesk/internal/model"
	"salesdesk/internal/repository"

	"github.com/shopspring/decimal"
)

// TrailingDays is the width of the by-day series, today included.
const TrailingDays = 7

type StatisticsService interface {
	GetDashboardStats(ctx context.Context) (model.DashboardStats, error)
}

type statisticsService struct {
	repo repository.StatisticsRepository
	loc  *time.Location
	now  func() time.Time
}

// NewStatisticsService buckets calendar days in loc (UTC when nil).
func NewStatisticsService(repo repository.StatisticsRepository, loc *time.Location) StatisticsService {
	return newStatisticsService(repo, loc, time.Now)
}

func newStatisticsService(repo repository.StatisticsRepository, loc *time.Location, now func() time.Time) *statisticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &statisticsService{repo: repo, loc: loc, now: now}
}

// GetDashboardStats recomputes every figure from the stored sales.
func (s *statisticsService) GetDashboardStats(ctx context.Context) (model.DashboardStats, error) {
	var stats model.DashboardStats
	now := s.now()
	stats.GeneratedAt = now.UTC()

	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return stats, err
	}
	stats.PendingCount = counts[model.SaleStatusPending]
	stats.ValidatedCount = counts[model.SaleStatusValidated]
	stats.CancelledCount = counts[model.SaleStatusCancelled]
	stats.TotalSales = stats.PendingCount + stats.ValidatedCount

	if stats.TotalRevenue, err = s.repo.ValidatedRevenue(ctx); err != nil {
		return stats, err
	}
	stats.AverageBasket = decimal.Zero
	if stats.ValidatedCount > 0 {
		stats.AverageBasket = decimal.NewFromInt(stats.TotalRevenue).
			Div(decimal.NewFromInt(stats.ValidatedCount)).
			Round(2)
	}

	if stats.ByDay, err = s.byDay(ctx, now); err != nil {
		return stats, err
	}
	if stats.ByProduct, err = s.repo.ByProduct(ctx); err != nil {
		return stats, err
	}
	if stats.ByAgent, err = s.repo.ByAgent(ctx); err != nil {
		return stats, err
	}
	if stats.ByGrade, err = s.repo.ByGrade(ctx); err != nil {
		return stats, err
	}

	return stats, nil
}

// byDay groups non-cancelled sales of the trailing window by local calendar
// date, most recent day first. Days without sales are omitted.
func (s *statisticsService) byDay(ctx context.Context, now time.Time) ([]model.DayStat, error) {
	local := now.In(s.loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	since := today.AddDate(0, 0, -(TrailingDays - 1))

	points, err := s.repo.SalePointsSince(ctx, since.UTC())
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]*model.DayStat)
	for _, p := range points {
		key := p.CreatedAt.In(s.loc).Format("2006-01-02")
		day, ok := buckets[key]
		if !ok {
			day = &model.DayStat{Date: key}
			buckets[key] = day
		}
		day.Count++
		day.Revenue += p.TotalAmount
	}

	days := make([]model.DayStat, 0, len(buckets))
	for _, day := range buckets {
		days = append(days, *day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date > days[j].Date })
	return days, nil
}
