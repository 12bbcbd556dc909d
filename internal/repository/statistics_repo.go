package repository

import (
	"context"
	"fmt"
	"time"

	"salesdesk/internal/model"

	"gorm.io/gorm"
)

// StatisticsRepository runs the dashboard aggregations. Every query reads
// the current rows; nothing is cached.
type StatisticsRepository interface {
	CountByStatus(ctx context.Context) (map[model.SaleStatus]int64, error)
	ValidatedRevenue(ctx context.Context) (int64, error)
	SalePointsSince(ctx context.Context, since time.Time) ([]model.SalePoint, error)
	ByProduct(ctx context.Context) ([]model.BreakdownStat, error)
	ByAgent(ctx context.Context) ([]model.BreakdownStat, error)
	ByGrade(ctx context.Context) ([]model.BreakdownStat, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) CountByStatus(ctx context.Context) (map[model.SaleStatus]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := GetDB(ctx, r.db).Model(&model.Sale{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count sales by status: %w", err)
	}

	counts := make(map[model.SaleStatus]int64, len(rows))
	for _, row := range rows {
		counts[model.SaleStatus(row.Status)] = row.Count
	}
	return counts, nil
}

func (r *statisticsRepository) ValidatedRevenue(ctx context.Context) (int64, error) {
	var result struct {
		Total int64
	}
	if err := GetDB(ctx, r.db).Model(&model.Sale{}).
		Select("COALESCE(SUM(total_amount), 0) AS total").
		Where("status = ?", model.SaleStatusValidated).
		Scan(&result).Error; err != nil {
		return 0, fmt.Errorf("failed to sum validated revenue: %w", err)
	}
	return result.Total, nil
}

// SalePointsSince returns non-cancelled sales created at or after since.
func (r *statisticsRepository) SalePointsSince(ctx context.Context, since time.Time) ([]model.SalePoint, error) {
	var points []model.SalePoint
	if err := GetDB(ctx, r.db).Model(&model.Sale{}).
		Select("created_at, total_amount").
		Where("status <> ? AND created_at >= ?", model.SaleStatusCancelled, since).
		Order("created_at DESC").
		Scan(&points).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent sales: %w", err)
	}
	return points, nil
}

func (r *statisticsRepository) ByProduct(ctx context.Context) ([]model.BreakdownStat, error) {
	var rows []struct {
		Name    string
		Weight  string
		Count   int64
		Revenue int64
	}
	if err := GetDB(ctx, r.db).Table("sale_items").
		Select("products.name AS name, products.weight AS weight, SUM(sale_items.quantity) AS count, SUM(sale_items.line_total) AS revenue").
		Joins("JOIN products ON products.id = sale_items.product_id").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.status <> ?", model.SaleStatusCancelled).
		Group("products.id, products.name, products.weight").
		Order("revenue DESC, name ASC, weight ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate sales by product: %w", err)
	}

	stats := make([]model.BreakdownStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, model.BreakdownStat{
			Key:     model.Product{Name: row.Name, Weight: row.Weight}.Label(),
			Count:   row.Count,
			Revenue: row.Revenue,
		})
	}
	return stats, nil
}

func (r *statisticsRepository) ByAgent(ctx context.Context) ([]model.BreakdownStat, error) {
	var rows []breakdownRow
	if err := GetDB(ctx, r.db).Table("sales").
		Select("users.name AS label, COUNT(*) AS count, SUM(sales.total_amount) AS revenue").
		Joins("JOIN users ON users.id = sales.agent_id").
		Where("sales.status <> ?", model.SaleStatusCancelled).
		Group("sales.agent_id, users.name").
		Order("revenue DESC, label ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate sales by agent: %w", err)
	}
	return toBreakdown(rows), nil
}

func (r *statisticsRepository) ByGrade(ctx context.Context) ([]model.BreakdownStat, error) {
	var rows []breakdownRow
	if err := GetDB(ctx, r.db).Table("sales").
		Select("buyer_grade AS label, COUNT(*) AS count, SUM(total_amount) AS revenue").
		Where("status <> ?", model.SaleStatusCancelled).
		Group("buyer_grade").
		Order("revenue DESC, label ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate sales by grade: %w", err)
	}
	return toBreakdown(rows), nil
}

type breakdownRow struct {
	Label   string
	Count   int64
	Revenue int64
}

func toBreakdown(rows []breakdownRow) []model.BreakdownStat {
	stats := make([]model.BreakdownStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, model.BreakdownStat{Key: row.Label, Count: row.Count, Revenue: row.Revenue})
	}
	return stats
}
