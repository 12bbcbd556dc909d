package repository_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"salesdesk/internal/database"
	"salesdesk/internal/model"
	"salesdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	sales      repository.SaleRepository
	stats      repository.StatisticsRepository
	users      repository.UserRepository
	products   []model.Product
	agent      model.User
	other      model.User
	controller model.User
	base       time.Time
	seq        int
}

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.NewConnection(database.DriverSQLite, dsn, false)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openMemory(t)

	f := &fixture{
		db:       db,
		sales:    repository.NewSaleRepository(db),
		stats:    repository.NewStatisticsRepository(db),
		users:    repository.NewUserRepository(db),
		products: model.DefaultCatalog(),
		base:     time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&f.products).Error)

	f.agent = model.User{Username: "agent1", Password: "x", Name: "Awa Traoré", Role: model.RoleAgent}
	f.other = model.User{Username: "agent2", Password: "x", Name: "Moussa Koné", Role: model.RoleAgent}
	f.controller = model.User{Username: "ctrl", Password: "x", Name: "Fatou Diallo", Role: model.RoleController}
	for _, u := range []*model.User{&f.agent, &f.other, &f.controller} {
		require.NoError(t, f.users.Create(context.Background(), u))
	}
	return f
}

// product returns a catalog entry by label, e.g. "Riz 50 KG".
func (f *fixture) product(t *testing.T, label string) model.Product {
	t.Helper()
	for _, p := range f.products {
		if p.Label() == label {
			return p
		}
	}
	t.Fatalf("no product %q", label)
	return model.Product{}
}

// createSale stores a pending sale created one minute after the previous one.
func (f *fixture) createSale(t *testing.T, agent model.User, matricule string, grade model.Grade, lines map[string]int) *model.Sale {
	t.Helper()
	f.seq++

	sale := &model.Sale{
		ReceiptNumber:  "REC-20260314-" + leftPad(f.seq),
		AgentID:        agent.ID,
		BuyerLastName:  "Ouattara",
		BuyerFirstName: "Issa",
		BuyerMatricule: matricule,
		BuyerGrade:     grade,
		Status:         model.SaleStatusPending,
		CreatedAt:      f.base.Add(time.Duration(f.seq) * time.Minute),
	}
	for label, qty := range lines {
		p := f.product(t, label)
		sale.Items = append(sale.Items, model.SaleItem{
			ProductID: p.ID,
			Quantity:  qty,
			UnitPrice: p.UnitPrice,
			LineTotal: p.UnitPrice * int64(qty),
		})
		sale.TotalAmount += p.UnitPrice * int64(qty)
	}
	require.NoError(t, f.sales.Create(context.Background(), sale))
	return sale
}

func leftPad(n int) string {
	s := "000000" + strconv.Itoa(n)
	return s[len(s)-6:]
}
