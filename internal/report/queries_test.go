package report

import (
	"context"
	"testing"
	"time"

	"oficina/internal/domain"
	"oficina/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ledger(t *testing.T, gdb *gorm.DB, cat domain.Category, amount string, at time.Time) {
	t.Helper()
	tx := domain.Transaction{Kind: cat.Kind, Amount: dec(amount), CategoryID: cat.ID, Date: at}
	require.NoError(t, gdb.Create(&tx).Error)
}

func TestBuildFinancial(t *testing.T) {
	gdb := testutil.NewDB(t)
	ctx := context.Background()
	services := domain.Category{Name: "Serviços", Kind: domain.KindIncome}
	rent := domain.Category{Name: "Aluguel", Kind: domain.KindExpense}
	require.NoError(t, gdb.Create(&services).Error)
	require.NoError(t, gdb.Create(&rent).Error)

	may := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	june := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	ledger(t, gdb, services, "300.00", may)
	ledger(t, gdb, services, "150.25", may)
	ledger(t, gdb, rent, "200.00", may)
	ledger(t, gdb, services, "999.00", june)

	all, err := BuildFinancial(ctx, gdb, Window{})
	require.NoError(t, err)
	assert.True(t, dec("1449.25").Equal(all.Income), all.Income.String())
	assert.True(t, dec("200").Equal(all.Expense))
	assert.True(t, dec("1249.25").Equal(all.Balance))

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	inMay, err := BuildFinancial(ctx, gdb, Window{From: &from, To: &to})
	require.NoError(t, err)
	assert.True(t, dec("450.25").Equal(inMay.Income), inMay.Income.String())
	assert.True(t, dec("250.25").Equal(inMay.Balance))
	require.Len(t, inMay.ByCategory, 2)
	assert.Equal(t, domain.KindIncome, inMay.ByCategory[0].Kind)
	assert.Equal(t, int64(2), inMay.ByCategory[0].Entries)
}

func TestBuildFinancialEmpty(t *testing.T) {
	rep, err := BuildFinancial(context.Background(), testutil.NewDB(t), Window{})
	require.NoError(t, err)
	assert.True(t, rep.Balance.IsZero())
	assert.NotNil(t, rep.ByCategory)
}

func TestBuildDashboard(t *testing.T) {
	gdb := testutil.NewDB(t)
	open := testutil.CreateOrder(t, gdb)
	done := testutil.CreateOrder(t, gdb)
	require.NoError(t, gdb.Model(done).Update("status", "Concluída").Error)

	now := time.Now()
	require.NoError(t, gdb.Create(&domain.Appointment{ClientID: open.ClientID, ScheduledAt: now.Add(48 * time.Hour), Status: domain.AppointmentScheduled}).Error)
	require.NoError(t, gdb.Create(&domain.Appointment{ClientID: open.ClientID, ScheduledAt: now.Add(72 * time.Hour), Status: domain.AppointmentCancelled}).Error)

	d, err := BuildDashboard(context.Background(), gdb, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.OpenOrders)
	assert.Equal(t, int64(2), d.Clients)
	assert.Equal(t, int64(2), d.Vehicles)
	assert.Equal(t, int64(1), d.UpcomingAppointments)
	assert.Len(t, d.OrdersByStatus, 2)
	assert.True(t, d.MonthIncome.IsZero())
}

func TestBuildEmployeesAndServices(t *testing.T) {
	gdb := testutil.NewDB(t)
	ctx := context.Background()
	carlos := testutil.CreateUser(t, gdb, "Carlos", "carlos@oficina.com", domain.RoleEmployee)
	order := testutil.CreateOrder(t, gdb)
	require.NoError(t, gdb.Model(order).Updates(map[string]any{"employee_id": carlos.ID, "status": domain.StatusDone, "total": dec("160")}).Error)

	svc := domain.Service{Name: "Alinhamento", Price: dec("80"), Active: true}
	require.NoError(t, gdb.Create(&svc).Error)
	item := domain.OrderItem{ServiceOrderID: order.ID, ServiceID: &svc.ID, Description: svc.Name, Quantity: dec("2"), UnitPrice: svc.Price}
	item.ComputeSubtotal()
	require.NoError(t, gdb.Create(&item).Error)

	employees, err := BuildEmployees(ctx, gdb, Window{})
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, carlos.ID, employees[0].UserID)
	assert.Equal(t, int64(1), employees[0].Orders)
	assert.Equal(t, int64(1), employees[0].Completed)
	assert.True(t, dec("160").Equal(employees[0].Total))

	usage, err := BuildServices(ctx, gdb, Window{})
	require.NoError(t, err)
	require.Len(t, usage.Services, 1)
	assert.Equal(t, int64(1), usage.Services[0].Uses)
	assert.True(t, dec("160").Equal(usage.Services[0].Revenue))
	assert.Empty(t, usage.Products)
}
