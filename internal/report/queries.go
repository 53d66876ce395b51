package report

import (
	"context"
	"fmt"
	"time"

	"oficina/internal/domain"
	"oficina/internal/utils"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Window is an optional [From, To) time range
type Window struct {
	From *time.Time
	To   *time.Time
}

func (w Window) apply(f *utils.Filter, column string) {
	if w.From != nil {
		f.Where(column+" >= ?", *w.From)
	}
	if w.To != nil {
		f.Where(column+" < ?", *w.To)
	}
}

// closedStatuses are the order statuses that no longer count as open work
var closedStatuses = []string{domain.StatusDone, domain.StatusCancelled}

// StatusCount is the number of orders carrying one status
type StatusCount struct {
	Status string `json:"status"`
	Orders int64  `json:"quantidade"`
}

// Dashboard is the staff landing page summary
type Dashboard struct {
	OrdersByStatus       []StatusCount   `json:"ordens_por_status"`
	OpenOrders           int64           `json:"ordens_abertas"`
	Clients              int64           `json:"clientes"`
	Vehicles             int64           `json:"veiculos"`
	UpcomingAppointments int64           `json:"agendamentos_proximos"`
	MonthIncome          decimal.Decimal `json:"receita_mes"`
	MonthExpense         decimal.Decimal `json:"despesa_mes"`
}

// BuildDashboard runs the dashboard queries. Each figure is read independently;
// they are not taken from one snapshot.
func BuildDashboard(ctx context.Context, db *gorm.DB, now time.Time) (*Dashboard, error) {
	db = db.WithContext(ctx)
	d := &Dashboard{OrdersByStatus: []StatusCount{}}

	err := db.Model(&domain.ServiceOrder{}).Select("status, COUNT(*) AS orders").
		Group("status").Order("status asc").Scan(&d.OrdersByStatus).Error
	if err != nil {
		return nil, fmt.Errorf("orders by status: %w", err)
	}
	err = db.Model(&domain.ServiceOrder{}).Where("LOWER(status) NOT IN ?", closedStatuses).Count(&d.OpenOrders).Error
	if err != nil {
		return nil, fmt.Errorf("open orders: %w", err)
	}
	if err := db.Model(&domain.Client{}).Count(&d.Clients).Error; err != nil {
		return nil, fmt.Errorf("clients: %w", err)
	}
	if err := db.Model(&domain.Vehicle{}).Count(&d.Vehicles).Error; err != nil {
		return nil, fmt.Errorf("vehicles: %w", err)
	}
	err = db.Model(&domain.Appointment{}).
		Where("scheduled_at >= ? AND status IN ?", now, []string{domain.AppointmentScheduled, domain.AppointmentConfirmed}).
		Count(&d.UpcomingAppointments).Error
	if err != nil {
		return nil, fmt.Errorf("upcoming appointments: %w", err)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	next := monthStart.AddDate(0, 1, 0)
	totals, err := kindTotals(db, Window{From: &monthStart, To: &next})
	if err != nil {
		return nil, err
	}
	d.MonthIncome, d.MonthExpense = totals[domain.KindIncome], totals[domain.KindExpense]
	return d, nil
}

type kindTotal struct {
	Kind  string
	Total decimal.Decimal
}

func kindTotals(db *gorm.DB, w Window) (map[string]decimal.Decimal, error) {
	var f utils.Filter
	w.apply(&f, "date")
	var rows []kindTotal
	err := f.Apply(db.Model(&domain.Transaction{})).Select("kind, COALESCE(SUM(amount), 0) AS total").Group("kind").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ledger totals: %w", err)
	}
	out := map[string]decimal.Decimal{domain.KindIncome: decimal.Zero, domain.KindExpense: decimal.Zero}
	for _, r := range rows {
		out[r.Kind] = r.Total.Round(2)
	}
	return out, nil
}

// CategoryTotal is the ledger sum of one category
type CategoryTotal struct {
	CategoryID uint            `json:"categoria_id"`
	Category   string          `json:"categoria"`
	Kind       string          `json:"tipo"`
	Total      decimal.Decimal `json:"total"`
	Entries    int64           `json:"quantidade"`
}

// Financial is the ledger report over a window
type Financial struct {
	Income     decimal.Decimal `json:"entradas"`
	Expense    decimal.Decimal `json:"saidas"`
	Balance    decimal.Decimal `json:"saldo"`
	ByCategory []CategoryTotal `json:"por_categoria"`
}

// BuildFinancial sums the ledger per category inside w
func BuildFinancial(ctx context.Context, db *gorm.DB, w Window) (*Financial, error) {
	var f utils.Filter
	w.apply(&f, "t.date")
	q := sq.Select(
		"c.id AS category_id", "c.name AS category", "t.kind AS kind",
		"COALESCE(SUM(t.amount), 0) AS total", "COUNT(t.id) AS entries",
	).From("transactions t").
		Join("categories c ON c.id = t.category_id").
		GroupBy("c.id", "c.name", "t.kind").
		OrderBy("t.kind ASC", "total DESC")
	rows := []CategoryTotal{}
	if err := scan(ctx, db, where(q, &f), &rows); err != nil {
		return nil, fmt.Errorf("financial report: %w", err)
	}
	rep := &Financial{Income: decimal.Zero, Expense: decimal.Zero, ByCategory: rows}
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(2)
		switch rows[i].Kind {
		case domain.KindIncome:
			rep.Income = rep.Income.Add(rows[i].Total)
		case domain.KindExpense:
			rep.Expense = rep.Expense.Add(rows[i].Total)
		}
	}
	rep.Balance = rep.Income.Sub(rep.Expense)
	return rep, nil
}

// EmployeeTotal is the order output of one staff member
type EmployeeTotal struct {
	UserID    uint            `json:"funcionario_id"`
	Name      string          `json:"nome"`
	Orders    int64           `json:"ordens"`
	Completed int64           `json:"concluidas"`
	Total     decimal.Decimal `json:"valor_total"`
}

// BuildEmployees sums the orders assigned to each employee, created inside w
func BuildEmployees(ctx context.Context, db *gorm.DB, w Window) ([]EmployeeTotal, error) {
	var f utils.Filter
	w.apply(&f, "o.created_at")
	q := sq.Select("u.id AS user_id", "u.name AS name", "COUNT(o.id) AS orders").
		Column(sq.Expr("SUM(CASE WHEN LOWER(o.status) = ? THEN 1 ELSE 0 END) AS completed", domain.StatusDone)).
		Column("COALESCE(SUM(o.total), 0) AS total").
		From("service_orders o").
		Join("users u ON u.id = o.employee_id").
		GroupBy("u.id", "u.name").
		OrderBy("total DESC", "u.name ASC")
	rows := []EmployeeTotal{}
	if err := scan(ctx, db, where(q, &f), &rows); err != nil {
		return nil, fmt.Errorf("employee report: %w", err)
	}
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(2)
	}
	return rows, nil
}

// CatalogUsage is how much one catalog entry was billed
type CatalogUsage struct {
	ID       uint            `json:"id"`
	Name     string          `json:"nome"`
	Uses     int64           `json:"usos"`
	Quantity decimal.Decimal `json:"quantidade"`
	Revenue  decimal.Decimal `json:"receita"`
}

// Services is the catalog usage report
type Services struct {
	Services []CatalogUsage `json:"servicos"`
	Products []CatalogUsage `json:"produtos"`
}

// BuildServices sums order items per catalog service and product, for orders created inside w
func BuildServices(ctx context.Context, db *gorm.DB, w Window) (*Services, error) {
	svc, err := catalogUsage(ctx, db, w, "services", "service_id")
	if err != nil {
		return nil, err
	}
	prod, err := catalogUsage(ctx, db, w, "products", "product_id")
	if err != nil {
		return nil, err
	}
	return &Services{Services: svc, Products: prod}, nil
}

func catalogUsage(ctx context.Context, db *gorm.DB, w Window, table, fk string) ([]CatalogUsage, error) {
	var f utils.Filter
	w.apply(&f, "o.created_at")
	q := sq.Select(
		"s.id AS id", "s.name AS name", "COUNT(i.id) AS uses",
		"COALESCE(SUM(i.quantity), 0) AS quantity", "COALESCE(SUM(i.subtotal), 0) AS revenue",
	).From("order_items i").
		Join(table+" s ON s.id = i."+fk).
		Join("service_orders o ON o.id = i.service_order_id").
		GroupBy("s.id", "s.name").
		OrderBy("revenue DESC", "s.name ASC")
	rows := []CatalogUsage{}
	if err := scan(ctx, db, where(q, &f), &rows); err != nil {
		return nil, fmt.Errorf("%s usage: %w", table, err)
	}
	for i := range rows {
		rows[i].Quantity = rows[i].Quantity.Round(2)
		rows[i].Revenue = rows[i].Revenue.Round(2)
	}
	return rows, nil
}

func where(q sq.SelectBuilder, f *utils.Filter) sq.SelectBuilder {
	if f.Len() == 0 {
		return q
	}
	return q.Where(f.Sqlizer())
}

// scan renders q with ? placeholders, which gorm rebinds for the active dialect
func scan(ctx context.Context, db *gorm.DB, q sq.SelectBuilder, dest any) error {
	query, args, err := q.ToSql()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Raw(query, args...).Scan(dest).Error
}
