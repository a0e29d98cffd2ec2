package gateway

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"undefined column", &pq.Error{Code: "42703"}, utils.ErrSchemaMismatch},
		{"connection failure", &pq.Error{Code: "08006"}, utils.ErrNetworkUnavailable},
		{"admin shutdown", &pq.Error{Code: "57P01"}, utils.ErrNetworkUnavailable},
		{"refused", syscall.ECONNREFUSED, utils.ErrNetworkUnavailable},
		{"deadline", context.DeadlineExceeded, utils.ErrNetworkUnavailable},
		{"already classified", utils.ErrProductNotFound, utils.ErrNotFound},
		{"unique violation", &pq.Error{Code: "23505"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("op", tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.want, utils.Kind(err))
		})
	}
	assert.NoError(t, classify("op", nil))
}

func TestSQLGateway_ApplyStockDecrementLocksRow(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	g := NewSQLGateway(sqlx.NewDb(raw, "postgres"))

	rows := sqlmock.NewRows([]string{"id", "name", "price", "description", "category", "device", "brand", "image", "stock", "variants", "colors"}).
		AddRow("1", "Cyber Glitch v2", int64(50000), "", "Artistic", "iPhone 15", "CaseCraft", "", 15,
			[]byte(`[{"id":"v1","color":"#8B5CF6","stock":10},{"id":"v2","color":"#3B82F6","stock":5}]`), "{#8B5CF6,#3B82F6}")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM products WHERE id = \$1 FOR UPDATE`).WithArgs("1").WillReturnRows(rows)
	mock.ExpectQuery(`SELECT column_name FROM information_schema.columns`).WithArgs("products").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).
			AddRow("id").AddRow("stock").AddRow("variants").AddRow("colors"))
	mock.ExpectExec(`UPDATE products SET stock = \$1, variants = \$2, colors = \$3 WHERE id = \$4`).
		WithArgs(13, sqlmock.AnyArg(), sqlmock.AnyArg(), "1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	change, err := g.ApplyStockDecrement(context.Background(), models.StockDecrement{ProductID: "1", VariantID: "v2", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, change.Before)
	assert.Equal(t, 3, change.After)
	assert.Equal(t, 13, change.Aggregate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLGateway_ApplyStockDecrementRollsBackOnUnknownVariant(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	g := NewSQLGateway(sqlx.NewDb(raw, "postgres"))

	rows := sqlmock.NewRows([]string{"id", "name", "price", "stock", "variants"}).
		AddRow("1", "Case", int64(50000), 4, []byte(`[{"id":"v1","stock":4}]`))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM products WHERE id = \$1 FOR UPDATE`).WithArgs("1").WillReturnRows(rows)
	mock.ExpectRollback()

	_, err = g.ApplyStockDecrement(context.Background(), models.StockDecrement{ProductID: "1", VariantID: "v9", Quantity: 1})
	assert.ErrorIs(t, err, utils.ErrVariantNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLGateway_MissingSettingsUseDefault(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	g := NewSQLGateway(sqlx.NewDb(raw, "postgres"))

	mock.ExpectQuery(`FROM store_settings`).WillReturnRows(sqlmock.NewRows([]string{"shipping_fee", "logo"}))

	s, err := g.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultShippingFee, s.ShippingFee)
}

func TestMemoryGateway_StockDecrementUsesLedger(t *testing.T) {
	g := NewMemoryGateway(Fixtures())
	ctx := context.Background()

	change, err := g.ApplyStockDecrement(ctx, models.StockDecrement{ProductID: "1", VariantID: "v1", Quantity: 12})
	require.NoError(t, err)
	assert.Equal(t, 2, change.Shortfall)
	assert.Equal(t, 5, change.Aggregate)

	_, err = g.ApplyStockDecrement(ctx, models.StockDecrement{ProductID: "1", Quantity: 1})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = g.ApplyStockDecrement(ctx, models.StockDecrement{ProductID: "404", Quantity: 1})
	assert.ErrorIs(t, err, utils.ErrProductNotFound)

	c, err := g.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Products[0].Stock)
}

func TestMemoryGateway_DiscountCodesAreUnique(t *testing.T) {
	g := NewMemoryGateway(Fixtures())
	err := g.UpsertDiscount(context.Background(), &models.DiscountCode{ID: "x", Code: "welcome10", Type: models.DiscountFixed, Value: 1})
	assert.ErrorIs(t, err, utils.ErrDuplicateDiscount)
}

func TestMemoryGateway_Orders(t *testing.T) {
	g := NewMemoryGateway(nil)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, g.InsertOrder(ctx, &models.Order{ID: "a", Date: now.Add(-time.Hour), Status: models.OrderProcessing}))
	require.NoError(t, g.InsertOrder(ctx, &models.Order{ID: "b", Date: now, Status: models.OrderProcessing}))
	require.NoError(t, g.InsertOrder(ctx, &models.Order{ID: "b", Date: now, Status: models.OrderShipped}))

	orders, err := g.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "b", orders[0].ID)
	assert.Equal(t, models.OrderProcessing, orders[0].Status)

	require.NoError(t, g.UpdateOrderInventorySync(ctx, "a", models.InventoryFailed, true))
	o, err := g.GetOrder(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.InventoryFailed, o.InventorySync)
	assert.True(t, o.Oversold)

	assert.ErrorIs(t, g.UpdateOrderStatus(ctx, "zz", models.OrderShipped), utils.ErrOrderNotFound)
}

func TestBreakerGateway_OpensOnNetworkFailures(t *testing.T) {
	mem := NewMemoryGateway(Fixtures())
	mem.SetFailure(syscall.ECONNREFUSED)
	g := NewBreakerGateway(mem, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, g.Ping(ctx), utils.ErrNetworkUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, g.State())

	mem.SetFailure(nil)
	err := g.Ping(ctx)
	assert.ErrorIs(t, err, utils.ErrNetworkUnavailable)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
}

func TestBreakerGateway_IgnoresDomainErrors(t *testing.T) {
	g := NewBreakerGateway(NewMemoryGateway(Fixtures()), 1, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := g.ApplyStockDecrement(ctx, models.StockDecrement{ProductID: "1", VariantID: "v1", Quantity: 0})
		assert.ErrorIs(t, err, utils.ErrInvalidQuantity)
	}
	assert.Equal(t, gobreaker.StateClosed, g.State())

	change, err := g.ApplyStockDecrement(ctx, models.StockDecrement{ProductID: "1", VariantID: "v1", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 9, change.After)
}
