package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nubiru/chamana-sub000/pkg/db/models"
	"github.com/Nubiru/chamana-sub000/pkg/enums"
	pkgerrors "github.com/Nubiru/chamana-sub000/pkg/errors"
	"github.com/Nubiru/chamana-sub000/pkg/pagination"
)

func TestCreateOrderComputesTotals(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := seedCustomer(t, db, true)
	product := seedProduct(t, db, 100, 10, 0)

	order, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, 200, order.SubtotalCents)
	assert.Equal(t, 0, order.DiscountCents)
	assert.Equal(t, 200, order.TotalCents)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 100, order.Items[0].UnitPriceCents)

	// creation never touches the ledger
	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 0, reloaded.SoldStock)

	page, err := svc.History(ctx, order.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Nil(t, page.Entries[0].PreviousStatus)
	assert.Equal(t, enums.OrderStatusPending, page.Entries[0].NewStatus)
	assert.True(t, page.Entries[0].Automatic)
}

func TestCreateOrderDiscountClampedToSubtotal(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)

	customer := seedCustomer(t, db, true)
	product := seedProduct(t, db, 100, 10, 0)

	order, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID:    customer.ID,
		Items:         []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
		DiscountCents: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, order.SubtotalCents)
	assert.Equal(t, 100, order.DiscountCents)
	assert.Equal(t, 0, order.TotalCents)
}

func TestCreateOrderValidation(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := seedCustomer(t, db, true)
	product := seedProduct(t, db, 100, 10, 0)

	cases := []struct {
		name  string
		input CreateOrderInput
		code  pkgerrors.Code
	}{
		{
			name:  "missing customer",
			input: CreateOrderInput{Items: []OrderItemInput{{ProductID: product.ID, Quantity: 1}}},
			code:  pkgerrors.CodeValidation,
		},
		{
			name: "unknown customer",
			input: CreateOrderInput{
				CustomerID: uuid.New(),
				Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
			},
			code: pkgerrors.CodeNotFound,
		},
		{
			name: "negative discount",
			input: CreateOrderInput{
				CustomerID:    customer.ID,
				Items:         []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
				DiscountCents: -1,
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "zero quantity",
			input: CreateOrderInput{
				CustomerID: customer.ID,
				Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 0}},
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "duplicate product line",
			input: CreateOrderInput{
				CustomerID: customer.ID,
				Items: []OrderItemInput{
					{ProductID: product.ID, Quantity: 1},
					{ProductID: product.ID, Quantity: 2},
				},
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "unknown product",
			input: CreateOrderInput{
				CustomerID: customer.ID,
				Items:      []OrderItemInput{{ProductID: uuid.New(), Quantity: 1}},
			},
			code: pkgerrors.CodeNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, tc.code), "expected %s, got %v", tc.code, err)
		})
	}
}

func TestCreateOrderInactiveCustomer(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)

	customer := seedCustomer(t, db, false)
	product := seedProduct(t, db, 100, 10, 0)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateOrderInsufficientStockLine(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)

	customer := seedCustomer(t, db, true)
	product := seedProduct(t, db, 100, 3, 0)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 5}},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockInsufficient))

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count, "rejected order must not be persisted")
}

func TestCompleteOrderConsumesStock(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := seedCustomer(t, db, true)
	product := seedProduct(t, db, 100, 10, 0)

	order, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Complete(ctx, order.ID, ActorInput{ChangedBy: enums.ActorAPI}))

	var reloadedProduct models.Product
	require.NoError(t, db.First(&reloadedProduct, "id = ?", product.ID).Error)
	assert.Equal(t, 2, reloadedProduct.SoldStock)
	assert.Equal(t, 8, reloadedProduct.AvailableStock())
	assert.NotNil(t, reloadedProduct.LastSoldAt)

	var movements []models.InventoryMovement
	require.NoError(t, db.Find(&movements, "product_id = ?", product.ID).Error)
	require.Len(t, movements, 1)
	assert.Equal(t, enums.MovementTypeSale, movements[0].Type)
	assert.Equal(t, 2, movements[0].Quantity)
	require.NotNil(t, movements[0].OrderID)
	assert.Equal(t, order.ID, *movements[0].OrderID)

	reloaded, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, reloaded.Status)
	assert.NotNil(t, reloaded.CompletedAt)

	page, err := svc.History(ctx, order.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	// newest first
	assert.Equal(t, enums.OrderStatusCompleted, page.Entries[0].NewStatus)
	require.NotNil(t, page.Entries[0].PreviousStatus)
	assert.Equal(t, enums.OrderStatusPending, *page.Entries[0].PreviousStatus)
	assert.Equal(t, enums.OrderStatusPending, page.Entries[1].NewStatus)
}

func TestCompleteOrderAtomicRollback(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := seedCustomer(t, db, true)
	productA := seedProduct(t, db, 100, 10, 0)
	productB := seedProduct(t, db, 100, 5, 0)

	order, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: customer.ID,
		Items: []OrderItemInput{
			{ProductID: productA.ID, Quantity: 2},
			{ProductID: productB.ID, Quantity: 3},
		},
	})
	require.NoError(t, err)

	// drain product B underneath the pending order
	require.NoError(t, db.Model(&models.Product{}).
		Where("id = ?", productB.ID).
		Update("sold_stock", 4).Error)

	err = svc.Complete(ctx, order.ID, ActorInput{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockInsufficient))

	// the first line's reservation must have rolled back with the rest
	var reloadedA models.Product
	require.NoError(t, db.First(&reloadedA, "id = ?", productA.ID).Error)
	assert.Equal(t, 0, reloadedA.SoldStock)

	var movementCount int64
	require.NoError(t, db.Model(&models.InventoryMovement{}).Count(&movementCount).Error)
	assert.Zero(t, movementCount)

	reloaded, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, reloaded.Status)

	page, err := svc.History(ctx, order.ID, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Entries, 1, "failed completion must not append history")
}

func TestCompleteOrderContention(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := seedCustomer(t, db, true)
	product := seedProduct(t, db, 100, 1, 0)

	first, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	second, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Complete(ctx, first.ID, ActorInput{}))

	err = svc.Complete(ctx, second.ID, ActorInput{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockInsufficient))

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 0, reloaded.AvailableStock())

	loser, err := svc.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, loser.Status)
}

func TestCompleteZeroItemOrder(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := seedCustomer(t, db, true)
	order, err := svc.Create(ctx, CreateOrderInput{CustomerID: customer.ID})
	require.NoError(t, err)

	err = svc.Complete(ctx, order.ID, ActorInput{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCompleteTwiceIsStateConflict(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := seedCustomer(t, db, true)
	product := seedProduct(t, db, 100, 10, 0)

	order, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Complete(ctx, order.ID, ActorInput{}))

	err = svc.Complete(ctx, order.ID, ActorInput{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	// stock consumed exactly once
	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 1, reloaded.SoldStock)
}

func TestCancelOrder(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := seedCustomer(t, db, true)
	product := seedProduct(t, db, 100, 10, 0)

	order, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, order.ID, ActorInput{ChangedBy: "ops"}))

	reloaded, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, reloaded.Status)
	assert.NotNil(t, reloaded.CancelledAt)

	// a pending order never held stock, so nothing to return
	var reloadedProduct models.Product
	require.NoError(t, db.First(&reloadedProduct, "id = ?", product.ID).Error)
	assert.Equal(t, 0, reloadedProduct.SoldStock)

	var movementCount int64
	require.NoError(t, db.Model(&models.InventoryMovement{}).Count(&movementCount).Error)
	assert.Zero(t, movementCount)

	page, err := svc.History(ctx, order.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, enums.OrderStatusCancelled, page.Entries[0].NewStatus)
	assert.Equal(t, "ops", page.Entries[0].ChangedBy)
}

func TestCancelCompletedOrderFails(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := seedCustomer(t, db, true)
	product := seedProduct(t, db, 100, 10, 0)

	order, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Complete(ctx, order.ID, ActorInput{}))

	err = svc.Cancel(ctx, order.ID, ActorInput{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestProcessOrderSingleCall(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := seedCustomer(t, db, true)
	product := seedProduct(t, db, 250, 10, 0)

	order, err := svc.Process(ctx, CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
	assert.Equal(t, 1000, order.TotalCents)

	var reloadedProduct models.Product
	require.NoError(t, db.First(&reloadedProduct, "id = ?", product.ID).Error)
	assert.Equal(t, 4, reloadedProduct.SoldStock)

	page, err := svc.History(ctx, order.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, enums.OrderStatusCompleted, page.Entries[0].NewStatus)
}

func TestProcessOrderReturnsCompletionTimestamp(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := seedCustomer(t, db, true)
	product := seedProduct(t, db, 100, 5, 0)

	order, err := svc.Process(ctx, CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NotNil(t, order.CompletedAt, "completed order must carry its completion time")

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	require.NotNil(t, reloaded.CompletedAt)
	assert.WithinDuration(t, *reloaded.CompletedAt, *order.CompletedAt, time.Second)
}

func TestProcessOrderErrorParityWithTwoPhase(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := seedCustomer(t, db, true)
	product := seedProduct(t, db, 100, 3, 0)

	// same root cause (available=3, requested=5) must surface the same code
	// in both flows
	_, twoPhaseErr := svc.Create(ctx, CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 5}},
	})
	_, singleCallErr := svc.Process(ctx, CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 5}},
	})

	require.Error(t, twoPhaseErr)
	require.Error(t, singleCallErr)
	assert.Equal(t, pkgerrors.As(twoPhaseErr).Code(), pkgerrors.As(singleCallErr).Code())
	assert.True(t, pkgerrors.IsCode(singleCallErr, pkgerrors.CodeStockInsufficient))

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 3, reloaded.AvailableStock())
}

func TestProcessOrderRequiresItems(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)

	customer := seedCustomer(t, db, true)
	_, err := svc.Process(context.Background(), CreateOrderInput{CustomerID: customer.ID})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateItemsRecomputesTotals(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := seedCustomer(t, db, true)
	productA := seedProduct(t, db, 100, 10, 0)
	productB := seedProduct(t, db, 300, 10, 0)

	order, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: productA.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, 200, order.TotalCents)

	updated, err := svc.UpdateItems(ctx, order.ID, UpdateItemsInput{
		Items: []OrderItemInput{
			{ProductID: productB.ID, Quantity: 1},
			{ProductID: productA.ID, Quantity: 1},
		},
		DiscountCents: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, 400, updated.SubtotalCents)
	assert.Equal(t, 50, updated.DiscountCents)
	assert.Equal(t, 350, updated.TotalCents)
	require.Len(t, updated.Items, 2)
	// position preserves the submitted line order
	assert.Equal(t, productB.ID, updated.Items[0].ProductID)
	assert.Equal(t, productA.ID, updated.Items[1].ProductID)
}

func TestUpdateItemsRejectedWhenNotPending(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := seedCustomer(t, db, true)
	product := seedProduct(t, db, 100, 10, 0)

	order, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Complete(ctx, order.ID, ActorInput{}))

	_, err = svc.UpdateItems(ctx, order.ID, UpdateItemsInput{
		Items: []OrderItemInput{{ProductID: product.ID, Quantity: 3}},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestHistoryUnknownOrder(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)

	_, err := svc.History(context.Background(), uuid.New(), pagination.Params{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
