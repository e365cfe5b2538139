package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	internalorders "github.com/Nubiru/chamana-sub000/internal/orders"
	"github.com/Nubiru/chamana-sub000/pkg/db/models"
	"github.com/Nubiru/chamana-sub000/pkg/enums"
	pkgerrors "github.com/Nubiru/chamana-sub000/pkg/errors"
	"github.com/Nubiru/chamana-sub000/pkg/logger"
	"github.com/Nubiru/chamana-sub000/pkg/pagination"
	"github.com/Nubiru/chamana-sub000/pkg/types"
)

type stubOrdersService struct {
	order       *models.Order
	history     *internalorders.HistoryPage
	err         error
	completeErr error

	lastCreate internalorders.CreateOrderInput
	lastActor  internalorders.ActorInput
	calls      int
}

func (s *stubOrdersService) Create(_ context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	s.calls++
	s.lastCreate = input
	return s.order, s.err
}

func (s *stubOrdersService) Get(context.Context, uuid.UUID) (*models.Order, error) {
	s.calls++
	return s.order, s.err
}

func (s *stubOrdersService) Complete(_ context.Context, _ uuid.UUID, actor internalorders.ActorInput) error {
	s.calls++
	s.lastActor = actor
	return s.completeErr
}

func (s *stubOrdersService) Cancel(_ context.Context, _ uuid.UUID, actor internalorders.ActorInput) error {
	s.calls++
	s.lastActor = actor
	return s.err
}

func (s *stubOrdersService) Process(_ context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	s.calls++
	s.lastCreate = input
	return s.order, s.err
}

func (s *stubOrdersService) UpdateItems(context.Context, uuid.UUID, internalorders.UpdateItemsInput) (*models.Order, error) {
	s.calls++
	return s.order, s.err
}

func (s *stubOrdersService) History(context.Context, uuid.UUID, pagination.Params) (*internalorders.HistoryPage, error) {
	s.calls++
	return s.history, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func requestWithOrderID(method, target, orderID string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", orderID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		Status:        enums.OrderStatusPending,
		SubtotalCents: 200,
		TotalCents:    200,
		Items: []models.OrderItem{
			{ID: uuid.New(), ProductID: uuid.New(), Quantity: 2, UnitPriceCents: 100, SubtotalCents: 200},
		},
	}
}

func TestCreateOrderReturns201(t *testing.T) {
	stub := &stubOrdersService{order: sampleOrder()}
	customerID := uuid.New()
	productID := uuid.New()
	body := `{"customer_id":"` + customerID.String() + `","items":[{"product_id":"` + productID.String() + `","quantity":2}],"discount_cents":0}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	CreateOrder(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.lastCreate.CustomerID != customerID {
		t.Fatalf("customer id not forwarded")
	}
	if len(stub.lastCreate.Items) != 1 || stub.lastCreate.Items[0].Quantity != 2 {
		t.Fatalf("items not forwarded: %+v", stub.lastCreate.Items)
	}
}

func TestCreateOrderIgnoresClientUnitPrice(t *testing.T) {
	stub := &stubOrdersService{order: sampleOrder()}
	customerID := uuid.New()
	productID := uuid.New()
	body := `{"customer_id":"` + customerID.String() + `","items":[{"product_id":"` + productID.String() + `","quantity":2,"unit_price_cents":999}]}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	CreateOrder(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(stub.lastCreate.Items) != 1 {
		t.Fatalf("items not forwarded: %+v", stub.lastCreate.Items)
	}
	if got := stub.lastCreate.Items[0]; got.ProductID != productID || got.Quantity != 2 {
		t.Fatalf("unexpected forwarded item: %+v", got)
	}
}

func TestCreateOrderRejectsMalformedBody(t *testing.T) {
	stub := &stubOrdersService{order: sampleOrder()}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"customer_id":`))
	rec := httptest.NewRecorder()
	CreateOrder(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if stub.calls != 0 {
		t.Fatalf("service must not run on malformed input")
	}
}

func TestCreateOrderRejectsUnknownFields(t *testing.T) {
	stub := &stubOrdersService{order: sampleOrder()}
	body := `{"customer_id":"` + uuid.NewString() + `","surprise":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	CreateOrder(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestProcessOrderMapsStockConflict(t *testing.T) {
	stub := &stubOrdersService{
		err: pkgerrors.New(pkgerrors.CodeStockInsufficient, "insufficient stock").
			WithDetails(map[string]any{"available": 1}),
	}
	body := `{"customer_id":"` + uuid.NewString() + `","items":[{"product_id":"` + uuid.NewString() + `","quantity":5}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/process", strings.NewReader(body))
	rec := httptest.NewRecorder()
	ProcessOrder(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("parse error envelope: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeStockInsufficient) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
	if !envelope.Error.Retryable {
		t.Fatalf("stock conflicts must be retryable")
	}
}

func TestCompleteOrderStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, http.StatusOK},
		{"not found", pkgerrors.New(pkgerrors.CodeNotFound, "order not found"), http.StatusNotFound},
		{"state conflict", pkgerrors.New(pkgerrors.CodeStateConflict, "completion not allowed in current state"), http.StatusConflict},
		{"stock conflict", pkgerrors.New(pkgerrors.CodeStockInsufficient, "insufficient stock"), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubOrdersService{completeErr: tt.err}
			orderID := uuid.NewString()
			req := requestWithOrderID(http.MethodPut, "/api/v1/orders/"+orderID+"/complete", orderID, nil)
			rec := httptest.NewRecorder()
			CompleteOrder(stub, testLogger()).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestCompleteOrderInvalidID(t *testing.T) {
	stub := &stubOrdersService{}
	req := requestWithOrderID(http.MethodPut, "/api/v1/orders/nope/complete", "not-a-uuid", nil)
	rec := httptest.NewRecorder()
	CompleteOrder(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if stub.calls != 0 {
		t.Fatalf("service must not run for invalid id")
	}
}

func TestCancelOrderForwardsActor(t *testing.T) {
	stub := &stubOrdersService{}
	orderID := uuid.NewString()
	req := requestWithOrderID(http.MethodPut, "/api/v1/orders/"+orderID+"/cancel?changed_by=ops", orderID, nil)
	rec := httptest.NewRecorder()
	CancelOrder(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.lastActor.ChangedBy != "ops" {
		t.Fatalf("expected changed_by forwarded, got %q", stub.lastActor.ChangedBy)
	}
}

func TestCancelOrderDefaultsActorToAPI(t *testing.T) {
	stub := &stubOrdersService{}
	orderID := uuid.NewString()
	req := requestWithOrderID(http.MethodPut, "/api/v1/orders/"+orderID+"/cancel", orderID, nil)
	rec := httptest.NewRecorder()
	CancelOrder(stub, testLogger()).ServeHTTP(rec, req)

	if stub.lastActor.ChangedBy != enums.ActorAPI {
		t.Fatalf("expected default actor %q, got %q", enums.ActorAPI, stub.lastActor.ChangedBy)
	}
}

func TestOrderDetailSerializesView(t *testing.T) {
	order := sampleOrder()
	stub := &stubOrdersService{order: order}
	req := requestWithOrderID(http.MethodGet, "/api/v1/orders/"+order.ID.String(), order.ID.String(), nil)
	rec := httptest.NewRecorder()
	OrderDetail(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope struct {
		Data orderView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if envelope.Data.ID != order.ID {
		t.Fatalf("unexpected order id %s", envelope.Data.ID)
	}
	if len(envelope.Data.Items) != 1 || envelope.Data.Items[0].SubtotalCents != 200 {
		t.Fatalf("items not serialized: %+v", envelope.Data.Items)
	}
}

func TestOrderHistoryReturnsEntries(t *testing.T) {
	orderID := uuid.New()
	prev := enums.OrderStatusPending
	stub := &stubOrdersService{history: &internalorders.HistoryPage{
		Entries: []models.OrderStatusHistory{
			{ID: uuid.New(), OrderID: orderID, PreviousStatus: &prev, NewStatus: enums.OrderStatusCompleted, ChangedBy: enums.ActorAPI},
		},
	}}
	req := requestWithOrderID(http.MethodGet, "/api/v1/orders/"+orderID.String()+"/history", orderID.String(), nil)
	rec := httptest.NewRecorder()
	OrderHistory(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope struct {
		Data historyPageView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(envelope.Data.Entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(envelope.Data.Entries))
	}
	if envelope.Data.Entries[0].NewStatus != enums.OrderStatusCompleted {
		t.Fatalf("unexpected status %s", envelope.Data.Entries[0].NewStatus)
	}
}

func TestOrderHistoryRejectsBadLimit(t *testing.T) {
	stub := &stubOrdersService{}
	orderID := uuid.NewString()
	req := requestWithOrderID(http.MethodGet, "/api/v1/orders/"+orderID+"/history?limit=9999", orderID, nil)
	rec := httptest.NewRecorder()
	OrderHistory(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range limit, got %d", rec.Code)
	}
}
