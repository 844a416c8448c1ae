package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pigbank/orders/internal/observability"
	"github.com/pigbank/orders/internal/views"
	"github.com/pigbank/orders/pkg"
	"github.com/pigbank/orders/pkg/models"
	pkgviews "github.com/pigbank/orders/pkg/views"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// fakeGuard reproduces set-if-absent semantics over a map.
type fakeGuard struct {
	mu           sync.Mutex
	reservations map[string]string
	reserveErr   error
	confirms     int
}

func (g *fakeGuard) Reserve(_ context.Context, _, fingerprint, orderID string) (ReserveResult, error) {
	if g.reserveErr != nil {
		return ReserveResult{}, g.reserveErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if existing, ok := g.reservations[fingerprint]; ok {
		return ReserveResult{Hit: true, ExistingOrderID: existing}, nil
	}
	g.reservations[fingerprint] = orderID
	return ReserveResult{}, nil
}

func (g *fakeGuard) Confirm(_ context.Context, _, _, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.confirms++
	return nil
}

type fakeStore struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]models.Order
	users     map[uuid.UUID]models.User
	createErr error
	creates   int
}

func (s *fakeStore) CreateOrder(_ context.Context, _ string, user models.User, order models.Order) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		s.users[user.ID] = user
	}
	s.orders[order.ID] = order
	s.creates++
	return nil
}

func (s *fakeStore) FindOrder(_ context.Context, _ string, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]pkgviews.OrderResponse
	store   *fakeStore
	setErr  error
}

func (c *fakeCache) Set(_ context.Context, _ string, resp pkgviews.OrderResponse) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[resp.ID] = resp
	return nil
}

func (c *fakeCache) GetOrLoad(ctx context.Context, traceID, orderID string) (*pkgviews.OrderResponse, error) {
	c.mu.Lock()
	resp, ok := c.entries[orderID]
	c.mu.Unlock()
	if ok {
		return &resp, nil
	}
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, err
	}
	order, err := c.store.FindOrder(ctx, traceID, id)
	if err != nil || order == nil {
		return nil, err
	}
	loaded := order.ToResponse()
	c.mu.Lock()
	c.entries[loaded.ID] = loaded
	c.mu.Unlock()
	return &loaded, nil
}

type fakeProjections struct {
	mu      sync.Mutex
	records []OrderProjectionRecord
	err     error
}

func (p *fakeProjections) Put(_ context.Context, _ string, record OrderProjectionRecord) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, record)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []pkgviews.OrderCreatedEvent
	err    error
}

func (p *fakePublisher) PublishOrderCreated(_ context.Context, _ string, event pkgviews.OrderCreatedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Close() {}

type serviceFixture struct {
	service     OrderService
	guard       *fakeGuard
	store       *fakeStore
	cache       *fakeCache
	projections *fakeProjections
	publisher   *fakePublisher
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	guard := &fakeGuard{reservations: map[string]string{}}
	store := &fakeStore{orders: map[uuid.UUID]models.Order{}, users: map[uuid.UUID]models.User{}}
	cache := &fakeCache{entries: map[string]pkgviews.OrderResponse{}, store: store}
	projections := &fakeProjections{}
	publisher := &fakePublisher{}
	metrics := observability.NewOrderMetrics(prometheus.NewRegistry())
	tracer := noop.NewTracerProvider().Tracer("test")

	svc := NewOrderService(zap.NewNop(), guard, store, cache, projections, publisher, metrics, tracer)
	return &serviceFixture{
		service:     svc,
		guard:       guard,
		store:       store,
		cache:       cache,
		projections: projections,
		publisher:   publisher,
	}
}

func validRequest() views.CreateOrderRequest {
	return views.CreateOrderRequest{
		UserID:      uuid.New().String(),
		Amount:      decimal.RequireFromString("10.00"),
		Description: "widget",
	}
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	var appErr pkg.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code.Code
}

func TestCreateOrder_HappyPath(t *testing.T) {
	f := newFixture(t)
	req := validRequest()

	resp, err := f.service.CreateOrder(context.Background(), "trace-1", req)
	require.NoError(t, err)
	require.NotNil(t, resp)

	// Response projection
	assert.Equal(t, req.UserID, resp.UserID)
	assert.True(t, req.Amount.Equal(resp.Amount))
	assert.Equal(t, "widget", resp.Description)
	assert.Equal(t, pkg.OrderStatusPending, resp.Status)
	assert.False(t, resp.CreatedAt.IsZero())

	// Unrecognized user was auto-provisioned
	userID := uuid.MustParse(req.UserID)
	user, ok := f.store.users[userID]
	require.True(t, ok)
	assert.Contains(t, user.Name, req.UserID)

	// Exactly one committed order, pending status
	assert.Equal(t, 1, f.store.creates)
	orderID := uuid.MustParse(resp.ID)
	assert.Equal(t, pkg.OrderStatusPending, f.store.orders[orderID].Status)

	// Confirmation followed the primary commit
	assert.Equal(t, 1, f.guard.confirms)

	// Secondary record expires thirty days after creation
	require.Len(t, f.projections.records, 1)
	record := f.projections.records[0]
	assert.Equal(t, resp.ID, record.ID)
	assert.Equal(t, resp.CreatedAt.Add(pkg.ProjectionTTL).Unix(), record.TTL)
	recordAmount, err := decimal.NewFromString(record.Amount)
	require.NoError(t, err)
	assert.True(t, req.Amount.Equal(recordAmount))

	// Cache holds the response projection
	cached, ok := f.cache.entries[resp.ID]
	require.True(t, ok)
	assert.True(t, cached.Amount.Equal(req.Amount))

	// Exactly one event referencing the committed order
	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, pkg.EventTypeOrderCreated, event.EventType)
	assert.Equal(t, resp.ID, event.OrderID)
	assert.Equal(t, req.UserID, event.UserID)
}

func TestCreateOrder_DuplicateWithinWindow(t *testing.T) {
	f := newFixture(t)
	req := validRequest()

	first, err := f.service.CreateOrder(context.Background(), "trace-1", req)
	require.NoError(t, err)

	second, err := f.service.CreateOrder(context.Background(), "trace-2", req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.store.creates, "duplicate must not reach the system of record")
	assert.Len(t, f.publisher.events, 1, "duplicate must not publish a second event")
}

func TestCreateOrder_ConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	req := validRequest()

	type outcome struct {
		resp *pkgviews.OrderResponse
		err  error
	}
	results := make(chan outcome, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.service.CreateOrder(context.Background(), "trace-c", req)
			results <- outcome{resp: resp, err: err}
		}()
	}
	wg.Wait()
	close(results)

	// The reservation is atomic: exactly one order row regardless of timing.
	assert.Equal(t, 1, f.store.creates)
	require.Len(t, f.store.orders, 1)
	var createdID string
	for id := range f.store.orders {
		createdID = id.String()
	}

	for out := range results {
		if out.err != nil {
			// The loser may observe the winner's reservation before the
			// winner commits; it is told to retry, never to create.
			assert.Equal(t, pkg.ErrIdempotencyConflictCode.Code, appCode(t, out.err))
			continue
		}
		assert.Equal(t, createdID, out.resp.ID)
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*views.CreateOrderRequest)
		wantErr bool
	}{
		{
			name:    "zero amount rejected",
			mutate:  func(r *views.CreateOrderRequest) { r.Amount = decimal.Zero },
			wantErr: true,
		},
		{
			name:    "negative amount rejected",
			mutate:  func(r *views.CreateOrderRequest) { r.Amount = decimal.RequireFromString("-1") },
			wantErr: true,
		},
		{
			name:    "one cent accepted",
			mutate:  func(r *views.CreateOrderRequest) { r.Amount = decimal.RequireFromString("0.01") },
			wantErr: false,
		},
		{
			name:    "malformed user id rejected",
			mutate:  func(r *views.CreateOrderRequest) { r.UserID = "not-a-uuid" },
			wantErr: true,
		},
		{
			name:    "description at limit accepted",
			mutate:  func(r *views.CreateOrderRequest) { r.Description = strings.Repeat("x", 500) },
			wantErr: false,
		},
		{
			name:    "description over limit rejected",
			mutate:  func(r *views.CreateOrderRequest) { r.Description = strings.Repeat("x", 501) },
			wantErr: true,
		},
		{
			name:    "multibyte description counted in code points",
			mutate:  func(r *views.CreateOrderRequest) { r.Description = strings.Repeat("ü", 500) },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := validRequest()
			tt.mutate(&req)

			_, err := f.service.CreateOrder(context.Background(), "trace-v", req)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, pkg.ErrInvalidInputCode.Code, appCode(t, err))
				assert.Equal(t, 0, f.store.creates, "validation failures must have no side effects")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCreateOrder_GuardUnavailableFailsClosed(t *testing.T) {
	f := newFixture(t)
	f.guard.reserveErr = pkg.NewAppError(pkg.ErrDependencyCode, "idempotency store unavailable", nil)

	_, err := f.service.CreateOrder(context.Background(), "trace-g", validRequest())
	require.Error(t, err)
	assert.Equal(t, pkg.ErrDependencyCode.Code, appCode(t, err))
	assert.Equal(t, 0, f.store.creates)
	assert.Empty(t, f.publisher.events)
}

func TestCreateOrder_ProjectionFailureThenRetry(t *testing.T) {
	f := newFixture(t)
	f.projections.err = pkg.NewAppError(pkg.ErrDependencyCode, "projection store unavailable", nil)
	req := validRequest()

	_, err := f.service.CreateOrder(context.Background(), "trace-p1", req)
	require.Error(t, err)
	assert.True(t, pkg.IsRetryable(err))

	// Primary commit stands; nothing downstream of it happened.
	assert.Equal(t, 1, f.store.creates)
	assert.Empty(t, f.projections.records)
	assert.Empty(t, f.publisher.events)
	require.Len(t, f.store.orders, 1)
	var committedID string
	for id := range f.store.orders {
		committedID = id.String()
	}

	// Retrying within the window resolves to the committed order instead of
	// creating a second row.
	f.projections.err = nil
	resp, err := f.service.CreateOrder(context.Background(), "trace-p2", req)
	require.NoError(t, err)
	assert.Equal(t, committedID, resp.ID)
	assert.Equal(t, 1, f.store.creates)
}

func TestCreateOrder_PublishFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = pkg.NewAppError(pkg.ErrDependencyCode, "event channel unavailable", nil)

	_, err := f.service.CreateOrder(context.Background(), "trace-e", validRequest())
	require.Error(t, err)
	assert.True(t, pkg.IsRetryable(err))
	assert.Equal(t, 1, f.store.creates)
	assert.Len(t, f.projections.records, 1)
}

func TestGetOrder(t *testing.T) {
	f := newFixture(t)
	req := validRequest()

	created, err := f.service.CreateOrder(context.Background(), "trace-1", req)
	require.NoError(t, err)

	// Served from cache
	got, err := f.service.GetOrder(context.Background(), "trace-2", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	// Cache expired: falls back to the system of record
	delete(f.cache.entries, created.ID)
	got, err = f.service.GetOrder(context.Background(), "trace-3", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	// Unknown order
	_, err = f.service.GetOrder(context.Background(), "trace-4", uuid.New().String())
	require.Error(t, err)
	assert.Equal(t, pkg.ErrRecordNotFoundCode.Code, appCode(t, err))

	// Malformed id
	_, err = f.service.GetOrder(context.Background(), "trace-5", "not-a-uuid")
	require.Error(t, err)
	assert.Equal(t, pkg.ErrInvalidInputCode.Code, appCode(t, err))
}

func TestCreateOrder_TimestampsAreUTC(t *testing.T) {
	f := newFixture(t)
	resp, err := f.service.CreateOrder(context.Background(), "trace-1", validRequest())
	require.NoError(t, err)
	_, offset := resp.CreatedAt.Zone()
	assert.Equal(t, 0, offset)
	assert.WithinDuration(t, time.Now().UTC(), resp.CreatedAt, 5*time.Second)
}
