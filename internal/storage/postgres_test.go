package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"bluedex/internal/db"
	mock_database "bluedex/internal/db/mocks"
	"bluedex/internal/repository"
	"bluedex/internal/storage"
	storage_mocks "bluedex/internal/storage/mocks"
)

type storageMocks struct {
	db      *mock_database.MockDB
	tx      *mock_database.MockTx
	orders  *storage_mocks.MockOrderRepository
	history *storage_mocks.MockHistoryRepository
	users   *storage_mocks.MockUserRepository
	outbox  *storage_mocks.MockOutboxTaskRepository
	cache   *storage_mocks.MockShipmentCache
}

func newTestStorage(ctrl *gomock.Controller) (*storage.PostgresStorage, storageMocks) {
	m := storageMocks{
		db:      mock_database.NewMockDB(ctrl),
		tx:      mock_database.NewMockTx(ctrl),
		orders:  storage_mocks.NewMockOrderRepository(ctrl),
		history: storage_mocks.NewMockHistoryRepository(ctrl),
		users:   storage_mocks.NewMockUserRepository(ctrl),
		outbox:  storage_mocks.NewMockOutboxTaskRepository(ctrl),
		cache:   storage_mocks.NewMockShipmentCache(ctrl),
	}
	s := storage.NewPostgresStorage(m.db, m.orders, m.history, m.users, m.outbox, m.cache, zap.NewNop())
	return s, m
}

// expectTx wires BeginTx to the mock transaction; the deferred rollback always
// runs, even after commit.
func (m storageMocks) expectTx(committed bool) {
	m.db.EXPECT().BeginTx(gomock.Any()).Return(db.Tx(m.tx), nil)
	m.tx.EXPECT().Rollback(gomock.Any()).Return(nil)
	if committed {
		m.tx.EXPECT().Commit(gomock.Any()).Return(nil)
	}
}

var testSender = &repository.User{
	ID:       "user-1",
	Username: "ada",
	Role:     "sender",
	Name:     "Ada Sender",
	Address:  "1 Depot Road",
}

func validInput() storage.CreateOrderInput {
	return storage.CreateOrderInput{
		ReceiverName:    "Bob Receiver",
		ReceiverAddress: "12 Harbor Lane",
		ReceiverPhone:   "+15550001111",
		PackageType:     storage.PackageFragile,
		Weight:          3,
		PaymentType:     storage.PaymentCOD,
	}
}

func TestPostgresStorage_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("success writes order, first history entry and event", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s, m := newTestStorage(ctrl)

		m.users.EXPECT().GetByID(ctx, testSender.ID).Return(testSender, nil)
		m.orders.EXPECT().ExistsTrackingID(ctx, gomock.Any()).Return(false, nil)
		m.expectTx(true)

		var created *repository.Order
		m.orders.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ db.Tx, order *repository.Order) error {
				created = order
				return nil
			})
		m.history.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ db.Tx, entry *repository.HistoryEntry) error {
				assert.Equal(t, string(storage.StatusPending), entry.Status)
				assert.Equal(t, testSender.Address, entry.Location)
				return nil
			})
		m.outbox.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ db.Tx, task *repository.OutboxTask) error {
				assert.Equal(t, storage.ShipmentEventsTopic, task.Topic)
				assert.Contains(t, string(task.Payload), "order.created")
				return nil
			})
		m.cache.EXPECT().Set(gomock.Any())

		order, err := s.CreateOrder(ctx, testSender.ID, validInput())
		require.NoError(t, err)
		require.NotNil(t, created)

		assert.Equal(t, created.TrackingID, order.TrackingID)
		assert.Regexp(t, `^BDX\d{8}-[0-9A-Z]{4}$`, order.TrackingID)
		assert.Equal(t, storage.StatusPending, order.Status)
		// 50 base + 2 extra kg * 20 + fragile 30
		assert.InDelta(t, 120, order.DeliveryCost, 1e-9)
		require.Len(t, order.History, 1)
		assert.Equal(t, storage.StatusPending, order.History[0].Status)
		assert.Equal(t, testSender.Address, order.History[0].Location)
	})

	t.Run("sender without address falls back to placeholder location", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s, m := newTestStorage(ctrl)

		bare := &repository.User{ID: "user-2", Username: "noaddr"}
		m.users.EXPECT().GetByID(ctx, bare.ID).Return(bare, nil)
		m.orders.EXPECT().ExistsTrackingID(ctx, gomock.Any()).Return(false, nil)
		m.expectTx(true)
		m.orders.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil)
		m.history.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ db.Tx, entry *repository.HistoryEntry) error {
				assert.Equal(t, "Sender Address Unknown", entry.Location)
				return nil
			})
		m.outbox.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil)
		m.cache.EXPECT().Set(gomock.Any())

		order, err := s.CreateOrder(ctx, bare.ID, validInput())
		require.NoError(t, err)
		require.Len(t, order.History, 1)
		assert.Equal(t, "Sender Address Unknown", order.History[0].Location)
	})

	t.Run("invalid input is rejected before any store call", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s, _ := newTestStorage(ctrl)

		in := validInput()
		in.Weight = 0

		order, err := s.CreateOrder(ctx, testSender.ID, in)
		assert.ErrorIs(t, err, storage.ErrValidation)
		assert.Nil(t, order)
	})

	t.Run("unknown sender", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s, m := newTestStorage(ctrl)

		m.users.EXPECT().GetByID(ctx, "ghost").Return(nil, repository.ErrObjectNotFound)

		order, err := s.CreateOrder(ctx, "ghost", validInput())
		assert.ErrorIs(t, err, storage.ErrSenderNotFound)
		assert.Nil(t, order)
	})

	t.Run("duplicate tracking id at write time rolls back", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s, m := newTestStorage(ctrl)

		m.users.EXPECT().GetByID(ctx, testSender.ID).Return(testSender, nil)
		m.orders.EXPECT().ExistsTrackingID(ctx, gomock.Any()).Return(false, nil)
		m.expectTx(false)
		m.orders.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(repository.ErrDuplicateTrackingID)

		order, err := s.CreateOrder(ctx, testSender.ID, validInput())
		assert.ErrorIs(t, err, repository.ErrDuplicateTrackingID)
		assert.Nil(t, order)
	})
}

func TestPostgresStorage_GetOrderByTrackingID(t *testing.T) {
	ctx := context.Background()

	row := &repository.Order{
		ID:         "order-1",
		TrackingID: "BDX20250314-A1B2",
		Status:     string(storage.StatusInTransit),
	}
	entries := []*repository.HistoryEntry{
		{OrderID: row.ID, Status: string(storage.StatusPending), Location: "1 Depot Road"},
		{OrderID: row.ID, Status: string(storage.StatusInTransit), Location: "Hub North"},
	}

	t.Run("cache hit skips the store", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s, m := newTestStorage(ctrl)

		m.cache.EXPECT().Get(row.TrackingID).Return(row, true)
		m.history.EXPECT().GetByOrderID(ctx, row.ID).Return(entries, nil)

		order, err := s.GetOrderByTrackingID(ctx, row.TrackingID)
		require.NoError(t, err)
		assert.Equal(t, row.TrackingID, order.TrackingID)
		require.Len(t, order.History, 2)
		assert.Equal(t, storage.StatusPending, order.History[0].Status)
		assert.Equal(t, storage.StatusInTransit, order.History[1].Status)
	})

	t.Run("cache miss falls through to the store", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s, m := newTestStorage(ctrl)

		m.cache.EXPECT().Get(row.TrackingID).Return(nil, false)
		m.orders.EXPECT().GetByTrackingID(ctx, row.TrackingID).Return(row, nil)
		m.history.EXPECT().GetByOrderID(ctx, row.ID).Return(entries, nil)

		order, err := s.GetOrderByTrackingID(ctx, row.TrackingID)
		require.NoError(t, err)
		assert.Equal(t, row.TrackingID, order.TrackingID)
	})

	t.Run("unknown tracking id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s, m := newTestStorage(ctrl)

		m.cache.EXPECT().Get("BDX20250314-ZZZZ").Return(nil, false)
		m.orders.EXPECT().GetByTrackingID(ctx, "BDX20250314-ZZZZ").
			Return(nil, repository.ErrObjectNotFound)

		order, err := s.GetOrderByTrackingID(ctx, "BDX20250314-ZZZZ")
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
		assert.Nil(t, order)
	})
}

func TestPostgresStorage_AdvanceStatus(t *testing.T) {
	ctx := context.Background()

	row := func() *repository.Order {
		return &repository.Order{
			ID:         "order-1",
			TrackingID: "BDX20250314-A1B2",
			Status:     string(storage.StatusPending),
		}
	}

	t.Run("valid forward step", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s, m := newTestStorage(ctrl)

		current := row()
		m.expectTx(true)
		m.orders.EXPECT().GetByTrackingIDTx(ctx, m.tx, current.TrackingID).Return(current, nil)
		m.orders.EXPECT().UpdateStatusTx(ctx, m.tx, current.ID, string(storage.StatusInTransit)).Return(nil)
		m.history.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ db.Tx, entry *repository.HistoryEntry) error {
				assert.Equal(t, string(storage.StatusInTransit), entry.Status)
				assert.Equal(t, "Hub North", entry.Location)
				return nil
			})
		m.outbox.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ db.Tx, task *repository.OutboxTask) error {
				assert.Contains(t, string(task.Payload), "order.status_changed")
				return nil
			})
		m.cache.EXPECT().Set(gomock.Any())
		m.history.EXPECT().GetByOrderID(ctx, current.ID).Return([]*repository.HistoryEntry{
			{OrderID: current.ID, Status: string(storage.StatusPending)},
			{OrderID: current.ID, Status: string(storage.StatusInTransit), Location: "Hub North"},
		}, nil)

		order, err := s.AdvanceStatus(ctx, current.TrackingID, "In Transit", "Hub North", "admin")
		require.NoError(t, err)
		assert.Equal(t, storage.StatusInTransit, order.Status)
		require.Len(t, order.History, 2)
	})

	t.Run("unknown status is rejected without touching the store", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s, _ := newTestStorage(ctrl)

		order, err := s.AdvanceStatus(ctx, "BDX20250314-A1B2", "Shipped", "", "admin")
		assert.ErrorIs(t, err, storage.ErrUnknownStatus)
		assert.Nil(t, order)
	})

	t.Run("illegal transition rolls back", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s, m := newTestStorage(ctrl)

		delivered := row()
		delivered.Status = string(storage.StatusDelivered)

		m.expectTx(false)
		m.orders.EXPECT().GetByTrackingIDTx(ctx, m.tx, delivered.TrackingID).Return(delivered, nil)

		order, err := s.AdvanceStatus(ctx, delivered.TrackingID, "Cancelled", "", "admin")
		assert.ErrorIs(t, err, storage.ErrInvalidTransition)
		assert.Nil(t, order)
	})

	t.Run("order not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s, m := newTestStorage(ctrl)

		m.expectTx(false)
		m.orders.EXPECT().GetByTrackingIDTx(ctx, m.tx, "BDX20250314-ZZZZ").
			Return(nil, repository.ErrObjectNotFound)

		order, err := s.AdvanceStatus(ctx, "BDX20250314-ZZZZ", "In Transit", "", "admin")
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
		assert.Nil(t, order)
	})
}

func TestPostgresStorage_DeleteOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s, m := newTestStorage(ctrl)

		row := &repository.Order{ID: "order-1", TrackingID: "BDX20250314-A1B2", Status: "Delivered"}
		m.orders.EXPECT().GetByID(ctx, row.ID).Return(row, nil)
		m.expectTx(true)
		m.orders.EXPECT().DeleteTx(ctx, m.tx, row.ID).Return(nil)
		m.outbox.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ db.Tx, task *repository.OutboxTask) error {
				assert.Contains(t, string(task.Payload), "order.deleted")
				return nil
			})
		m.cache.EXPECT().Delete(row.TrackingID)

		assert.NoError(t, s.DeleteOrder(ctx, row.ID))
	})

	t.Run("missing order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s, m := newTestStorage(ctrl)

		m.orders.EXPECT().GetByID(ctx, "ghost").Return(nil, repository.ErrObjectNotFound)

		err := s.DeleteOrder(ctx, "ghost")
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})
}

func TestPostgresStorage_GetStats(t *testing.T) {
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s, m := newTestStorage(ctrl)

	m.orders.EXPECT().CountByStatus(ctx).Return([]*repository.StatusCount{
		{Status: "Pending", Count: 3},
		{Status: "In Transit", Count: 2},
		{Status: "Out for Delivery", Count: 4},
		{Status: "Delivered", Count: 5},
		{Status: "Cancelled", Count: 1},
	}, nil)

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, stats.TotalOrders)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 2, stats.InTransit)
	assert.Equal(t, 5, stats.Delivered)
}

func TestPostgresStorage_GetUserOrders(t *testing.T) {
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s, m := newTestStorage(ctrl)

	rows := []*repository.Order{
		{ID: "order-2", TrackingID: "BDX20250315-C3D4", SenderID: "user-1", Status: "Pending"},
		{ID: "order-1", TrackingID: "BDX20250314-A1B2", SenderID: "user-1", Status: "Delivered"},
	}
	m.orders.EXPECT().GetBySender(ctx, "user-1").Return(rows, nil)
	m.history.EXPECT().GetByOrderIDs(ctx, []string{"order-2", "order-1"}).
		Return(map[string][]*repository.HistoryEntry{
			"order-1": {{OrderID: "order-1", Status: "Pending"}, {OrderID: "order-1", Status: "In Transit"}},
			"order-2": {{OrderID: "order-2", Status: "Pending"}},
		}, nil)

	orders, err := s.GetUserOrders(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "BDX20250315-C3D4", orders[0].TrackingID)
	assert.Len(t, orders[0].History, 1)
	assert.Len(t, orders[1].History, 2)
}

func TestPostgresStorage_ListAllOrders(t *testing.T) {
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s, m := newTestStorage(ctrl)

	rows := []*repository.OrderWithSender{
		{
			Order:         repository.Order{ID: "order-1", TrackingID: "BDX20250314-A1B2", Status: "Pending"},
			SenderName:    "Ada Sender",
			SenderAddress: "1 Depot Road",
		},
		{
			Order:         repository.Order{ID: "order-2", TrackingID: "BDX20250315-C3D4", Status: "Pending"},
			SenderName:    "Unknown",
			SenderAddress: "Unknown",
		},
	}
	m.orders.EXPECT().ListAll(ctx).Return(rows, nil)
	m.history.EXPECT().GetByOrderIDs(ctx, []string{"order-1", "order-2"}).
		Return(map[string][]*repository.HistoryEntry{}, nil)

	orders, err := s.ListAllOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "Ada Sender", orders[0].SenderName)
	assert.Equal(t, "Unknown", orders[1].SenderName)
}
