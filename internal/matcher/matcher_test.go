package matcher

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dwarvesf/payment-listener/internal/model"
	"github.com/dwarvesf/payment-listener/internal/store"
	"github.com/dwarvesf/payment-listener/internal/store/storetest"
	"github.com/dwarvesf/payment-listener/internal/types/environments"
	"github.com/dwarvesf/payment-listener/internal/utils/config"
	"github.com/dwarvesf/payment-listener/internal/utils/logger"
)

const merchantWallet = "0xabcdef0000000000000000000000000000000001"

type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) Create(tx *gorm.DB, order *model.Order) (*model.Order, error) {
	args := m.Called(tx, order)
	return order, args.Error(1)
}

func (m *MockOrderStore) GetByID(tx *gorm.DB, id string) (*model.Order, error) {
	args := m.Called(tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderStore) FindPendingMatch(tx *gorm.DB, merchantWallet string, min, max decimal.Decimal, excludeIDs []string) (*model.Order, error) {
	args := m.Called(tx, merchantWallet, min, max, excludeIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderStore) MarkPaid(tx *gorm.DB, id string, transferHash string, logIndex uint, customerWallet string, paidAt time.Time) (bool, error) {
	args := m.Called(tx, id, transferHash, customerWallet, paidAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderStore) ExpirePending(tx *gorm.DB, now time.Time) (int64, error) {
	args := m.Called(tx, now)
	return args.Get(0).(int64), args.Error(1)
}

func decimalEq(v string) interface{} {
	want := decimal.RequireFromString(v)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func testConfig(tolerance string) *config.AppConfig {
	return &config.AppConfig{
		Listener: config.ListenerConfig{MatchTolerance: decimal.RequireFromString(tolerance)},
	}
}

func TestBounds(t *testing.T) {
	min, max := Bounds(decimal.RequireFromString("10.5"), DefaultTolerance)
	assert.Equal(t, "10.49895", min.String())
	assert.Equal(t, "10.50105", max.String())
}

func TestMatch_StoreError(t *testing.T) {
	orders := new(MockOrderStore)
	orders.On("FindPendingMatch", mock.Anything, merchantWallet, mock.Anything, mock.Anything, []string(nil)).
		Return(nil, errors.New("connection reset"))

	m := New(storetest.NewDB(t), &store.Store{Order: orders}, testConfig("0.0001"), logger.New(environments.Test))

	id, ok := m.Match(context.Background(), merchantWallet, big.NewInt(1050000), 5)
	assert.False(t, ok)
	assert.Empty(t, id)
	orders.AssertExpectations(t)
}

func TestMatch_LowercasesAddressAndPassesExclusions(t *testing.T) {
	orders := new(MockOrderStore)
	orders.On("FindPendingMatch", mock.Anything, merchantWallet,
		decimalEq("10.49895"), decimalEq("10.50105"), []string{"claimed"}).
		Return(&model.Order{ID: "next", TotalAmount: decimal.RequireFromString("10.5")}, nil)

	m := New(storetest.NewDB(t), &store.Store{Order: orders}, testConfig("0"), logger.New(environments.Test))

	id, ok := m.Match(context.Background(), "0xABCDEF0000000000000000000000000000000001", big.NewInt(1050000), 5, "claimed")
	assert.True(t, ok)
	assert.Equal(t, "next", id)
	orders.AssertExpectations(t)
}

func TestMatch_Database(t *testing.T) {
	db := storetest.NewDB(t)
	s := store.New()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, o := range []model.Order{
		{ID: "first", TotalAmount: decimal.RequireFromString("10.5")},
		{ID: "second", TotalAmount: decimal.RequireFromString("10.5")},
		{ID: "edge", TotalAmount: decimal.RequireFromString("20.002")},
	} {
		o.Status = model.OrderStatusPending
		o.Type = model.OrderTypeDirect
		o.MerchantWallet = merchantWallet
		o.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := s.Order.Create(db, &o)
		require.NoError(t, err)
	}

	m := New(db, s, testConfig("0.0001"), logger.New(environments.Test))
	ctx := context.Background()

	tests := []struct {
		name    string
		to      string
		raw     int64
		exclude []string
		wantID  string
		wantOK  bool
	}{
		{name: "exact amount takes oldest", to: merchantWallet, raw: 1050000, wantID: "first", wantOK: true},
		{name: "within tolerance below", to: merchantWallet, raw: 1049900, wantID: "first", wantOK: true},
		{name: "outside tolerance", to: merchantWallet, raw: 1040000, wantOK: false},
		{name: "claimed order skipped", to: merchantWallet, raw: 1050000, exclude: []string{"first"}, wantID: "second", wantOK: true},
		{name: "upper edge inclusive", to: merchantWallet, raw: 2000000, wantID: "edge", wantOK: true},
		{name: "unknown merchant", to: "0x0000000000000000000000000000000000000009", raw: 1050000, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := m.Match(ctx, tt.to, big.NewInt(tt.raw), 5, tt.exclude...)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
