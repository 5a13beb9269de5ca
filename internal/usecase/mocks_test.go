//go:build !integration

package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"brontie-core/internal/domain"
	"brontie-core/internal/domain/model"
	"brontie-core/internal/domain/ports/adapter"
	"brontie-core/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---------------- tx manager ----------------

type mockTxManager struct {
	// beginErr aborts WithTx before running fn, exercising rollback paths.
	beginErr error
}

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.beginErr != nil {
		return m.beginErr
	}
	return fn(ctx, repository.NoTX)
}

// ---------------- merchant repo ----------------

type memMerchantRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Merchant

	errFind error
}

func newMemMerchantRepo() *memMerchantRepo {
	return &memMerchantRepo{byID: map[string]*model.Merchant{}}
}

func (m *memMerchantRepo) Save(ctx context.Context, _ repository.Tx, mc *model.Merchant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *mc
	m.byID[mc.ID] = &cp
	return nil
}

func (m *memMerchantRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Merchant, error) {
	if m.errFind != nil {
		return nil, m.errFind
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *mc
	return &cp, nil
}

func (m *memMerchantRepo) ListAll(ctx context.Context, _ repository.Tx) ([]*model.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Merchant, 0, len(m.byID))
	for _, mc := range m.byID {
		cp := *mc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---------------- gift item repo ----------------

type memGiftItemRepo struct {
	mu   sync.Mutex
	byID map[string]*model.GiftItem

	errFind error
}

func newMemGiftItemRepo() *memGiftItemRepo {
	return &memGiftItemRepo{byID: map[string]*model.GiftItem{}}
}

func (m *memGiftItemRepo) Save(ctx context.Context, _ repository.Tx, g *model.GiftItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.byID[g.ID] = &cp
	return nil
}

func (m *memGiftItemRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.GiftItem, error) {
	if m.errFind != nil {
		return nil, m.errFind
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memGiftItemRepo) ListAll(ctx context.Context, _ repository.Tx) ([]*model.GiftItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.GiftItem, 0, len(m.byID))
	for _, g := range m.byID {
		cp := *g
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---------------- voucher repo ----------------

type memVoucherRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Voucher

	errSave error
	errFind error
	errList error
}

func newMemVoucherRepo() *memVoucherRepo {
	return &memVoucherRepo{byID: map[string]*model.Voucher{}}
}

func (m *memVoucherRepo) Save(ctx context.Context, _ repository.Tx, v *model.Voucher) error {
	if m.errSave != nil {
		return m.errSave
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// mirror the unique payment_ref constraint
	for _, other := range m.byID {
		if other.ID != v.ID && other.PaymentRef == v.PaymentRef {
			return domain.ErrAlreadyExists
		}
	}
	cp := *v
	m.byID[v.ID] = &cp
	return nil
}

func (m *memVoucherRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Voucher, error) {
	if m.errFind != nil {
		return nil, m.errFind
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memVoucherRepo) FindByPaymentRef(ctx context.Context, _ repository.Tx, ref string) (*model.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.byID {
		if v.PaymentRef == ref {
			cp := *v
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memVoucherRepo) List(ctx context.Context, _ repository.Tx, merchantID string, r *model.DateRange) ([]*model.Voucher, error) {
	if m.errList != nil {
		return nil, m.errList
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Voucher{}
	for _, v := range m.byID {
		if merchantID != "" && v.MerchantID != merchantID {
			continue
		}
		if !r.Contains(v.CreatedAt) {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memVoucherRepo) ListIssuedBefore(ctx context.Context, _ repository.Tx, before time.Time, limit int) ([]*model.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Voucher{}
	for _, v := range m.byID {
		if v.Status != model.VoucherStatusIssued || v.IssuedAt == nil || !v.IssuedAt.Before(before) {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(*out[j].IssuedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---------------- payout item repo ----------------

type memPayoutRepo struct {
	mu          sync.Mutex
	byVoucherID map[string]*model.PayoutItem
	// redeemedAt mirrors the voucher join used by the SQL implementation.
	redeemedAt map[string]time.Time

	errInsert error
	errList   error
	errMark   error
}

func newMemPayoutRepo() *memPayoutRepo {
	return &memPayoutRepo{
		byVoucherID: map[string]*model.PayoutItem{},
		redeemedAt:  map[string]time.Time{},
	}
}

func (m *memPayoutRepo) Insert(ctx context.Context, _ repository.Tx, item *model.PayoutItem) (bool, error) {
	if m.errInsert != nil {
		return false, m.errInsert
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byVoucherID[item.VoucherID]; exists {
		return false, nil
	}
	cp := *item
	m.byVoucherID[item.VoucherID] = &cp
	return true, nil
}

func (m *memPayoutRepo) FindByVoucherID(ctx context.Context, _ repository.Tx, voucherID string) (*model.PayoutItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byVoucherID[voucherID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPayoutRepo) ListPending(ctx context.Context, _ repository.Tx, merchantID string, redeemedIn *model.DateRange) ([]*model.PayoutItem, error) {
	if m.errList != nil {
		return nil, m.errList
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.PayoutItem{}
	for _, p := range m.byVoucherID {
		if p.Status != model.PayoutItemStatusPending {
			continue
		}
		if merchantID != "" && p.MerchantID != merchantID {
			continue
		}
		if redeemedIn != nil {
			at, ok := m.redeemedAt[p.VoucherID]
			if !ok || !redeemedIn.Contains(at) {
				continue
			}
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VoucherID < out[j].VoucherID })
	return out, nil
}

func (m *memPayoutRepo) MarkPaidUpTo(ctx context.Context, _ repository.Tx, merchantID string, cutoff, paidAt time.Time, transferRef string) (int, error) {
	if m.errMark != nil {
		return 0, m.errMark
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	marked := 0
	for _, p := range m.byVoucherID {
		if p.Status != model.PayoutItemStatusPending || p.MerchantID != merchantID {
			continue
		}
		at, ok := m.redeemedAt[p.VoucherID]
		if !ok || at.After(cutoff) {
			continue
		}
		if err := p.MarkPaid(transferRef, paidAt); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

func (m *memPayoutRepo) Reverse(ctx context.Context, _ repository.Tx, voucherID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byVoucherID[voucherID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PayoutItemStatusPending {
		return false, nil
	}
	if err := p.Reverse(); err != nil {
		return false, err
	}
	return true, nil
}

func (m *memPayoutRepo) ListRecentPaid(ctx context.Context, _ repository.Tx, limit int) ([]*model.PayoutItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.PayoutItem{}
	for _, p := range m.byVoucherID {
		if p.Status != model.PayoutItemStatusPaid {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PaidAt != nil && out[j].PaidAt != nil && out[i].PaidAt.After(*out[j].PaidAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---------------- adapters ----------------

type mockLocker struct {
	mu     sync.Mutex
	held   map[string]bool
	errTry error
}

func newMockLocker() *mockLocker {
	return &mockLocker{held: map[string]bool{}}
}

func (m *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.errTry != nil {
		return "", m.errTry
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return "", domain.ErrPayoutLocked
	}
	m.held[key] = true
	return "token", nil
}

func (m *mockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}

type mockTransfer struct {
	mu       sync.Mutex
	requests []adapter.TransferRequest
	err      error
	nextRef  string
}

func (m *mockTransfer) Transfer(ctx context.Context, req adapter.TransferRequest) (*adapter.TransferResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.requests = append(m.requests, req)
	ref := m.nextRef
	if ref == "" {
		ref = "tr_test_1"
	}
	return &adapter.TransferResult{TransferRef: ref}, nil
}

type mockEvents struct {
	mu        sync.Mutex
	published []string
}

func (m *mockEvents) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, routingKey)
	return nil
}

func (m *mockEvents) Close() {}

func (m *mockEvents) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.published...)
}
