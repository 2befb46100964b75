package checkout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/service/coupon"
	"storefront/internal/service/pricing"
	"storefront/internal/store/memory"
)

type fakeSubmitter struct {
	count    atomic.Int32
	failures atomic.Int32
	started  chan struct{}
	release  chan struct{}
	payloads chan domain.OrderPayload
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{payloads: make(chan domain.OrderPayload, 8)}
}

func (f *fakeSubmitter) Submit(ctx context.Context, payload domain.OrderPayload) error {
	f.count.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		return errors.New("gateway unavailable")
	}
	f.payloads <- payload
	return nil
}

func validForm() domain.CheckoutForm {
	return domain.CheckoutForm{
		Email:         "jane@example.com",
		FirstName:     "Jane",
		LastName:      "Phiri",
		Phone:         "+260 977 000 000",
		Address:       "12 Cairo Road",
		City:          "Lusaka",
		PostalCode:    "10101",
		PaymentMethod: domain.PaymentMobileMoney,
	}
}

func newTestManager(t *testing.T, submitter Submitter) (*Manager, *memory.Store) {
	t.Helper()
	st := memory.NewStore()
	m := NewManager(
		st,
		pricing.NewEngine(pricing.DefaultPolicy()),
		coupon.NewResolver(coupon.DefaultRules()),
		submitter,
		nil,
		nil,
		2*time.Second,
	)
	return m, st
}

func seedCart(t *testing.T, st *memory.Store, cartID string) {
	t.Helper()
	_, err := st.Add(cartID, domain.LineItem{
		ProductID: "prod-1",
		Name:      "Desk Lamp",
		UnitPrice: decimal.NewFromInt(500),
		Quantity:  2,
	})
	require.NoError(t, err)
}

func TestBegin_EmptyCartNeverReachesStepOne(t *testing.T) {
	m, _ := newTestManager(t, newFakeSubmitter())

	_, err := m.Begin("cart-1", "", "")

	require.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestAdvance_ValidationBlocksTransition(t *testing.T) {
	m, st := newTestManager(t, newFakeSubmitter())
	seedCart(t, st, "cart-1")

	begun, err := m.Begin("cart-1", "", "")
	require.NoError(t, err)
	require.Equal(t, StepContact, begun.Step)

	form := validForm()
	form.Email = "  "
	form.Phone = ""
	_, err = m.Advance(context.Background(), begun.SessionID, form)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "phone")
	assert.NotContains(t, verr.Fields, "first_name")

	view, err := m.View(begun.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StepContact, view.Step, "failed validation must not transition")
}

func TestAdvance_FullFlowSubmitsAndClearsCart(t *testing.T) {
	submitter := newFakeSubmitter()
	m, st := newTestManager(t, submitter)
	seedCart(t, st, "cart-1")

	begun, err := m.Begin("cart-1", "freeship", "")
	require.NoError(t, err)
	// 2 x 500 with FREESHIP: 1000 + 50 + 160 - 50.
	require.True(t, begun.Totals.Total.Equal(decimal.NewFromInt(1160)), "total = %s", begun.Totals.Total)

	form := validForm()
	ctx := context.Background()

	step2, err := m.Advance(ctx, begun.SessionID, form)
	require.NoError(t, err)
	require.Equal(t, StepShipping, step2.Step)

	step3, err := m.Advance(ctx, begun.SessionID, form)
	require.NoError(t, err)
	require.Equal(t, StepPayment, step3.Step)

	done, err := m.Advance(ctx, begun.SessionID, form)
	require.NoError(t, err)
	assert.True(t, done.Submitted)
	assert.NotEmpty(t, done.OrderID)
	assert.True(t, done.Totals.Total.Equal(decimal.NewFromInt(1160)))

	payload := <-submitter.payloads
	require.Len(t, payload.LineItems, 1)
	assert.Equal(t, "prod-1", payload.LineItems[0].ProductID)
	assert.Equal(t, 2, payload.LineItems[0].Quantity)
	assert.Equal(t, domain.PaymentMobileMoney, payload.PaymentMethod)
	assert.Equal(t, "FREESHIP", done.Coupon.Code)

	cart, err := st.Load("cart-1")
	require.NoError(t, err)
	assert.True(t, cart.Empty(), "cart must be cleared on success")

	_, err = m.View(begun.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "session destroyed on success")
}

func TestAdvance_DoubleSubmitYieldsOneOrder(t *testing.T) {
	submitter := newFakeSubmitter()
	submitter.started = make(chan struct{}, 1)
	submitter.release = make(chan struct{})
	m, st := newTestManager(t, submitter)
	seedCart(t, st, "cart-1")

	begun, err := m.Begin("cart-1", "", "")
	require.NoError(t, err)
	form := validForm()
	ctx := context.Background()

	_, err = m.Advance(ctx, begun.SessionID, form)
	require.NoError(t, err)
	_, err = m.Advance(ctx, begun.SessionID, form)
	require.NoError(t, err)

	firstDone := make(chan error, 1)
	go func() {
		_, err := m.Advance(ctx, begun.SessionID, form)
		firstDone <- err
	}()
	<-submitter.started

	// Second invocation while the first is in flight must be rejected.
	_, err = m.Advance(ctx, begun.SessionID, form)
	require.ErrorIs(t, err, domain.ErrSubmissionInFlight)

	close(submitter.release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, int32(1), submitter.count.Load(), "exactly one submission")

	cart, err := st.Load("cart-1")
	require.NoError(t, err)
	assert.True(t, cart.Empty())
}

func TestAdvance_FailedSubmissionKeepsCartAndStep(t *testing.T) {
	submitter := newFakeSubmitter()
	submitter.failures.Store(1)
	m, st := newTestManager(t, submitter)
	seedCart(t, st, "cart-1")

	begun, err := m.Begin("cart-1", "", "")
	require.NoError(t, err)
	form := validForm()
	ctx := context.Background()

	_, err = m.Advance(ctx, begun.SessionID, form)
	require.NoError(t, err)
	_, err = m.Advance(ctx, begun.SessionID, form)
	require.NoError(t, err)

	_, err = m.Advance(ctx, begun.SessionID, form)
	var serr *domain.SubmissionError
	require.ErrorAs(t, err, &serr)

	cart, err := st.Load("cart-1")
	require.NoError(t, err)
	assert.False(t, cart.Empty(), "failed submission preserves the cart")

	view, err := m.View(begun.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StepPayment, view.Step)

	// The error is retryable: the next attempt goes through.
	done, err := m.Advance(ctx, begun.SessionID, form)
	require.NoError(t, err)
	assert.True(t, done.Submitted)
}

func TestRetreat_KeepsEnteredData(t *testing.T) {
	m, st := newTestManager(t, newFakeSubmitter())
	seedCart(t, st, "cart-1")

	begun, err := m.Begin("cart-1", "", "")
	require.NoError(t, err)
	form := validForm()

	_, err = m.Advance(context.Background(), begun.SessionID, form)
	require.NoError(t, err)

	back, err := m.Retreat(begun.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StepContact, back.Step)
	assert.Equal(t, form.Email, back.Form.Email)
	assert.Equal(t, form.Address, back.Form.Address)

	// Retreat at step 1 stays put.
	again, err := m.Retreat(begun.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StepContact, again.Step)
}

func TestView_RepricesCouponAfterExternalCartChange(t *testing.T) {
	m, st := newTestManager(t, newFakeSubmitter())
	seedCart(t, st, "cart-1")

	begun, err := m.Begin("cart-1", "WELCOME10", "")
	require.NoError(t, err)
	// 10% of 1000.
	require.True(t, begun.Coupon.DiscountAmount.Equal(decimal.NewFromInt(100)))

	// Another tab doubles the quantity.
	_, err = st.SetQuantity("cart-1", "prod-1", 4)
	require.NoError(t, err)

	view, err := m.View(begun.SessionID)
	require.NoError(t, err)
	assert.True(t, view.Coupon.DiscountAmount.Equal(decimal.NewFromInt(200)), "discount = %s", view.Coupon.DiscountAmount)
}

func TestAbandon_DiscardsSessionKeepsCart(t *testing.T) {
	m, st := newTestManager(t, newFakeSubmitter())
	seedCart(t, st, "cart-1")

	begun, err := m.Begin("cart-1", "", "")
	require.NoError(t, err)

	m.Abandon(begun.SessionID)

	_, err = m.View(begun.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	cart, err := st.Load("cart-1")
	require.NoError(t, err)
	assert.False(t, cart.Empty())
}
