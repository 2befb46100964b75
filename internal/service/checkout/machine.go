package checkout

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/security/secretbox"
	"storefront/internal/service/coupon"
	"storefront/internal/service/pricing"
	storepkg "storefront/internal/store"
)

type Step int

const (
	StepContact  Step = 1
	StepShipping Step = 2
	StepPayment  Step = 3
)

// Submitter performs the outbound order round-trip.
type Submitter interface {
	Submit(ctx context.Context, payload domain.OrderPayload) error
}

// Notifier tells the user their order went through. Best effort.
type Notifier interface {
	NotifyOrder(ctx context.Context, payload domain.OrderPayload) error
}

type session struct {
	id          string
	cartID      string
	customerRef string
	step        Step
	form        domain.CheckoutForm
	coupon      domain.CouponState

	// submitting gates Advance from the payment step: a second invocation
	// while the submission is in flight is rejected, never duplicated.
	submitting bool
}

// View is the read model handed back after every operation. Items and
// totals are re-read and re-derived each time; nothing here is cached.
type View struct {
	SessionID string              `json:"session_id"`
	CartID    string              `json:"cart_id"`
	Step      Step                `json:"step"`
	Submitted bool                `json:"submitted"`
	OrderID   string              `json:"order_id,omitempty"`
	Form      domain.CheckoutForm `json:"form"`
	Coupon    domain.CouponState  `json:"coupon"`
	Items     []domain.LineItem   `json:"items"`
	Totals    domain.Totals       `json:"totals"`
}

// Manager drives checkout sessions through contact -> shipping -> payment
// and the final submission. Sessions are transient: one lives from Begin
// until successful submission or Abandon.
type Manager struct {
	store         storepkg.Store
	pricing       *pricing.Engine
	coupons       *coupon.Resolver
	submitter     Submitter
	notifier      Notifier
	profiles      *secretbox.Box
	submitTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

func NewManager(
	store storepkg.Store,
	pricingEngine *pricing.Engine,
	coupons *coupon.Resolver,
	submitter Submitter,
	notifier Notifier,
	profiles *secretbox.Box,
	submitTimeout time.Duration,
) *Manager {
	return &Manager{
		store:         store,
		pricing:       pricingEngine,
		coupons:       coupons,
		submitter:     submitter,
		notifier:      notifier,
		profiles:      profiles,
		submitTimeout: submitTimeout,
		sessions:      make(map[string]*session),
	}
}

// Begin opens a checkout session for the cart. An empty cart never enters
// the form: the caller gets domain.ErrEmptyCart and redirects to the catalog.
func (m *Manager) Begin(cartID, couponCode, customerRef string) (View, error) {
	cart, err := m.store.Load(cartID)
	if err != nil {
		return View{}, err
	}
	if cart.Empty() {
		return View{}, domain.ErrEmptyCart
	}

	s := &session{
		id:          uuid.NewString(),
		cartID:      cartID,
		customerRef: customerRef,
		step:        StepContact,
		form:        domain.CheckoutForm{PaymentMethod: domain.PaymentCard},
	}
	if couponCode != "" {
		base := m.pricing.ComputeTotals(cart.Items, domain.CouponState{})
		if outcome := m.coupons.Resolve(couponCode, base); outcome.Applied {
			s.coupon = domain.CouponState{Code: outcome.Code, DiscountAmount: outcome.Amount}
		}
	}
	m.prefillForm(s)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	return m.render(*s)
}

// View re-reads the cart and recomputes totals for an open session.
func (m *Manager) View(sessionID string) (View, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return View{}, domain.ErrSessionNotFound
	}
	snap := *s
	m.mu.Unlock()
	return m.render(snap)
}

// Advance replaces the session form with the submitted one, validates the
// current step and moves forward. From the payment step it performs the
// order submission instead: on success the cart is cleared and the session
// destroyed, on failure the session stays on the payment step and the cart
// is untouched.
func (m *Manager) Advance(ctx context.Context, sessionID string, form domain.CheckoutForm) (View, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return View{}, domain.ErrSessionNotFound
	}
	if s.submitting {
		m.mu.Unlock()
		return View{}, domain.ErrSubmissionInFlight
	}
	s.form = form

	if verr := validateStep(s.step, form); verr != nil {
		snap := *s
		m.mu.Unlock()
		view, _ := m.render(snap)
		return view, verr
	}

	if s.step < StepPayment {
		s.step++
		snap := *s
		m.mu.Unlock()
		return m.render(snap)
	}

	s.submitting = true
	snap := *s
	m.mu.Unlock()

	view, err := m.submit(ctx, snap)

	m.mu.Lock()
	s.submitting = false
	if err == nil {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	return view, err
}

// Retreat moves back one step. No validation: entered data stays in the
// session form.
func (m *Manager) Retreat(sessionID string) (View, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return View{}, domain.ErrSessionNotFound
	}
	if s.submitting {
		m.mu.Unlock()
		return View{}, domain.ErrSubmissionInFlight
	}
	if s.step > StepContact {
		s.step--
	}
	snap := *s
	m.mu.Unlock()
	return m.render(snap)
}

// Abandon discards the session, as when the user navigates away. The cart
// is left alone.
func (m *Manager) Abandon(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

func (m *Manager) submit(ctx context.Context, snap session) (View, error) {
	// Re-read rather than trust anything cached: another tab may have
	// mutated the cart since the session began.
	cart, err := m.store.Load(snap.cartID)
	if err != nil {
		return View{}, err
	}
	if cart.Empty() {
		return View{}, domain.ErrEmptyCart
	}
	couponState := m.reprice(cart.Items, snap.coupon)
	totals := m.pricing.ComputeTotals(cart.Items, couponState)

	payload := domain.OrderPayload{
		OrderID:     uuid.NewString(),
		CustomerRef: snap.customerRef,
		Contact: domain.Contact{
			Email:     snap.form.Email,
			FirstName: snap.form.FirstName,
			LastName:  snap.form.LastName,
			Phone:     snap.form.Phone,
		},
		Address: domain.Address{
			Street:     snap.form.Address,
			Apartment:  snap.form.Apartment,
			City:       snap.form.City,
			PostalCode: snap.form.PostalCode,
		},
		PaymentMethod: snap.form.PaymentMethod,
		LineItems:     cart.Items,
		Totals:        totals,
		PlacedAt:      time.Now().UTC(),
	}

	sctx, cancel := context.WithTimeout(ctx, m.submitTimeout)
	defer cancel()
	if err := m.submitter.Submit(sctx, payload); err != nil {
		return View{}, &domain.SubmissionError{Err: err}
	}

	// The order is placed; a failed clear must not fail the submission.
	_ = m.store.Clear(snap.cartID)
	m.saveProfile(snap)
	if m.notifier != nil {
		go func(p domain.OrderPayload) {
			nctx, ncancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer ncancel()
			_ = m.notifier.NotifyOrder(nctx, p)
		}(payload)
	}

	return View{
		SessionID: snap.id,
		CartID:    snap.cartID,
		Step:      StepPayment,
		Submitted: true,
		OrderID:   payload.OrderID,
		Form:      snap.form,
		Coupon:    couponState,
		Items:     cart.Items,
		Totals:    totals,
	}, nil
}

func (m *Manager) render(snap session) (View, error) {
	cart, err := m.store.Load(snap.cartID)
	if err != nil {
		return View{}, err
	}
	couponState := m.reprice(cart.Items, snap.coupon)
	return View{
		SessionID: snap.id,
		CartID:    snap.cartID,
		Step:      snap.step,
		Form:      snap.form,
		Coupon:    couponState,
		Items:     cart.Items,
		Totals:    m.pricing.ComputeTotals(cart.Items, couponState),
	}, nil
}

// reprice re-resolves the session coupon against the current cart so the
// discount tracks quantity changes made after the coupon was applied.
func (m *Manager) reprice(items []domain.LineItem, state domain.CouponState) domain.CouponState {
	if state.Code == "" {
		return domain.CouponState{}
	}
	base := m.pricing.ComputeTotals(items, domain.CouponState{})
	outcome := m.coupons.Resolve(state.Code, base)
	if !outcome.Applied {
		return domain.CouponState{}
	}
	return domain.CouponState{Code: outcome.Code, DiscountAmount: outcome.Amount}
}

// prefillForm loads the saved encrypted profile for returning customers.
func (m *Manager) prefillForm(s *session) {
	if s.customerRef == "" || m.profiles == nil {
		return
	}
	ciphertext, ok := m.store.Profile(s.customerRef)
	if !ok {
		return
	}
	plaintext, err := m.profiles.Open(ciphertext)
	if err != nil {
		return
	}
	var form domain.CheckoutForm
	if err := json.Unmarshal([]byte(plaintext), &form); err != nil {
		return
	}
	if !form.PaymentMethod.Valid() {
		form.PaymentMethod = domain.PaymentCard
	}
	s.form = form
}

func (m *Manager) saveProfile(snap session) {
	if !snap.form.SaveInfo || snap.customerRef == "" || m.profiles == nil {
		return
	}
	raw, err := json.Marshal(snap.form)
	if err != nil {
		return
	}
	ciphertext, err := m.profiles.Seal(string(raw))
	if err != nil {
		return
	}
	_ = m.store.SaveProfile(snap.customerRef, ciphertext)
}

func validateStep(step Step, form domain.CheckoutForm) *domain.ValidationError {
	fields := make(map[string]string)
	missing := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			fields[name] = "required"
		}
	}
	switch step {
	case StepContact:
		missing("email", form.Email)
		missing("first_name", form.FirstName)
		missing("last_name", form.LastName)
		missing("phone", form.Phone)
	case StepShipping:
		missing("address", form.Address)
		missing("city", form.City)
		missing("postal_code", form.PostalCode)
	case StepPayment:
		if !form.PaymentMethod.Valid() {
			fields["payment_method"] = "unknown payment method"
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &domain.ValidationError{Fields: fields}
}
