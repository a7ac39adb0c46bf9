package payment

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/starspay/server/internal/module/notify"
	"github.com/starspay/server/internal/module/payment/telegram"
	"github.com/starspay/server/internal/module/tenant"
	"github.com/starspay/server/internal/shared/metrics"
)

// MockRepository implements Repository in memory. CompleteIfPending holds the
// same atomicity contract as the real store: one winner per record.
type MockRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*Payment

	createErr   error
	getErr      error
	completeErr error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{byID: make(map[int64]*Payment)}
}

func (m *MockRepository) Create(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	p.ID = m.nextID
	p.Status = StatusPending
	if p.Provider == "" {
		p.Provider = ProviderStars
	}
	p.ExternalPaymentID = ExternalID(p.ID)
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *MockRepository) GetByID(_ context.Context, id int64) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockRepository) GetByExternalID(_ context.Context, externalID string) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, p := range m.byID {
		if p.ExternalPaymentID == externalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPaymentNotFound
}

func (m *MockRepository) SetTenant(_ context.Context, paymentID, tenantID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[paymentID]; ok {
		id := tenantID
		p.TenantID = &id
	}
	return nil
}

func (m *MockRepository) CompleteIfPending(_ context.Context, paymentID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completeErr != nil {
		return false, m.completeErr
	}
	p, ok := m.byID[paymentID]
	if !ok || p.Status != StatusPending {
		return false, nil
	}
	p.Status = StatusCompleted
	return true, nil
}

func (m *MockRepository) SetUSDBreakdown(_ context.Context, paymentID int64, net, gross, fee float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[paymentID]; ok {
		p.NetAmountUSD = &net
		p.GrossAmountUSD = &gross
		p.FeeAmountUSD = &fee
	}
	return nil
}

// seed inserts a payment directly, bypassing Create.
func (m *MockRepository) seed(p *Payment) *Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		m.nextID++
		p.ID = m.nextID
	}
	if p.ExternalPaymentID == "" {
		p.ExternalPaymentID = ExternalID(p.ID)
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	if p.Provider == "" {
		p.Provider = ProviderStars
	}
	m.byID[p.ID] = p
	return p
}

// MockLedger implements credit.Ledger, counting every credit application.
type MockLedger struct {
	mu                sync.Mutex
	balances          map[int64]int64
	creditCalls       int
	referralBonuses   map[int64]int64
	referralCompleted []int64
	lang              string

	addErr error
}

func NewMockLedger() *MockLedger {
	return &MockLedger{
		balances:        make(map[int64]int64),
		referralBonuses: make(map[int64]int64),
		lang:            "en",
	}
}

func (m *MockLedger) AddCredits(_ context.Context, userID, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.creditCalls++
	m.balances[userID] += amount
	return nil
}

func (m *MockLedger) AddReferralBonus(_ context.Context, ownerID, paymentAmount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.referralBonuses[ownerID] += paymentAmount
	return nil
}

func (m *MockLedger) MarkReferralCompleted(_ context.Context, referredID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.referralCompleted = append(m.referralCompleted, referredID)
	return nil
}

func (m *MockLedger) UserLang(context.Context, int64) string {
	return m.lang
}

func (m *MockLedger) balance(userID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID]
}

type sentMessage struct {
	chatID int64
	text   string
	markup interface{}
}

type preCheckoutAnswer struct {
	queryID string
	ok      bool
	message string
}

// MockClient implements telegram.Client, recording outbound calls.
type MockClient struct {
	mu       sync.Mutex
	username string
	link     string
	linkErr  error

	invoices    []telegram.InvoiceRequest
	sent        []sentMessage
	deleted     []int
	answers     []preCheckoutAnswer
	callbacks   []string
	webhookURL  string
	webhookErr  error
	deletedHook bool
}

func NewMockClient() *MockClient {
	return &MockClient{username: "test_bot", link: "https://t.me/$invoice"}
}

func (m *MockClient) Username() string { return m.username }

func (m *MockClient) CreateInvoiceLink(req telegram.InvoiceRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.linkErr != nil {
		return "", m.linkErr
	}
	m.invoices = append(m.invoices, req)
	return m.link, nil
}

func (m *MockClient) AnswerPreCheckout(queryID string, ok bool, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, preCheckoutAnswer{queryID: queryID, ok: ok, message: errorMessage})
	return nil
}

func (m *MockClient) SetWebhook(url string, _ []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.webhookErr != nil {
		return m.webhookErr
	}
	m.webhookURL = url
	return nil
}

func (m *MockClient) WebhookURL() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.webhookURL, nil
}

func (m *MockClient) DeleteWebhook() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedHook = true
	return nil
}

func (m *MockClient) SendMessage(chatID int64, text string, markup interface{}) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text, markup: markup})
	return len(m.sent), nil
}

func (m *MockClient) DeleteMessage(_ int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *MockClient) AnswerCallback(callbackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, callbackID)
	return nil
}

func (m *MockClient) sentMessages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *MockClient) preCheckoutAnswers() []preCheckoutAnswer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]preCheckoutAnswer, len(m.answers))
	copy(out, m.answers)
	return out
}

// MockFactory hands the same client out for every token.
type MockFactory struct {
	client telegram.Client
	err    error
}

func (f *MockFactory) ClientFor(string) (telegram.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

// MockTenantRepository implements tenant.Repository over a fixed slice.
type MockTenantRepository struct {
	tokens []*tenant.BotToken
	err    error
}

func (m *MockTenantRepository) GetByID(_ context.Context, id int64) (*tenant.BotToken, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, t := range m.tokens {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (m *MockTenantRepository) List(context.Context) ([]*tenant.BotToken, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tokens, nil
}

func (m *MockTenantRepository) ListActive(context.Context) ([]*tenant.BotToken, error) {
	if m.err != nil {
		return nil, m.err
	}
	var active []*tenant.BotToken
	for _, t := range m.tokens {
		if t.IsActive {
			active = append(active, t)
		}
	}
	return active, nil
}

// testEnv bundles a fully wired service with its doubles.
type testEnv struct {
	repo    *MockRepository
	ledger  *MockLedger
	client  *MockClient
	tenants *tenant.Registry
	metrics *metrics.Metrics
	service *Service
	router  *Router
}

func newTestEnv(tokens ...*tenant.BotToken) *testEnv {
	if len(tokens) == 0 {
		tokens = []*tenant.BotToken{{ID: 1, Token: "token-1", IsActive: true}}
	}
	log := zap.NewNop()
	repo := NewMockRepository()
	ledger := NewMockLedger()
	client := NewMockClient()
	factory := &MockFactory{client: client}
	registry := tenant.NewRegistry(&MockTenantRepository{tokens: tokens}, nil, 0, log)
	m := metrics.NewWithRegistry("test", prometheus.NewRegistry())

	svc := NewService(repo, registry, ledger, factory, notify.Nop{}, m, 100000, log)
	return &testEnv{
		repo:    repo,
		ledger:  ledger,
		client:  client,
		tenants: registry,
		metrics: m,
		service: svc,
		router:  NewRouter(svc, registry, factory, m, log),
	}
}
