package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cloudimart/internal/domain"
	"cloudimart/internal/notification"
	"cloudimart/internal/repository"
)

// In-memory repository doubles shared by the service unit tests.

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	return users, nil
}

func (m *mockUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	for _, user := range m.users {
		if user.ID == id {
			user.Role = role
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (m *mockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	for email, user := range m.users {
		if user.ID == id {
			delete(m.users, email)
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (m *mockUserRepository) Stats(ctx context.Context) (*repository.UserStats, error) {
	return &repository.UserStats{Total: len(m.users)}, nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) addProduct(name string, price decimal.Decimal, stock int) *domain.Product {
	product := &domain.Product{
		ID:            uuid.New(),
		Name:          name,
		Slug:          slugify(name),
		Price:         price,
		StockQuantity: stock,
		IsActive:      true,
	}
	m.products[product.ID] = product
	return product
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	for _, p := range m.products {
		if p.Slug == product.Slug {
			return repository.ErrProductSlugTaken
		}
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, exists := m.products[product.ID]; !exists {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, exists := m.products[id]; !exists {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	products := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		if p.IsActive {
			products = append(products, p)
		}
	}
	return products, nil
}

func (m *mockProductRepository) Featured(ctx context.Context, limit int) ([]*domain.Product, error) {
	var featured []*domain.Product
	for _, p := range m.products {
		if p.Featured && p.StockQuantity > 0 && len(featured) < limit {
			featured = append(featured, p)
		}
	}
	return featured, nil
}

func (m *mockProductRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	for _, p := range m.products {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockProductRepository) DecreaseStock(ctx context.Context, id uuid.UUID, quantity int) error {
	product, exists := m.products[id]
	if !exists {
		return repository.ErrProductNotFound
	}
	if product.StockQuantity < quantity {
		return repository.ErrInsufficientStock
	}
	product.StockQuantity -= quantity
	return nil
}

func (m *mockProductRepository) IncreaseStock(ctx context.Context, id uuid.UUID, quantity int) error {
	product, exists := m.products[id]
	if !exists {
		return repository.ErrProductNotFound
	}
	product.StockQuantity += quantity
	return nil
}

func (m *mockProductRepository) SetStock(ctx context.Context, id uuid.UUID, quantity int) error {
	product, exists := m.products[id]
	if !exists {
		return repository.ErrProductNotFound
	}
	product.StockQuantity = quantity
	return nil
}

func (m *mockProductRepository) Stats(ctx context.Context) (*repository.ProductStats, error) {
	return &repository.ProductStats{Total: len(m.products)}, nil
}

func (m *mockProductRepository) WithTx(tx *sql.Tx) repository.ProductRepository {
	return m
}

type mockCategoryRepository struct {
	categories map[uuid.UUID]*domain.Category
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{categories: make(map[uuid.UUID]*domain.Category)}
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	for _, c := range m.categories {
		if c.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if _, exists := m.categories[category.ID]; !exists {
		return repository.ErrCategoryNotFound
	}
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, exists := m.categories[id]; !exists {
		return repository.ErrCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	categories := make([]*domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		categories = append(categories, c)
	}
	return categories, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	category, exists := m.categories[id]
	if !exists {
		return nil, repository.ErrCategoryNotFound
	}
	return category, nil
}

func (m *mockCategoryRepository) FindBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	for _, c := range m.categories {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (m *mockCategoryRepository) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	for _, c := range m.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

type mockCartRepository struct {
	carts map[uuid.UUID]*domain.Cart
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{carts: make(map[uuid.UUID]*domain.Cart)}
}

func (m *mockCartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	if cart, exists := m.carts[userID]; exists {
		return cart, nil
	}
	cart := &domain.Cart{ID: uuid.New(), UserID: userID, Total: decimal.Zero}
	m.carts[userID] = cart
	return cart, nil
}

func (m *mockCartRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, exists := m.carts[userID]
	if !exists {
		return nil, repository.ErrCartNotFound
	}
	return cart, nil
}

func (m *mockCartRepository) findCart(cartID uuid.UUID) *domain.Cart {
	for _, cart := range m.carts {
		if cart.ID == cartID {
			return cart
		}
	}
	return nil
}

func (m *mockCartRepository) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*domain.CartItem, error) {
	cart := m.findCart(cartID)
	if cart == nil {
		return nil, repository.ErrCartItemNotFound
	}
	for _, item := range cart.Items {
		if item.ProductID == productID {
			return item, nil
		}
	}
	return nil, repository.ErrCartItemNotFound
}

func (m *mockCartRepository) FindItemForUser(ctx context.Context, itemID, userID uuid.UUID) (*domain.CartItem, error) {
	cart, exists := m.carts[userID]
	if !exists {
		return nil, repository.ErrCartItemNotFound
	}
	for _, item := range cart.Items {
		if item.ID == itemID {
			return item, nil
		}
	}
	return nil, repository.ErrCartItemNotFound
}

func (m *mockCartRepository) CreateItem(ctx context.Context, item *domain.CartItem) error {
	cart := m.findCart(item.CartID)
	if cart == nil {
		return repository.ErrCartNotFound
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	cart.Items = append(cart.Items, item)
	return nil
}

func (m *mockCartRepository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	for _, cart := range m.carts {
		for _, item := range cart.Items {
			if item.ID == itemID {
				item.Quantity = quantity
				return nil
			}
		}
	}
	return repository.ErrCartItemNotFound
}

func (m *mockCartRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	for _, cart := range m.carts {
		for i, item := range cart.Items {
			if item.ID == itemID {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
				return nil
			}
		}
	}
	return repository.ErrCartItemNotFound
}

func (m *mockCartRepository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	cart := m.findCart(cartID)
	if cart == nil {
		return repository.ErrCartNotFound
	}
	cart.Items = nil
	return nil
}

func (m *mockCartRepository) UpdateTotal(ctx context.Context, cartID uuid.UUID, total decimal.Decimal) error {
	cart := m.findCart(cartID)
	if cart == nil {
		return repository.ErrCartNotFound
	}
	cart.Total = total
	return nil
}

func (m *mockCartRepository) WithTx(tx *sql.Tx) repository.CartRepository {
	return m
}

type mockOrderRepository struct {
	orders map[string]*domain.Order

	// rejectCreates fails the next N Create calls with ErrOrderIDTaken,
	// simulating a concurrent checkout winning the unique-index race.
	rejectCreates int
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[string]*domain.Order)}
}

// Create stores the order exactly as given, like the real repository:
// callers own ID and timestamp assignment. Duplicate external order IDs
// fail the same way the unique index does.
func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if m.rejectCreates > 0 {
		m.rejectCreates--
		return repository.ErrOrderIDTaken
	}
	if _, exists := m.orders[order.OrderID]; exists {
		return repository.ErrOrderIDTaken
	}
	m.orders[order.OrderID] = order
	return nil
}

func (m *mockOrderRepository) CreateItem(ctx context.Context, item *domain.OrderItem) error {
	for _, order := range m.orders {
		if order.ID == item.OrderID {
			order.Items = append(order.Items, item)
			return nil
		}
	}
	return repository.ErrOrderNotFound
}

func (m *mockOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	order, exists := m.orders[orderID]
	if !exists {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderRepository) FindByOrderIDForUser(ctx context.Context, orderID string, userID uuid.UUID) (*domain.Order, error) {
	order, exists := m.orders[orderID]
	if !exists || order.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	var orders []*domain.Order
	for _, order := range m.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (m *mockOrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	orders := make([]*domain.Order, 0, len(m.orders))
	for _, order := range m.orders {
		orders = append(orders, order)
	}
	return orders, nil
}

func (m *mockOrderRepository) OrderIDExists(ctx context.Context, orderID string) (bool, error) {
	_, exists := m.orders[orderID]
	return exists, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	for _, order := range m.orders {
		if order.ID == id {
			order.Status = status
			return nil
		}
	}
	return repository.ErrOrderNotFound
}

func (m *mockOrderRepository) MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error {
	for _, order := range m.orders {
		if order.ID == id {
			order.Status = domain.OrderStatusDelivered
			order.DeliveredAt = &deliveredAt
			return nil
		}
	}
	return repository.ErrOrderNotFound
}

func (m *mockOrderRepository) Stats(ctx context.Context) (*repository.OrderStats, error) {
	return &repository.OrderStats{Total: len(m.orders)}, nil
}

func (m *mockOrderRepository) Sales(ctx context.Context) (*repository.SalesStats, error) {
	return &repository.SalesStats{}, nil
}

func (m *mockOrderRepository) WithTx(tx *sql.Tx) repository.OrderRepository {
	return m
}

// mockDispatcher records dispatched notifications and signals on a channel
// so tests can wait for the post-commit goroutine.
type mockDispatcher struct {
	mu        sync.Mutex
	placed    []string
	delivered []string
	done      chan string
}

func newMockDispatcher() *mockDispatcher {
	return &mockDispatcher{done: make(chan string, 8)}
}

func (m *mockDispatcher) SendOrderNotifications(ctx context.Context, order *domain.Order, user *domain.User) notification.Result {
	m.mu.Lock()
	m.placed = append(m.placed, order.OrderID)
	m.mu.Unlock()
	m.done <- order.OrderID
	return notification.Result{SMS: true, Email: true}
}

func (m *mockDispatcher) SendDeliveryConfirmation(ctx context.Context, order *domain.Order, user *domain.User) notification.Result {
	m.mu.Lock()
	m.delivered = append(m.delivered, order.OrderID)
	m.mu.Unlock()
	m.done <- order.OrderID
	return notification.Result{SMS: true, Email: true}
}

// memTxDriver backs a *sql.DB whose transactions begin, commit and roll
// back without a database. The in-memory repositories ignore the *sql.Tx
// passed to WithTx, so the service's transactional flows can run end to
// end against the mocks above.
type memTxDriver struct{}

func (memTxDriver) Open(name string) (driver.Conn, error) { return memTxConn{}, nil }

type memTxConn struct{}

func (memTxConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("statements are not supported")
}

func (memTxConn) Close() error              { return nil }
func (memTxConn) Begin() (driver.Tx, error) { return memTx{}, nil }

type memTx struct{}

func (memTx) Commit() error   { return nil }
func (memTx) Rollback() error { return nil }

func init() {
	sql.Register("memtx", memTxDriver{})
}

func newStubDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("memtx", "")
	if err != nil {
		t.Fatalf("failed to open stub database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
