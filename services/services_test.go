package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neoShop/models"
	"neoShop/repository"
	"neoShop/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	st     *storage.MemoryStorage
	users  UserService
	prods  ProductService
	cats   CategoryService
	favs   FavoriteService
	carts  CartService
	orders OrderService
	notifs NotificationService
	dash   DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := storage.NewMemoryStorage()
	pr, err := repository.NewProductRepository(st)
	require.NoError(t, err)
	fr, _ := repository.NewFavoriteRepository(st)
	cr, _ := repository.NewCartRepository(st)
	or, _ := repository.NewOrderRepository(st)
	ur, _ := repository.NewUserRepository(st)
	sr, _ := repository.NewSessionRepository(st)
	nr, _ := repository.NewNotificationRepository(st)
	tokens, err := NewTokenIssuer(testSecret)
	require.NoError(t, err)

	notifs := NewNotificationService(nr)
	carts := NewCartService(pr, cr)
	return &testEnv{
		st:     st,
		users:  NewUserService(ur, sr, notifs, tokens, "admin1"),
		prods:  NewProductService(pr, fr, cr, notifs),
		cats:   NewCategoryService(pr),
		favs:   NewFavoriteService(pr, fr),
		carts:  carts,
		orders: NewOrderService(or, carts, notifs),
		notifs: notifs,
		dash:   NewDashboardService(pr, or, ur),
	}
}

func (e *testEnv) product(t *testing.T, title string, price int64, category string) models.Product {
	t.Helper()
	p, err := e.prods.CreateProduct(context.Background(), "admin-client", models.ProductPayload{
		Title: title, Price: decimal.NewFromInt(price), Category: category,
	})
	require.NoError(t, err)
	return p
}

func registerPayload(email string) models.RegisterPayload {
	return models.RegisterPayload{FirstName: "Neo", LastName: "Anderson", Email: email, Phone: "555-0100", Password: "secret1"}
}

func TestUserService_RegisterLoginRestore(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	resp, err := env.users.Register(ctx, "c1", registerPayload("neo@shop.io"))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.RoleCustomer, resp.User.Role)
	assert.Empty(t, resp.User.Password)

	user, err := env.users.RestoreSession(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "neo@shop.io", user.Email)

	require.NoError(t, env.users.Logout(ctx, "c1"))
	user, err = env.users.RestoreSession(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, user)

	login, err := env.users.Login(ctx, "c2", models.Credentials{Email: "NEO@shop.io", Password: "secret1"})
	require.NoError(t, err)
	me, err := env.users.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.Id, me.Id)
}

func TestUserService_AdminPrefix(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.users.Register(context.Background(), "c1", registerPayload("admin1@neoshop.io"))
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
}

func TestUserService_RegisterRejects(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	bad := registerPayload("neo@shop.io")
	bad.Password = "12345"
	_, err := env.users.Register(ctx, "c1", bad)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = env.users.Register(ctx, "c1", registerPayload("neo@shop.io"))
	require.NoError(t, err)
	_, err = env.users.Register(ctx, "c2", registerPayload("Neo@Shop.io"))
	assert.ErrorIs(t, err, models.ErrNotAllowed)
}

func TestUserService_FailedLoginRecordsSessionError(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.users.Register(ctx, "c0", registerPayload("neo@shop.io"))
	require.NoError(t, err)

	_, err = env.users.Login(ctx, "c1", models.Credentials{Email: "neo@shop.io", Password: "wrong"})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	msg, err := env.users.SessionError(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Invalid email or password", msg)
	user, _ := env.users.RestoreSession(ctx, "c1")
	assert.Nil(t, user)

	_, err = env.users.Login(ctx, "c1", models.Credentials{Email: "neo@shop.io", Password: "secret1"})
	require.NoError(t, err)
	msg, _ = env.users.SessionError(ctx, "c1")
	assert.Empty(t, msg)
}

func TestUserService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	resp, err := env.users.Register(ctx, "c1", registerPayload("neo@shop.io"))
	require.NoError(t, err)
	other, err := env.users.Register(ctx, "c2", registerPayload("trinity@shop.io"))
	require.NoError(t, err)

	first := "Thomas"
	updated, err := env.users.UpdateProfile(ctx, "c1", resp.User, resp.User.Id, models.ProfilePatch{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Thomas Anderson", updated.DisplayName())

	session, _ := env.users.RestoreSession(ctx, "c1")
	require.NotNil(t, session)
	assert.Equal(t, "Thomas", session.FirstName)

	_, err = env.users.UpdateProfile(ctx, "c1", resp.User, other.User.Id, models.ProfilePatch{FirstName: &first})
	assert.ErrorIs(t, err, models.ErrForbidden)

	notes, err := env.notifs.List(ctx, "c1", string(models.NotificationAccount))
	require.NoError(t, err)
	require.NotEmpty(t, notes.Notifications)
	assert.Equal(t, "Profile Updated", notes.Notifications[0].Title)
}

func TestTokenIssuer_RejectsForeignTokens(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret)
	require.NoError(t, err)
	other, _ := NewTokenIssuer("ffffffffffffffffffffffffffffffff")

	token, err := other.Issue(models.User{Id: 7})
	require.NoError(t, err)
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = issuer.Parse("not-a-token")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	token, _ = issuer.Issue(models.User{Id: 7})
	id, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = NewTokenIssuer("")
	assert.Error(t, err)
}

func TestProductService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.prods.CreateProduct(ctx, "c1", models.ProductPayload{Title: "  ", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = env.prods.CreateProduct(ctx, "c1", models.ProductPayload{Title: "Phone", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, models.ErrValidation)

	empty := ""
	p := env.product(t, "Phone", 500, "")
	_, err = env.prods.UpdateProductById(ctx, p.Id, models.ProductPatch{Title: &empty})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = env.prods.GetProductById(ctx, p.Id+1000)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProductService_SearchAndCategories(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.product(t, "zebra lamp", 30, "home")
	env.product(t, "Apple Phone", 900, "tech")
	env.product(t, "banana stand", 10, "")
	env.product(t, "Phone Case", 20, "tech")

	got, err := env.prods.Search(ctx, models.CatalogQuery{Search: "PHONE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple Phone", "Phone Case"}, titles(got))

	got, err = env.prods.Search(ctx, models.CatalogQuery{SortBy: models.SortByName})
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple Phone", "banana stand", "Phone Case", "zebra lamp"}, titles(got))

	got, _ = env.prods.Search(ctx, models.CatalogQuery{Category: "tech", SortBy: models.SortByPriceLow})
	assert.Equal(t, []string{"Phone Case", "Apple Phone"}, titles(got))

	got, _ = env.prods.Search(ctx, models.CatalogQuery{Category: CategoryAll, SortBy: models.SortByPriceHigh})
	assert.Equal(t, "Apple Phone", got[0].Title)
	assert.Equal(t, "banana stand", got[3].Title)

	got, _ = env.prods.Search(ctx, models.CatalogQuery{Category: CategoryUncategorized})
	assert.Equal(t, []string{"banana stand"}, titles(got))

	_, err = env.prods.Search(ctx, models.CatalogQuery{SortBy: "rating"})
	assert.ErrorIs(t, err, models.ErrValidation)

	cats, err := env.cats.GetAllCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"all", "home", "tech", "uncategorized"}, cats)
}

func titles(prods []models.Product) []string {
	out := make([]string, 0, len(prods))
	for _, p := range prods {
		out = append(out, p.Title)
	}
	return out
}

func TestCartService_TotalsAndCount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.product(t, "A", 10, "")
	b := env.product(t, "B", 5, "")

	_, err := env.carts.AddCartItem(ctx, "c1", a.Id)
	require.NoError(t, err)
	line, err := env.carts.AddCartItem(ctx, "c1", a.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)
	_, err = env.carts.AddCartItem(ctx, "c1", b.Id)
	require.NoError(t, err)

	resp, err := env.carts.GetCartItems(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, resp.Lines, 2)
	assert.Equal(t, 3, resp.ItemCount)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(25)), resp.Total.String())

	_, err = env.carts.AddCartItem(ctx, "c1", 12345)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProductService_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.product(t, "Phone", 500, "")
	keep := env.product(t, "Case", 20, "")

	for _, client := range []string{"c1", "c2"} {
		_, err := env.favs.ToggleFavorite(ctx, client, p.Id)
		require.NoError(t, err)
		_, err = env.carts.AddCartItem(ctx, client, p.Id)
		require.NoError(t, err)
		_, err = env.carts.AddCartItem(ctx, client, keep.Id)
		require.NoError(t, err)
	}

	require.NoError(t, env.prods.DeleteProduct(ctx, "c1", p.Id))
	require.NoError(t, env.prods.DeleteProduct(ctx, "c1", p.Id))

	// the caller's collections are purged right away
	raw, err := env.st.Get(ctx, "c1:favorites")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))

	// another client's are purged on their next read
	raw, _ = env.st.Get(ctx, "c2:favorites")
	assert.NotEqual(t, `[]`, string(raw))
	favs, err := env.favs.GetFavorites(ctx, "c2")
	require.NoError(t, err)
	assert.Empty(t, favs)
	raw, _ = env.st.Get(ctx, "c2:favorites")
	assert.JSONEq(t, `[]`, string(raw))

	cart, err := env.carts.GetCartItems(ctx, "c2")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, keep.Id, cart.Lines[0].Id)
}

func TestFavoriteService_ToggleTwice(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.product(t, "Phone", 500, "")

	resp, err := env.favs.ToggleFavorite(ctx, "c1", p.Id)
	require.NoError(t, err)
	assert.True(t, resp.Added)
	assert.Equal(t, []int64{p.Id}, resp.Ids)

	resp, err = env.favs.ToggleFavorite(ctx, "c1", p.Id)
	require.NoError(t, err)
	assert.False(t, resp.Added)
	assert.Empty(t, resp.Ids)

	_, err = env.favs.ToggleFavorite(ctx, "c1", p.Id+99)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestOrderService_CheckoutAndVisibility(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.product(t, "Phone", 500, "")
	neo := models.User{Id: 1, FirstName: "Neo", LastName: "Anderson", Email: "neo@shop.io", Role: models.RoleCustomer}
	trinity := models.User{Id: 2, Name: "Trinity", Email: "trinity@shop.io", Role: models.RoleCustomer}
	admin := models.User{Id: 3, Email: "admin1@shop.io", Role: models.RoleAdmin}

	_, err := env.orders.Checkout(ctx, "c1", neo)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, _ = env.carts.AddCartItem(ctx, "c1", p.Id)
	_, _ = env.carts.AddCartItem(ctx, "c1", p.Id)
	order, err := env.orders.Checkout(ctx, "c1", neo)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, "Neo Anderson", order.CustomerName)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(1000)))

	cart, _ := env.carts.GetCartItems(ctx, "c1")
	assert.Empty(t, cart.Lines)

	_, _ = env.carts.AddCartItem(ctx, "c2", p.Id)
	_, err = env.orders.Checkout(ctx, "c2", trinity)
	require.NoError(t, err)

	mine, err := env.orders.GetOrders(ctx, neo, "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, order.Id, mine[0].Id)

	all, err := env.orders.GetOrders(ctx, admin, models.StatusAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = env.orders.GetOrders(ctx, admin, "shipped")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = env.orders.CancelOrder(ctx, "c2", trinity, order.Id)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.orders.SetOrderStatus(ctx, "admin", order.Id, models.StatusProcessing)
	require.NoError(t, err)
	processing, _ := env.orders.GetOrders(ctx, admin, string(models.StatusProcessing))
	require.Len(t, processing, 1)
	assert.Equal(t, order.Id, processing[0].Id)

	cancelled, err := env.orders.CancelOrder(ctx, "c1", neo, order.Id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	_, err = env.orders.CancelOrder(ctx, "c1", neo, order.Id)
	assert.ErrorIs(t, err, models.ErrNotAllowed)
}

func TestOrderService_ConcurrentCheckoutPlacesOneOrder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.product(t, "Phone", 500, "")
	user := models.User{Id: 1, Email: "neo@shop.io"}
	_, err := env.carts.AddCartItem(ctx, "c1", p.Id)
	require.NoError(t, err)

	const attempts = 2
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.orders.Checkout(ctx, "c1", user)
		}(i)
	}
	wg.Wait()

	var placed, rejected int
	for _, e := range errs {
		if e == nil {
			placed++
		} else if errors.Is(e, models.ErrValidation) {
			rejected++
		}
	}
	assert.Equal(t, 1, placed)
	assert.Equal(t, 1, rejected)

	orders, err := env.orders.GetAllOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	cart, _ := env.carts.GetCartItems(ctx, "c1")
	assert.Empty(t, cart.Lines)
}

func TestOrderService_StatusFilterKeepsOrder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	require.NoError(t, env.st.Set(ctx, "orders", []byte(`[
		{"id":1,"customerEmail":"a@shop.io","items":[],"total":10,"status":"pending","date":"2024-05-01T10:00:00Z"},
		{"id":2,"customerEmail":"b@shop.io","items":[],"total":20,"status":"completed","date":"2024-05-02T10:00:00Z"},
		{"id":3,"customerEmail":"a@shop.io","items":[],"total":30,"status":"pending","date":"2024-05-03T10:00:00Z"}
	]`)))
	admin := models.User{Email: "admin1@shop.io", Role: models.RoleAdmin}

	pending, err := env.orders.GetOrders(ctx, admin, string(models.StatusPending))
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(1), pending[0].Id)
	assert.Equal(t, int64(3), pending[1].Id)

	all, err := env.orders.GetOrders(ctx, admin, models.StatusAll)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	unfiltered, err := env.orders.GetOrders(ctx, admin, "")
	require.NoError(t, err)
	assert.Equal(t, all, unfiltered)
}

func TestOrderService_DeletedProductStaysInHistory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.product(t, "Phone", 500, "")
	user := models.User{Id: 1, Email: "neo@shop.io"}
	_, _ = env.carts.AddCartItem(ctx, "c1", p.Id)
	order, err := env.orders.Checkout(ctx, "c1", user)
	require.NoError(t, err)

	require.NoError(t, env.prods.DeleteProduct(ctx, "c1", p.Id))
	orders, err := env.orders.GetOrders(ctx, user, "")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.Id, orders[0].Id)
	assert.Equal(t, p.Id, orders[0].Items[0].Id)
}

func TestNotificationService_FiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	env.notifs.now = func() time.Time { return clock }

	first, err := env.notifs.Push(ctx, "c1", models.NotificationOrder, "Order Confirmed", "placed")
	require.NoError(t, err)
	clock = clock.Add(time.Minute)
	_, err = env.notifs.Push(ctx, "c1", models.NotificationAlert, "Security Alert", "new login")
	require.NoError(t, err)
	_, err = env.notifs.Push(ctx, "c1", "promo", "x", "y")
	assert.ErrorIs(t, err, models.ErrValidation)

	require.NoError(t, env.notifs.MarkRead(ctx, "c1", first.Id))

	resp, err := env.notifs.List(ctx, "c1", NotificationFilterAll)
	require.NoError(t, err)
	require.Len(t, resp.Notifications, 2)
	assert.Equal(t, "Security Alert", resp.Notifications[0].Title)
	assert.Equal(t, 1, resp.UnreadCount)
	assert.Equal(t, "Just now", resp.Notifications[0].Ago)

	resp, _ = env.notifs.List(ctx, "c1", NotificationFilterUnread)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, models.NotificationAlert, resp.Notifications[0].Type)

	resp, _ = env.notifs.List(ctx, "c1", string(models.NotificationOrder))
	require.Len(t, resp.Notifications, 1)

	_, err = env.notifs.List(ctx, "c1", "bogus")
	assert.ErrorIs(t, err, models.ErrValidation)

	require.NoError(t, env.notifs.MarkAllRead(ctx, "c1"))
	count, err := env.notifs.UnreadCount(ctx, "c1")
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, env.notifs.Delete(ctx, "c1", first.Id))
	resp, _ = env.notifs.List(ctx, "c1", "")
	assert.Len(t, resp.Notifications, 1)
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Just now", TimeAgo(now.Add(-59*time.Minute), now))
	assert.Equal(t, "2h ago", TimeAgo(now.Add(-2*time.Hour-5*time.Minute), now))
	assert.Equal(t, "23h ago", TimeAgo(now.Add(-23*time.Hour), now))
	assert.Equal(t, "3d ago", TimeAgo(now.Add(-72*time.Hour), now))
}

func TestDashboardService_Stats(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	var last models.Product
	for i := 1; i <= 7; i++ {
		last = env.product(t, "P", int64(i), "")
	}
	_, err := env.users.Register(ctx, "c1", registerPayload("neo@shop.io"))
	require.NoError(t, err)
	user := models.User{Email: "neo@shop.io"}
	_, _ = env.carts.AddCartItem(ctx, "c1", last.Id)
	_, err = env.orders.Checkout(ctx, "c1", user)
	require.NoError(t, err)
	_, _ = env.carts.AddCartItem(ctx, "c1", last.Id)
	_, _ = env.carts.AddCartItem(ctx, "c1", last.Id)
	_, err = env.orders.Checkout(ctx, "c1", user)
	require.NoError(t, err)

	stats, err := env.dash.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalProducts)
	assert.Equal(t, 2, stats.TotalOrders)
	assert.Equal(t, 1, stats.TotalUsers)
	assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(21)), stats.TotalRevenue.String())
	require.Len(t, stats.RecentProducts, 5)
	assert.Equal(t, last.Id, stats.RecentProducts[4].Id)
	assert.Len(t, stats.RecentOrders, 2)
}
