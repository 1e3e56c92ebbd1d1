package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nourish/api"
	"nourish/controllers"
	"nourish/models"
	"nourish/routes"
	"nourish/services"
	"nourish/session"
)

type harness struct {
	srv     *httptest.Server
	backend *controllers.Server
	store   *session.MemoryStore
	client  *api.Client
	svc     *services.Services
	expired atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := controllers.OpenMemoryDB()
	require.NoError(t, err)
	backend, err := controllers.NewServer(db, []byte("test-secret"), zap.NewNop())
	require.NoError(t, err)

	h := &harness{backend: backend, store: session.NewMemoryStore()}
	h.srv = httptest.NewServer(routes.SetupRouter(backend, zap.NewNop()))
	t.Cleanup(h.srv.Close)

	h.client = api.New(h.srv.URL+"/api", h.store,
		api.OnSessionExpired(func() { h.expired.Add(1) }))
	h.svc = services.New(h.client, zap.NewNop())
	t.Cleanup(h.svc.Bus.Close)
	return h
}

func (h *harness) register(t *testing.T, email string) *models.AuthResponse {
	t.Helper()
	resp, err := h.svc.Auth.Register(context.Background(), models.RegisterRequest{
		Email:           email,
		Name:            "Test User",
		Password:        "password123",
		ConfirmPassword: "password123",
	})
	require.NoError(t, err)
	return resp
}

func (h *harness) catalogFood(t *testing.T, name string) int64 {
	t.Helper()
	foods, err := h.svc.Foods.Search(context.Background(), name)
	require.NoError(t, err)
	for _, f := range foods {
		if f.Source() == models.SourceCatalog && strings.EqualFold(f.Name, name) {
			id, ok := f.ID.Int()
			require.True(t, ok)
			return id
		}
	}
	t.Fatalf("catalog food %q not found", name)
	return 0
}

const day = "2024-05-01"

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp := h.register(t, "ada@example.com")
	assert.NotEmpty(t, resp.AccessToken)
	assert.True(t, h.svc.Auth.IsAuthenticated())
	assert.Equal(t, models.DefaultGoals, resp.User.Goals)

	require.NoError(t, h.svc.Auth.Logout())
	assert.False(t, h.svc.Auth.IsAuthenticated())

	login, err := h.svc.Auth.Login(ctx, "ada@example.com", "password123")
	require.NoError(t, err)
	cred, _ := h.store.Get()
	require.NotNil(t, cred)
	assert.Equal(t, login.AccessToken, cred.AccessToken)
	assert.NotEmpty(t, cred.RefreshToken)

	claims, err := h.svc.Auth.Claims()
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)

	// The stored token is attached to protected calls.
	profile, err := h.svc.Users.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", profile.Email)

	oldRefresh := cred.RefreshToken
	token, err := h.svc.Auth.Refresh(ctx)
	require.NoError(t, err)
	cred, _ = h.store.Get()
	assert.Equal(t, token, cred.AccessToken)
	assert.Equal(t, oldRefresh, cred.RefreshToken, "refresh keeps the refresh token")
}

func TestWrongPasswordIsNotSessionExpiry(t *testing.T) {
	h := newHarness(t)
	h.register(t, "pw@example.com")
	require.NoError(t, h.svc.Auth.Logout())

	_, err := h.svc.Auth.Login(context.Background(), "pw@example.com", "wrong-password")
	require.Error(t, err)
	assert.False(t, api.IsSessionExpired(err))
	assert.Equal(t, api.KindAuth, api.KindOf(err))
	assert.Equal(t, "Invalid email or password", err.Error())
	assert.False(t, h.svc.Auth.IsAuthenticated())
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Auth.Register(context.Background(), models.RegisterRequest{
		Email:           "not-an-email",
		Name:            "Al",
		Password:        "short",
		ConfirmPassword: "different",
	})
	require.True(t, api.IsValidation(err))
	e, _ := api.AsError(err)
	assert.ElementsMatch(t, []string{"email", "name", "password", "confirm_password"}, e.FieldErrors.Fields())
	assert.Zero(t, e.StatusCode, "rejected before any request")

	h.register(t, "dup@example.com")
	_, err = h.svc.Auth.Register(context.Background(), models.RegisterRequest{
		Email: "dup@example.com", Name: "Someone", Password: "password123", ConfirmPassword: "password123",
	})
	require.Error(t, err)
	assert.Equal(t, "Email already registered", err.Error())
}

func TestRefreshFailureEndsSession(t *testing.T) {
	h := newHarness(t)
	h.register(t, "r@example.com")
	require.NoError(t, h.store.Set("bogus-access", "bogus-refresh"))

	_, err := h.svc.Auth.Refresh(context.Background())
	require.Error(t, err)
	assert.False(t, h.svc.Auth.IsAuthenticated())
}

func TestUnauthorizedClearsSessionOnce(t *testing.T) {
	h := newHarness(t)
	h.register(t, "x@example.com")
	require.NoError(t, h.store.Set("expired-or-forged", ""))

	_, err := h.svc.Entries.ListByDate(context.Background(), day)
	require.Error(t, err)
	assert.True(t, api.IsSessionExpired(err))
	assert.Equal(t, int32(1), h.expired.Load())
	assert.False(t, h.svc.Auth.IsAuthenticated())
}

func TestEntriesAndSummary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "e@example.com")

	events, unsubscribe := h.svc.Bus.Subscribe(services.TopicEntries)
	defer unsubscribe()

	apple := h.catalogFood(t, "Apple")
	entry, err := h.svc.Entries.Create(ctx, models.EntryRequest{
		FoodID: &apple, MealType: models.Breakfast, Quantity: 150, Date: day,
	})
	require.NoError(t, err)
	assert.Equal(t, "Apple", entry.Name)
	assert.InDelta(t, 78, entry.Calories, 0.01, "catalog macros are per 100 g")

	select {
	case e := <-events:
		assert.Equal(t, services.ActionCreated, e.Action)
		assert.Equal(t, entry.ID, e.ID)
		assert.Equal(t, day, e.Date)
	case <-time.After(time.Second):
		t.Fatal("no refresh event after create")
	}

	dayEntries, err := h.svc.Entries.ListByDate(ctx, day)
	require.NoError(t, err)
	assert.Len(t, dayEntries.Meal(models.Breakfast), 1)
	assert.Empty(t, dayEntries.Meal(models.Dinner))
	assert.Contains(t, dayEntries, models.Snacks)

	qty := 300.0
	updated, err := h.svc.Entries.Update(ctx, entry.ID, models.EntryUpdate{Quantity: &qty, MealType: models.Snacks})
	require.NoError(t, err)
	assert.InDelta(t, 156, updated.Calories, 0.01)
	assert.Equal(t, models.Snacks, updated.MealType)

	sum, err := h.svc.Entries.DailySummary(ctx, day)
	require.NoError(t, err)
	cal := sum.Nutrients[models.NutrientCalories]
	assert.InDelta(t, 156, cal.Consumed, 0.01)
	assert.Equal(t, 2000.0, cal.Goal)
	assert.InDelta(t, 7.8, cal.Percentage, 0.01)

	week, err := h.svc.Entries.WeeklySummary(ctx, day)
	require.NoError(t, err)
	assert.Len(t, week.Days, 7)
	assert.InDelta(t, 156.0/7, week.Averages[models.NutrientCalories], 0.1)

	require.NoError(t, h.svc.Entries.Delete(ctx, entry.ID))
	err = h.svc.Entries.Delete(ctx, entry.ID)
	assert.True(t, api.IsNotFound(err))
}

func TestEntryFoodReferenceInvariant(t *testing.T) {
	h := newHarness(t)
	h.register(t, "inv@example.com")
	one, two := int64(1), int64(2)

	for name, req := range map[string]models.EntryRequest{
		"neither": {MealType: models.Lunch, Quantity: 100, Date: day},
		"both":    {FoodID: &one, CustomFoodID: &two, MealType: models.Lunch, Quantity: 100, Date: day},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := h.svc.Entries.Create(context.Background(), req)
			require.True(t, api.IsValidation(err))
			e, _ := api.AsError(err)
			assert.NotEmpty(t, e.FieldErrors["_schema"])
		})
	}
}

func TestFoods(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "f@example.com")

	results, err := h.svc.Foods.Search(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, results, "single character query is not sent")

	food, err := h.svc.Foods.CreateCustomFood(ctx, models.CustomFoodRequest{
		Name: "Protein Bar", ServingSize: 60, Calories: 240, Protein: 20, Carbs: 25, Fat: 8, Fiber: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SourceCustom, food.Source())

	ref, err := h.svc.Foods.ResolveForEntry(ctx, *food)
	require.NoError(t, err)
	require.NotNil(t, ref.CustomFoodID)
	entry, err := h.svc.Entries.Create(ctx, models.EntryRequest{
		CustomFoodID: ref.CustomFoodID, MealType: models.Snacks, Quantity: 30, Date: day,
	})
	require.NoError(t, err)
	assert.InDelta(t, 120, entry.Calories, 0.01, "custom macros are per serving")

	hits, err := h.svc.Foods.Search(ctx, "apple")
	require.NoError(t, err)
	var external *models.Food
	for i := range hits {
		if hits[i].Source() == models.SourceExternal {
			external = &hits[i]
			break
		}
	}
	require.NotNil(t, external)
	ref, err = h.svc.Foods.ResolveForEntry(ctx, *external)
	require.NoError(t, err)
	require.NotNil(t, ref.FoodID)
	again, err := h.svc.Foods.ResolveForEntry(ctx, *external)
	require.NoError(t, err)
	assert.Equal(t, *ref.FoodID, *again.FoodID, "materialized once")

	nut, err := h.svc.Foods.Nutrition(ctx, *ref.FoodID, 200)
	require.NoError(t, err)
	assert.InDelta(t, external.Calories*2, nut.Calories, 0.1)

	custom, err := h.svc.Foods.CustomFoods(ctx)
	require.NoError(t, err)
	require.Len(t, custom, 1)

	id, _ := food.ID.Int()
	// Another user cannot delete it.
	require.NoError(t, h.svc.Auth.Logout())
	h.register(t, "other@example.com")
	err = h.svc.Foods.DeleteCustomFood(ctx, id)
	assert.True(t, api.IsNotFound(err))

	_, err = h.svc.Auth.Login(ctx, "f@example.com", "password123")
	require.NoError(t, err)
	custom, err = h.svc.Foods.CustomFoods(ctx)
	require.NoError(t, err)
	require.Len(t, custom, 1, "rejected delete leaves the owner's food")

	require.NoError(t, h.svc.Foods.DeleteCustomFood(ctx, id))
	custom, err = h.svc.Foods.CustomFoods(ctx)
	require.NoError(t, err)
	assert.Empty(t, custom)
}

func TestShortSearchSendsNoRequest(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"id":"1","name":"Apple"}]}`))
	}))
	defer srv.Close()
	svc := services.New(api.New(srv.URL+"/api", session.NewMemoryStore()), zap.NewNop())
	defer svc.Bus.Close()
	ctx := context.Background()

	for _, q := range []string{"", "a", " b ", "   "} {
		results, err := svc.Foods.Search(ctx, q)
		require.NoError(t, err)
		assert.Nil(t, results, "query %q", q)
	}
	assert.Zero(t, requests.Load())

	results, err := svc.Foods.Search(ctx, "ap")
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, int32(1), requests.Load())
}

func TestSavedMeals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "m@example.com")

	oats := h.catalogFood(t, "Rolled Oats")
	milk := h.catalogFood(t, "Whole Milk")
	meal, err := h.svc.Meals.Create(ctx, models.SavedMealRequest{
		Name: "Porridge",
		Foods: []models.MealFood{
			{FoodID: &oats, Quantity: 50},
			{FoodID: &milk, Quantity: 200},
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 189.5+122, meal.TotalCalories, 0.1)

	entries, err := h.svc.Meals.AddToDay(ctx, meal.ID, day, models.Breakfast, 0.5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.InDelta(t, 25, entries[0].Quantity, 0.001)

	logged, err := h.svc.Meals.LogScaled(ctx, *meal, 200, day, models.Dinner)
	require.NoError(t, err)
	require.Len(t, logged, 2)
	var cals float64
	for _, e := range logged {
		cals += e.Calories
	}
	assert.InDelta(t, 2*(189.5+122), cals, 0.5)

	tmpl, err := h.svc.Meals.SaveDayAsTemplate(ctx, day, models.Dinner, "Big porridge", "")
	require.NoError(t, err)
	assert.Len(t, tmpl.Foods, 2)

	_, err = h.svc.Meals.SaveDayAsTemplate(ctx, day, models.Lunch, "Nothing", "")
	assert.True(t, api.IsValidation(err))

	meals, err := h.svc.Meals.List(ctx)
	require.NoError(t, err)
	assert.Len(t, meals, 2)

	updated, err := h.svc.Meals.Update(ctx, meal.ID, models.SavedMealRequest{
		Name:  "Small porridge",
		Foods: []models.MealFood{{FoodID: &oats, Quantity: 40}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Small porridge", updated.Name)

	require.NoError(t, h.svc.Meals.Delete(ctx, meal.ID))
	_, err = h.svc.Meals.Find(ctx, meal.ID)
	assert.True(t, api.IsNotFound(err))
}

func TestCommunity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "c@example.com")
	egg := h.catalogFood(t, "Egg")

	req := models.ShareRecipeRequest{Title: "Eggs", Instructions: "short", Foods: []models.MealFood{{FoodID: &egg, Quantity: 100}}}
	_, err := h.svc.Community.Share(ctx, req, &services.Image{Filename: "eggs.bmp", Size: 10, Reader: strings.NewReader("x")})
	require.True(t, api.IsValidation(err))
	e, _ := api.AsError(err)
	assert.ElementsMatch(t, []string{"instructions", "image"}, e.FieldErrors.Fields())

	req.Instructions = "Whisk and cook gently."
	recipe, err := h.svc.Community.Share(ctx, req, &services.Image{Filename: "eggs.png", Size: 4, Reader: strings.NewReader("\x89PNG")})
	require.NoError(t, err)
	assert.True(t, recipe.HasImage())
	assert.Equal(t, h.srv.URL+"/api/community/recipes/"+itoa(recipe.ID)+"/image", h.svc.Community.ImageURL(recipe.ID))

	page, err := h.svc.Community.List(ctx, 1, "egg")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.False(t, page.HasNext())

	got, err := h.svc.Community.Get(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Eggs", got.Title)

	imported, err := h.svc.Community.Import(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Eggs", imported.Name)

	draft, err := h.svc.Community.ShareDraft(ctx, imported.ID)
	require.NoError(t, err)
	assert.Equal(t, "Eggs", draft.Title)

	require.NoError(t, h.svc.Auth.Logout())
	h.register(t, "other@example.com")
	assert.True(t, api.IsNotFound(h.svc.Community.Delete(ctx, recipe.ID)))
}

func TestGoalsAndPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "g@example.com")

	_, _, err := h.svc.Users.UpdateGoals(ctx, models.Goals{DailyCalories: 900})
	require.True(t, api.IsValidation(err))

	user, warning, err := h.svc.Users.UpdateGoals(ctx, models.Goals{
		DailyCalories: 2500, DailyProtein: 50, DailyCarbs: 100, DailyFat: 30, DailyFiber: 30,
	})
	require.NoError(t, err)
	require.NotNil(t, warning, "macros imply 870 cal")
	assert.Equal(t, 2500.0, user.DailyCalories)

	err = h.svc.Users.ChangePassword(ctx, "wrong-password", "newpassword1")
	require.True(t, api.IsValidation(err))
	require.NoError(t, h.svc.Users.ChangePassword(ctx, "password123", "newpassword1"))

	require.NoError(t, h.svc.Auth.Logout())
	_, err = h.svc.Auth.Login(ctx, "g@example.com", "newpassword1")
	require.NoError(t, err)

	updated, err := h.svc.Users.UpdateProfile(ctx, models.ProfileUpdate{Name: "Grace"})
	require.NoError(t, err)
	assert.Equal(t, "Grace", updated.DisplayName())
}

func TestLoadDayAndWeek(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "d@example.com")
	banana := h.catalogFood(t, "Banana")

	_, err := h.svc.Entries.Create(ctx, models.EntryRequest{FoodID: &banana, MealType: models.Lunch, Quantity: 100, Date: day})
	require.NoError(t, err)

	view, err := h.svc.Days.LoadDay(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Entries.Count())
	assert.InDelta(t, 89, view.Summary.Nutrients[models.NutrientCalories].Consumed, 0.01)

	d, _ := models.ParseDate(day)
	week, err := h.svc.Days.LoadWeek(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, week.Start.Weekday())
	assert.Len(t, week.Days, 7)
	assert.Equal(t, 100, week.Compliance())
	assert.InDelta(t, 89, week.Total(models.NutrientCalories), 0.01)

	require.NoError(t, h.store.Set("forged", ""))
	_, err = h.svc.Days.LoadWeek(ctx, d)
	assert.True(t, api.IsSessionExpired(err))
}

func TestLiveFeedRepublishesServerEvents(t *testing.T) {
	h := newHarness(t)
	h.register(t, "live@example.com")

	events, unsubscribe := h.svc.Bus.Subscribe(services.TopicFoods)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.svc.Live.Run(ctx) }()

	claims, err := h.svc.Auth.Claims()
	require.NoError(t, err)
	uid, _ := claims.UserID()
	require.Eventually(t, func() bool { return h.backend.Hub.Connected(uid) == 1 }, 2*time.Second, 10*time.Millisecond)

	// A change made elsewhere arrives through the socket.
	h.backend.Hub.Broadcast(uid, services.Event{Topic: services.TopicFoods, Action: services.ActionDeleted, ID: 42})
	select {
	case e := <-events:
		assert.True(t, e.Remote)
		assert.Equal(t, int64(42), e.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("live event not republished")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestLiveFeedUnauthorizedEndsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := session.NewMemoryStore()
	require.NoError(t, store.Set("stale", "r"))
	var hooks atomic.Int32
	client := api.New(srv.URL+"/api", store, api.OnSessionExpired(func() { hooks.Add(1) }))
	svc := services.New(client, zap.NewNop())
	defer svc.Bus.Close()

	err := svc.Live.Run(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsSessionExpired(err))
	assert.Equal(t, int32(1), hooks.Load())
	cred, err := store.Get()
	require.NoError(t, err)
	assert.Nil(t, cred)
}
