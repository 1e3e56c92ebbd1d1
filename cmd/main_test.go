package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nourish/api"
	"nourish/config"
	"nourish/controllers"
	"nourish/models"
	"nourish/routes"
	"nourish/services"
	"nourish/session"
)

const testDate = "2024-05-01"

func newTestCLI(t *testing.T) (*cli, *session.MemoryStore) {
	t.Helper()
	db, err := controllers.OpenMemoryDB()
	require.NoError(t, err)
	backend, err := controllers.NewServer(db, []byte("cli-secret"), zap.NewNop())
	require.NoError(t, err)
	srv := httptest.NewServer(routes.SetupRouter(backend, zap.NewNop()))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.APIURL = srv.URL + "/api"
	store := session.NewMemoryStore()
	svc := services.New(api.New(cfg.APIURL, store), zap.NewNop())
	t.Cleanup(svc.Bus.Close)

	return &cli{cfg: cfg, log: zap.NewNop(), store: store, svc: svc, in: strings.NewReader("")}, store
}

func run(c *cli, args ...string) (string, error) {
	var buf bytes.Buffer
	c.out = &buf
	root := newRootCmd(c)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func mustRun(t *testing.T, c *cli, args ...string) string {
	t.Helper()
	out, err := run(c, args...)
	require.NoError(t, err, "nourish %s\n%s", strings.Join(args, " "), out)
	return out
}

func catalogID(t *testing.T, c *cli, name string) string {
	t.Helper()
	foods, err := c.svc.Foods.Search(context.Background(), name)
	require.NoError(t, err)
	for _, f := range foods {
		if f.Source() == models.SourceCatalog && strings.EqualFold(f.Name, name) {
			return f.ID.String()
		}
	}
	t.Fatalf("catalog food %q not found", name)
	return ""
}

func TestSessionCommands(t *testing.T) {
	c, store := newTestCLI(t)

	out := mustRun(t, c, "register", "-e", "cli@example.com", "-n", "Cli User", "-p", "password123")
	assert.Contains(t, out, "Welcome, Cli User")

	out = mustRun(t, c, "whoami")
	assert.Contains(t, out, "cli@example.com")
	assert.Contains(t, out, "2000 cal")

	out = mustRun(t, c, "whoami", "--refresh")
	assert.Contains(t, out, "Cli User")

	out = mustRun(t, c, "logout")
	assert.Contains(t, out, "Logged out")
	cred, err := store.Get()
	require.NoError(t, err)
	assert.Nil(t, cred)

	out = mustRun(t, c, "whoami")
	assert.Contains(t, out, "Not logged in")

	out = mustRun(t, c, "login", "-e", "cli@example.com", "-p", "password123")
	assert.Contains(t, out, "Logged in as Cli User")
}

func TestWrongPasswordShowsBackendMessage(t *testing.T) {
	c, _ := newTestCLI(t)
	mustRun(t, c, "register", "-e", "pw@example.com", "-n", "Pass Word", "-p", "password123")
	mustRun(t, c, "logout")

	_, err := run(c, "login", "-e", "pw@example.com", "-p", "not-the-password")
	require.Error(t, err)
	assert.False(t, api.IsSessionExpired(err))
	assert.Equal(t, "Invalid email or password", describe(err))
}

func TestRegisterValidationIsDescribed(t *testing.T) {
	c, _ := newTestCLI(t)

	_, err := run(c, "register", "-e", "nope", "-n", "Al", "-p", "short")
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))

	msg := describe(err)
	assert.Contains(t, msg, "email: Please enter a valid email")
	assert.Contains(t, msg, "name: Name must be at least 3 characters")
	assert.Contains(t, msg, "password: Password must be at least 8 characters")
}

func TestGoalsWarnButUpdate(t *testing.T) {
	c, _ := newTestCLI(t)
	mustRun(t, c, "register", "-e", "goals@example.com", "-n", "Goal Setter", "-p", "password123")

	out := mustRun(t, c, "goals", "--calories", "2500")
	assert.Contains(t, out, "Warning")
	assert.Contains(t, out, "Goals updated")
	assert.Contains(t, out, "2500 cal")

	_, err := run(c, "goals", "--calories", "900")
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))

	out = mustRun(t, c, "password", "--old", "password123", "--new", "newpassword1")
	assert.Contains(t, out, "Password changed")
}

func TestDiaryMealsAndRecipes(t *testing.T) {
	c, _ := newTestCLI(t)
	mustRun(t, c, "register", "-e", "diary@example.com", "-n", "Diary Keeper", "-p", "password123")
	apple := catalogID(t, c, "Apple")

	out := mustRun(t, c, "diary", "add", apple, "-m", "breakfast", "-q", "150", "--date", testDate)
	assert.Contains(t, out, "Apple, 150g breakfast on "+testDate)

	out = mustRun(t, c, "diary", "list", "--date", testDate)
	assert.Contains(t, out, "Breakfast")
	assert.Contains(t, out, "Apple")
	assert.Contains(t, out, "nothing logged")

	out = mustRun(t, c, "summary", "day", "--date", testDate)
	assert.Contains(t, out, "calories")
	assert.Contains(t, out, "78.0 cal")

	out = mustRun(t, c, "progress", "--date", testDate)
	assert.Contains(t, out, "Week of 2024-04-28 to 2024-05-04")

	out = mustRun(t, c, "meals", "save-day", "-m", "breakfast", "-n", "Apple Breakfast", "--date", testDate)
	assert.Contains(t, out, "Apple Breakfast with 1 foods")

	meals, err := c.svc.Meals.List(context.Background())
	require.NoError(t, err)
	require.Len(t, meals, 1)
	mealID := strconv.FormatInt(meals[0].ID, 10)

	out = mustRun(t, c, "meals", "show", mealID, "-p", "50")
	assert.Contains(t, out, "75g")

	out = mustRun(t, c, "meals", "log", mealID, "-m", "lunch", "-p", "50", "--date", testDate)
	assert.Contains(t, out, "Apple, 75g lunch")

	out = mustRun(t, c, "meals", "log", mealID, "-m", "dinner", "-p", "200", "--per-line", "--date", testDate)
	assert.Contains(t, out, "Apple, 300g dinner")

	day, err := c.svc.Entries.ListByDate(context.Background(), testDate)
	require.NoError(t, err)
	assert.Equal(t, 3, day.Count())

	out = mustRun(t, c, "recipes", "share", mealID, "-i", "Slice the apple and enjoy it fresh.")
	assert.Contains(t, out, "Shared recipe")

	out = mustRun(t, c, "recipes", "list")
	assert.Contains(t, out, "Apple Breakfast")

	out = mustRun(t, c, "meals", "rm", mealID)
	assert.Contains(t, out, "Deleted meal #"+mealID)
}

func TestCustomFoodCommands(t *testing.T) {
	c, _ := newTestCLI(t)
	mustRun(t, c, "register", "-e", "custom@example.com", "-n", "Home Cook", "-p", "password123")

	out := mustRun(t, c, "foods", "add-custom", "Protein Bar", "--serving", "60", "--calories", "220", "--protein", "20")
	assert.Contains(t, out, "Protein Bar")

	foods, err := c.svc.Foods.CustomFoods(context.Background())
	require.NoError(t, err)
	require.Len(t, foods, 1)
	id := foods[0].ID.String()

	out = mustRun(t, c, "foods", "custom")
	assert.Contains(t, out, "Protein Bar")
	assert.Contains(t, out, "custom")

	out = mustRun(t, c, "diary", "add", id, "--custom", "-q", "60", "--date", testDate)
	assert.Contains(t, out, "Protein Bar, 60g snacks")

	out = mustRun(t, c, "foods", "rm-custom", id)
	assert.Contains(t, out, "Deleted custom food #"+id)
}

func TestExpiredSessionEndsCommand(t *testing.T) {
	c, store := newTestCLI(t)
	require.NoError(t, store.Set("not-a-token", "also-not-a-token"))

	_, err := run(c, "diary", "list", "--date", testDate)
	require.Error(t, err)
	assert.True(t, api.IsSessionExpired(err))

	cred, err := store.Get()
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestBadMealTypeIsRejectedLocally(t *testing.T) {
	c, _ := newTestCLI(t)
	_, err := run(c, "diary", "add", "1", "-m", "brunch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown meal type")
}
