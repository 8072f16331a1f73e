package upstream_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lunchscraper/internal/config"
	"lunchscraper/internal/schedule"
	"lunchscraper/internal/services"
	"lunchscraper/internal/testsupport"
	"lunchscraper/internal/upstream"
)

func newClient(t *testing.T, opts ...upstream.Option) (*upstream.Client, *testsupport.FakeUpstream, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeUpstream(t, cfg.Upstream.Login, cfg.Upstream.Password)
	cfg.Upstream.BaseURL = fake.URL()
	client, err := upstream.New(cfg, opts...)
	require.NoError(t, err)
	return client, fake, cfg
}

func testDate(t *testing.T) schedule.TargetDate {
	t.Helper()
	date, err := schedule.ParseTargetDate("2024-03-15", time.UTC)
	require.NoError(t, err)
	return date
}

func TestFetchRestaurantsSendsParamsAndAuth(t *testing.T) {
	client, fake, _ := newClient(t)
	fake.SetRestaurants("11:30", `[{"id": 42, "name": "Bistro", "cuisine": "french"}]`)

	restaurants, err := client.FetchRestaurants(context.Background(), testDate(t), "11:30")
	require.NoError(t, err)
	require.Len(t, restaurants, 1)
	require.Equal(t, "42", restaurants[0].ID)
	require.Equal(t, "Bistro", restaurants[0].Name)
	require.JSONEq(t, `{"id": 42, "name": "Bistro", "cuisine": "french"}`, string(restaurants[0].Raw()))

	reqs := fake.RequestsTo(testsupport.RestaurantsPath)
	require.Len(t, reqs, 1)
	require.True(t, reqs[0].Authorized, "expected basic auth credentials")
	require.Equal(t, "2024-03-15", reqs[0].Query.Get("day"))
	require.Equal(t, "11:30", reqs[0].Query.Get("hour"))
	require.Equal(t, "1203", reqs[0].Query.Get("delivery_place_id"))
}

func TestFetchRestaurantsEmptyBodies(t *testing.T) {
	client, fake, _ := newClient(t)
	fake.SetRestaurants("08:00", `[]`)
	fake.SetRestaurants("09:00", `null`)

	for _, slot := range []schedule.TimeSlot{"08:00", "09:00"} {
		restaurants, err := client.FetchRestaurants(context.Background(), testDate(t), slot)
		require.NoError(t, err)
		require.Empty(t, restaurants)
	}
}

func TestFetchRestaurantsNonSuccessStatus(t *testing.T) {
	client, fake, _ := newClient(t)
	fake.FailRestaurants("12:30", http.StatusBadGateway)

	_, err := client.FetchRestaurants(context.Background(), testDate(t), "12:30")
	require.Error(t, err)
	require.True(t, errors.Is(err, services.ErrExternalTool), "expected external marker, got %v", err)

	var statusErr *upstream.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadGateway, statusErr.Code)
	require.Contains(t, statusErr.Body, "upstream failure")
}

func TestFetchRestaurantsRejectsNonArray(t *testing.T) {
	client, fake, _ := newClient(t)
	fake.SetRestaurants("11:00", `{"restaurants": []}`)

	_, err := client.FetchRestaurants(context.Background(), testDate(t), "11:00")
	require.ErrorIs(t, err, services.ErrExternalTool)
}

func TestWrongCredentialsFail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeUpstream(t, "someone-else", "other")
	cfg.Upstream.BaseURL = fake.URL()
	client, err := upstream.New(cfg)
	require.NoError(t, err)

	_, err = client.FetchRestaurants(context.Background(), testDate(t), "11:30")
	var statusErr *upstream.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusUnauthorized, statusErr.Code)
}

func TestFetchMenusCombinesDateAndSlot(t *testing.T) {
	client, fake, _ := newClient(t)
	fake.SetMenu("42", `{"menu_items": [{"name": "Soup"}]}`)
	fake.SetMenu("7", `[{"name": "Salad"}]`)

	restaurants := []upstream.Restaurant{
		upstream.NewRestaurant("42", "Bistro"),
		upstream.NewRestaurant("", "Nameless"),
		upstream.NewRestaurant("7", "Greens"),
	}
	menus, err := client.FetchMenus(context.Background(), testDate(t), "11:30", restaurants)
	require.NoError(t, err)
	require.Len(t, menus, 2)
	require.Equal(t, "42", menus[0].RestaurantID)
	require.Equal(t, "Bistro", menus[0].RestaurantName)
	require.JSONEq(t, `{"menu_items": [{"name": "Soup"}]}`, string(menus[0].MenuData))
	require.Equal(t, "7", menus[1].RestaurantID)

	reqs := fake.RequestsTo(testsupport.MenuItemsPath)
	require.Len(t, reqs, 2, "restaurant without id must not be requested")
	require.Equal(t, "2024-03-15 11:30", reqs[0].Query.Get("day"))
	require.Equal(t, "42", reqs[0].Query.Get(testsupport.MenuFilterParam))
	require.Equal(t, "1203", reqs[0].Query.Get("delivery_place_id"))
}

func TestFetchMenusEmptyInput(t *testing.T) {
	client, fake, _ := newClient(t)
	menus, err := client.FetchMenus(context.Background(), testDate(t), "11:30", nil)
	require.NoError(t, err)
	require.Empty(t, menus)
	require.Empty(t, fake.Requests())
}

func TestFetchMenusAbortsOnFirstFailure(t *testing.T) {
	client, fake, _ := newClient(t)
	fake.FailMenu("2", http.StatusInternalServerError)

	restaurants := []upstream.Restaurant{
		upstream.NewRestaurant("1", "First"),
		upstream.NewRestaurant("2", "Second"),
		upstream.NewRestaurant("3", "Third"),
	}
	menus, err := client.FetchMenus(context.Background(), testDate(t), "13:30", restaurants)
	require.ErrorIs(t, err, services.ErrExternalTool)
	require.Nil(t, menus)

	reqs := fake.RequestsTo(testsupport.MenuItemsPath)
	require.Len(t, reqs, 2, "third restaurant must not be requested")
}

func TestFetchMenuMissingID(t *testing.T) {
	client, _, _ := newClient(t)
	_, err := client.FetchMenu(context.Background(), testDate(t), "11:30", upstream.NewRestaurant("", "x"))
	require.ErrorIs(t, err, upstream.ErrMissingID)
}

func TestLimiterSpacesRequests(t *testing.T) {
	interval := 40 * time.Millisecond
	client, fake, _ := newClient(t, upstream.WithLimiter(upstream.NewLimiter(interval)))

	restaurants := []upstream.Restaurant{
		upstream.NewRestaurant("1", "a"),
		upstream.NewRestaurant("2", "b"),
		upstream.NewRestaurant("3", "c"),
	}
	started := time.Now()
	_, err := client.FetchMenus(context.Background(), testDate(t), "11:30", restaurants)
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(started), 2*interval-5*time.Millisecond)
	require.Len(t, fake.Requests(), 3)
}

func TestLimiterHonoursCancellation(t *testing.T) {
	client, fake, _ := newClient(t, upstream.WithLimiter(upstream.NewLimiter(time.Hour)))
	ctx, cancel := context.WithCancel(context.Background())

	_, err := client.FetchRestaurants(ctx, testDate(t), "08:00")
	require.NoError(t, err)

	cancel()
	_, err = client.FetchRestaurants(ctx, testDate(t), "09:00")
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, fake.Requests(), 1)
}

func TestNewRequiresBaseURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Upstream.BaseURL = ""
	_, err := upstream.New(cfg)
	require.ErrorIs(t, err, services.ErrConfiguration)
}

func TestRequestTimeoutIsClassified(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	cfg := testsupport.NewConfig(t, testsupport.WithUpstreamURL(srv.URL))
	cfg.Upstream.RequestTimeoutSeconds = 1
	client, err := upstream.New(cfg)
	require.NoError(t, err)

	_, err = client.FetchRestaurants(context.Background(), testDate(t), "08:00")
	require.ErrorIs(t, err, services.ErrTimeout)
	require.Equal(t, "restaurant_discovery", services.StageOf(err))
}

func TestHTTPClientWarningsUseSlog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	client, fake, _ := newClient(t, upstream.WithLogger(logger))
	fake.SetRestaurants("08:00", `[]`)

	_, err := client.FetchRestaurants(context.Background(), testDate(t), "08:00")
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, `"level":"WARN"`)
	require.Contains(t, out, "Basic Auth in HTTP mode")
	require.Contains(t, out, `"component":"upstream"`)
}
