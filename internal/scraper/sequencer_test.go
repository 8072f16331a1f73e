package scraper_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"lunchscraper/internal/config"
	"lunchscraper/internal/history"
	"lunchscraper/internal/notifications"
	"lunchscraper/internal/schedule"
	"lunchscraper/internal/scraper"
	"lunchscraper/internal/services"
	"lunchscraper/internal/storage"
	"lunchscraper/internal/testsupport"
	"lunchscraper/internal/upstream"
)

type harness struct {
	cfg     *config.Config
	fake    *testsupport.FakeUpstream
	ntfy    *testsupport.FakeNtfy
	store   *storage.Store
	history *history.Store
	seq     *scraper.Sequencer
	date    schedule.TargetDate
	ctx     context.Context
	runID   string
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	fake := testsupport.NewFakeUpstream(t, cfg.Upstream.Login, cfg.Upstream.Password)
	ntfy := testsupport.NewFakeNtfy(t)
	cfg.Upstream.BaseURL = fake.URL()
	cfg.Notifications.NtfyURL = ntfy.URL()
	cfg.Notifications.Topic = "lunch"
	cfg.Notifications.Token = "tok"

	client, err := upstream.New(cfg)
	require.NoError(t, err)
	store := storage.New(storage.NewLayout(cfg.Paths.DataDir, cfg.LockDir()), nil)
	ledger := testsupport.MustOpenHistory(t, cfg)

	slots, err := schedule.ParseSlots(cfg.Schedule.Slots)
	require.NoError(t, err)
	seq, err := scraper.New(client, store, scraper.Options{
		Slots:           slots,
		ContinueOnError: cfg.Scraper.ContinueOnError,
		Notifier:        notifications.NewService(cfg),
		Recorder:        ledger,
	})
	require.NoError(t, err)

	date, err := schedule.ParseTargetDate("2024-03-15", time.UTC)
	require.NoError(t, err)

	return &harness{
		cfg:     cfg,
		fake:    fake,
		ntfy:    ntfy,
		store:   store,
		history: ledger,
		seq:     seq,
		date:    date,
		ctx:     services.WithRunID(context.Background(), "run-test"),
		runID:   "run-test",
	}
}

func (h *harness) menuFiles(t *testing.T) []string {
	return testsupport.ListFiles(t, h.store.Layout().MenuDir(h.date))
}

func TestRunPersistsSingleRestaurantSlot(t *testing.T) {
	h := newHarness(t)
	h.fake.SetRestaurants("11:30", `[{"id": 42, "name": "Bistro"}]`)
	h.fake.SetMenu("42", `{"menu_items":[{"name":"Soup","price":"4.50"}]}`)

	summary, err := h.seq.Run(h.ctx, h.date)
	require.NoError(t, err)
	require.Equal(t, history.StatusCompleted, summary.Status)
	require.Len(t, summary.Slots, len(schedule.DefaultSlots))
	require.Equal(t, 1, summary.MenuFiles)
	require.True(t, summary.Notified)

	listing := testsupport.ReadJSON(t, h.store.Layout().RestaurantFile(h.date))
	if diff := cmp.Diff([]any{map[string]any{"id": 42.0, "name": "Bistro"}}, listing); diff != "" {
		t.Fatalf("restaurant file mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, []string{"lunch_menu_2024-03-15_11:30_42.json"}, h.menuFiles(t))
	menu := testsupport.ReadJSON(t, h.store.Layout().MenuFile(h.date, "11:30", "42"))
	want := map[string]any{"menu_items": []any{map[string]any{"name": "Soup", "price": "4.50"}}}
	if diff := cmp.Diff(want, menu); diff != "" {
		t.Fatalf("menu file mismatch (-want +got):\n%s", diff)
	}

	msgs := h.ntfy.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "Lunch Tracker Scraper completed for 2024-03-15. Found 1 menu files.", msgs[0].Body)

	run, err := h.history.GetRun(context.Background(), h.runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	require.Equal(t, history.StatusCompleted, run.Status)
	require.Equal(t, 1, run.MenuFiles)
	require.True(t, run.Notified)

	slots, err := h.history.SlotsForRun(context.Background(), h.runID)
	require.NoError(t, err)
	require.Len(t, slots, len(schedule.DefaultSlots))
}

func TestRunEmptyDiscoveryShortCircuitsAndContinues(t *testing.T) {
	h := newHarness(t, testsupport.WithSlots("08:00", "09:00"))
	h.fake.SetRestaurants("08:00", `[]`)
	h.fake.SetRestaurants("09:00", `[{"id": 7, "name": "Deli"}]`)

	summary, err := h.seq.Run(h.ctx, h.date)
	require.NoError(t, err)
	require.Equal(t, 0, summary.Slots[0].Restaurants)
	require.False(t, summary.Slots[0].RestaurantsWritten)
	require.Equal(t, history.StatusEmpty, summary.Slots[0].Status())
	require.Equal(t, 1, summary.Slots[1].MenusWritten)

	for _, req := range h.fake.RequestsTo(testsupport.MenuItemsPath) {
		require.NotContains(t, req.Query.Get("day"), "08:00", "no menu requests for the empty slot")
	}
	require.Equal(t, []string{"lunch_menu_2024-03-15_09:00_7.json"}, h.menuFiles(t))

	listing := testsupport.ReadJSON(t, h.store.Layout().RestaurantFile(h.date)).([]any)
	require.Len(t, listing, 1)
}

func TestRunEmptyEverywhereWritesNoRestaurantFile(t *testing.T) {
	h := newHarness(t, testsupport.WithSlots("08:00"))

	summary, err := h.seq.Run(h.ctx, h.date)
	require.NoError(t, err)
	require.Equal(t, history.StatusEmpty, summary.Status)
	require.Equal(t, 0, summary.MenuFiles)
	require.NoFileExists(t, h.store.Layout().RestaurantFile(h.date))
	require.DirExists(t, h.store.Layout().MenuDir(h.date))

	msgs := h.ntfy.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "Lunch Tracker Scraper completed for 2024-03-15. Found 0 menu files.", msgs[0].Body)
}

func TestRunMenuFailureHaltsBeforeNotification(t *testing.T) {
	h := newHarness(t, testsupport.WithSlots("11:00", "11:30"))
	h.fake.SetRestaurants("11:00", `[{"id":1,"name":"A"},{"id":2,"name":"B"},{"id":3,"name":"C"}]`)
	h.fake.SetRestaurants("11:30", `[{"id":4,"name":"D"}]`)
	h.fake.FailMenu("2", http.StatusInternalServerError)

	summary, err := h.seq.Run(h.ctx, h.date)
	require.Error(t, err)
	require.ErrorIs(t, err, services.ErrExternalTool)
	require.Equal(t, history.StatusFailed, summary.Status)

	// FetchMenus discards what it fetched, so even restaurant 1 has no file.
	require.Empty(t, h.menuFiles(t))
	for _, req := range h.fake.RequestsTo(testsupport.MenuItemsPath) {
		require.NotEqual(t, "3", req.Query.Get(testsupport.MenuFilterParam), "third restaurant must not be requested")
	}
	for _, req := range h.fake.RequestsTo(testsupport.RestaurantsPath) {
		require.NotEqual(t, "11:30", req.Query.Get("hour"), "later slots must not run")
	}
	require.Empty(t, h.ntfy.Messages(), "no completion notification after a failure")

	// The restaurant listing written before the failure stays on disk.
	require.FileExists(t, h.store.Layout().RestaurantFile(h.date))

	run, err := h.history.GetRun(context.Background(), h.runID)
	require.NoError(t, err)
	require.Equal(t, history.StatusFailed, run.Status)
	require.Contains(t, run.ErrorMessage, "500")
}

func TestRunFailureNotifiesWhenErrorsEnabled(t *testing.T) {
	h := newHarness(t, testsupport.WithSlots("08:00"))
	h.cfg.Notifications.Errors = true
	slots, err := schedule.ParseSlots(h.cfg.Schedule.Slots)
	require.NoError(t, err)
	client, err := upstream.New(h.cfg)
	require.NoError(t, err)
	seq, err := scraper.New(client, h.store, scraper.Options{Slots: slots, Notifier: notifications.NewService(h.cfg)})
	require.NoError(t, err)

	h.fake.FailRestaurants("08:00", http.StatusBadGateway)
	_, err = seq.Run(h.ctx, h.date)
	require.Error(t, err)

	msgs := h.ntfy.Messages()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0].Body, "Lunch Tracker Scraper failed for 2024-03-15")
}

func TestRunContinueOnErrorIsolatesSlots(t *testing.T) {
	h := newHarness(t, testsupport.WithSlots("11:00", "11:30", "12:30"), testsupport.WithContinueOnError())
	h.fake.SetRestaurants("11:00", `[{"id":1,"name":"A"}]`)
	h.fake.FailRestaurants("11:30", http.StatusServiceUnavailable)
	h.fake.SetRestaurants("12:30", `[{"id":5,"name":"E"}]`)

	summary, err := h.seq.Run(h.ctx, h.date)
	require.Error(t, err)
	require.True(t, scraper.IsSlotFailures(err))
	require.ErrorIs(t, err, services.ErrExternalTool)
	require.Equal(t, history.StatusPartial, summary.Status)
	require.Equal(t, []string{"11:30"}, summary.FailedSlots())
	require.Equal(t, 2, summary.MenuFiles)

	msgs := h.ntfy.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "Lunch Tracker Scraper completed for 2024-03-15. Found 2 menu files. Failed slots: 11:30.", msgs[0].Body)

	slots, err := h.history.SlotsForRun(context.Background(), h.runID)
	require.NoError(t, err)
	statuses := map[string]history.Status{}
	for _, rec := range slots {
		statuses[rec.Slot] = rec.Status
	}
	require.Equal(t, history.StatusFailed, statuses["11:30"])
	require.Equal(t, history.StatusCompleted, statuses["12:30"])
}

func TestRunSkipsRestaurantsWithoutID(t *testing.T) {
	h := newHarness(t, testsupport.WithSlots("12:30"))
	h.fake.SetRestaurants("12:30", `[{"id":null,"name":"Ghost"},{"name":"NoKey"},{"id":9,"name":"Real"}]`)

	summary, err := h.seq.Run(h.ctx, h.date)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Slots[0].Restaurants)
	require.Equal(t, 2, summary.Slots[0].Skipped)
	require.Equal(t, 1, summary.Slots[0].MenusWritten)
	require.Len(t, h.fake.RequestsTo(testsupport.MenuItemsPath), 1)

	listing := testsupport.ReadJSON(t, h.store.Layout().RestaurantFile(h.date)).([]any)
	require.Len(t, listing, 3, "restaurants without id are still persisted")
}

func TestRunNotificationFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, testsupport.WithSlots("08:00"))
	h.ntfy.SetStatus(http.StatusUnauthorized)

	summary, err := h.seq.Run(h.ctx, h.date)
	require.NoError(t, err)
	require.False(t, summary.Notified)
	require.Len(t, h.ntfy.Messages(), 1)
}

func TestRunCanceledContext(t *testing.T) {
	h := newHarness(t, testsupport.WithSlots("08:00"), testsupport.WithContinueOnError())
	ctx, cancel := context.WithCancel(h.ctx)
	cancel()

	summary, err := h.seq.Run(ctx, h.date)
	require.True(t, errors.Is(err, context.Canceled), "got %v", err)
	require.Equal(t, history.StatusCanceled, summary.Status)
	require.Empty(t, h.ntfy.Messages())
	require.Empty(t, h.fake.Requests())
}

func TestNewRequiresSlots(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client, err := upstream.New(cfg)
	require.NoError(t, err)
	_, err = scraper.New(client, storage.New(storage.NewLayout(cfg.Paths.DataDir, cfg.LockDir()), nil), scraper.Options{})
	require.ErrorIs(t, err, services.ErrConfiguration)
}
