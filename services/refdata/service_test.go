package refdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"carebook/models"
	"carebook/services/upstream"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testFlow() *models.FlowConfig {
	return &models.FlowConfig{
		Name: "clinic",
		Endpoints: map[models.Category]string{
			models.CategoryServices:  "/clinic/services",
			models.CategoryCities:    "/clinic/cities",
			models.CategoryProviders: "/clinic/providers",
			models.CategorySlots:     "/clinic/slots",
		},
	}
}

// newTestService wires a DefaultService against an httptest upstream. The
// mux must not register /auth/login; the helper adds it.
func newTestService(t *testing.T, mux *http.ServeMux) (*DefaultService, *httptest.Server) {
	t.Helper()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"test-access","refresh_token":"test-refresh"}`))
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"test-access","refresh_token":"test-refresh"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	tokens := upstream.NewTokenStore(rdb)
	client := upstream.NewClient(srv.URL, tokens, zap.NewNop(), "svc@test", "secret", 5*time.Second)
	return NewService(client, zap.NewNop()), srv
}

func sessionWith(sel models.SelectionState) *models.WizardSession {
	return &models.WizardSession{SessionID: "s-1", Flow: "clinic", Selection: sel}
}

func TestKeyForDependencyGating(t *testing.T) {
	flow := testFlow()
	var sel models.SelectionState

	_, ok := KeyFor(flow, models.CategoryServices, &sel)
	assert.True(t, ok)
	_, ok = KeyFor(flow, models.CategoryCities, &sel)
	assert.True(t, ok)
	_, ok = KeyFor(flow, models.CategoryProviders, &sel)
	assert.False(t, ok)
	_, ok = KeyFor(flow, models.CategorySlots, &sel)
	assert.False(t, ok)

	sel.ServiceID = "svc-1"
	sel.CityID = "city-1"
	params, ok := KeyFor(flow, models.CategoryProviders, &sel)
	require.True(t, ok)
	assert.Equal(t, "city-1", params.Get("city_id"))
	assert.Equal(t, "svc-1", params.Get("service_id"))

	_, ok = KeyFor(flow, models.CategorySlots, &sel)
	assert.False(t, ok)

	sel.ProviderID = "prov-1"
	params, ok = KeyFor(flow, models.CategorySlots, &sel)
	require.True(t, ok)
	assert.Equal(t, "prov-1", params.Get("provider_id"))
}

func TestOptionsFetchesAndNormalizes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/clinic/services", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"svc-1","name":"Internal Medicine","price":250}]`))
	})
	svc, _ := newTestService(t, mux)

	list, err := svc.Options(context.Background(), testFlow(), sessionWith(models.SelectionState{}), models.CategoryServices)
	require.NoError(t, err)
	assert.False(t, list.Fallback)
	assert.Empty(t, list.Warning)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Internal Medicine", list.Items[0].Name)
}

func TestOptionsDegradesToFallbackOnServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/clinic/services", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	svc, _ := newTestService(t, mux)

	list, err := svc.Options(context.Background(), testFlow(), sessionWith(models.SelectionState{}), models.CategoryServices)
	require.NoError(t, err)
	assert.True(t, list.Fallback)
	assert.Equal(t, DegradedWarning, list.Warning)
	assert.NotEmpty(t, list.Items)
}

func TestOptionsDegradesOnMalformedPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/clinic/cities", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected":"shape"}`))
	})
	svc, _ := newTestService(t, mux)

	list, err := svc.Options(context.Background(), testFlow(), sessionWith(models.SelectionState{}), models.CategoryCities)
	require.NoError(t, err)
	assert.True(t, list.Fallback)
	assert.NotEmpty(t, list.Items)
}

func TestOptionsEmptyListIsValidNotDegraded(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/clinic/services", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	svc, _ := newTestService(t, mux)

	list, err := svc.Options(context.Background(), testFlow(), sessionWith(models.SelectionState{}), models.CategoryServices)
	require.NoError(t, err)
	assert.False(t, list.Fallback)
	assert.Empty(t, list.Items)
}

func TestOptionsRefusesUnreadyKey(t *testing.T) {
	svc, _ := newTestService(t, http.NewServeMux())
	_, err := svc.Options(context.Background(), testFlow(), sessionWith(models.SelectionState{}), models.CategoryProviders)
	assert.Error(t, err)
}

func TestConcurrentOptionsShareOneFetch(t *testing.T) {
	var hits int64
	mux := http.NewServeMux()
	mux.HandleFunc("/clinic/services", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		time.Sleep(150 * time.Millisecond)
		w.Write([]byte(`[{"id":"svc-1","name":"Internal Medicine"}]`))
	})
	svc, _ := newTestService(t, mux)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			list, err := svc.Options(context.Background(), testFlow(), sessionWith(models.SelectionState{}), models.CategoryServices)
			assert.NoError(t, err)
			assert.Len(t, list.Items, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

func TestSlotAvailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/clinic/slots", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"slot-1","date":"2026-09-05","time":"10:00","available":true},
			{"id":"slot-2","date":"2026-09-05","time":"11:00","available":false}
		]`))
	})
	svc, _ := newTestService(t, mux)

	sess := sessionWith(models.SelectionState{CityID: "city-1", ProviderID: "prov-1"})
	flow := testFlow()

	assert.True(t, svc.SlotAvailable(context.Background(), flow, sess, "slot-1"))
	assert.False(t, svc.SlotAvailable(context.Background(), flow, sess, "slot-2"))
	assert.False(t, svc.SlotAvailable(context.Background(), flow, sess, "slot-gone"))
}

func TestSlotAvailableDegradedCheckPasses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/clinic/slots", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	svc, _ := newTestService(t, mux)

	sess := sessionWith(models.SelectionState{CityID: "city-1", ProviderID: "prov-1"})
	assert.True(t, svc.SlotAvailable(context.Background(), testFlow(), sess, "anything"))
}

func TestNextAvailability(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/clinic/slots", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("provider_id") {
		case "prov-1":
			w.Write([]byte(`[{"id":"s1","date":"2026-09-05","time":"10:00","available":false},
				{"id":"s2","date":"2026-09-06","time":"09:00","available":true}]`))
		default:
			w.Write([]byte(`[]`))
		}
	})
	svc, _ := newTestService(t, mux)

	providers := []models.ReferenceItem{{ID: "prov-1"}, {ID: "prov-2"}}
	sess := sessionWith(models.SelectionState{CityID: "city-1"})
	hints := svc.NextAvailability(context.Background(), testFlow(), sess, providers)

	require.Contains(t, hints, "prov-1")
	assert.Equal(t, "s2", hints["prov-1"].ID)
	assert.NotContains(t, hints, "prov-2")
}

func TestFetchKeyIncludesParams(t *testing.T) {
	p1 := url.Values{"city_id": []string{"a"}}
	p2 := url.Values{"city_id": []string{"b"}}
	assert.NotEqual(t,
		fetchKey("clinic", models.CategoryProviders, p1),
		fetchKey("clinic", models.CategoryProviders, p2))
}
