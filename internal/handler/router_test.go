package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Clive-Nyaga/Fund-Connect/internal/domain"
	"github.com/Clive-Nyaga/Fund-Connect/internal/handler"
	"github.com/Clive-Nyaga/Fund-Connect/internal/infra/cache"
	"github.com/Clive-Nyaga/Fund-Connect/internal/infra/fundapi"
	"github.com/Clive-Nyaga/Fund-Connect/internal/infra/localstore"
	"github.com/Clive-Nyaga/Fund-Connect/internal/infra/observability"
	"github.com/Clive-Nyaga/Fund-Connect/internal/infra/resilience"
	"github.com/Clive-Nyaga/Fund-Connect/internal/ledger"
	"github.com/Clive-Nyaga/Fund-Connect/internal/session"

	"go.uber.org/zap"
)

// fakeBackend is an in-memory stand-in for the remote campaign service.
type fakeBackend struct {
	mu        sync.Mutex
	campaigns []map[string]any
	nextID    int
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid email or password"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"token": "backend-token",
			"user":  map[string]any{"id": 1001, "name": "Sarah Chen", "email": "sarah@email.com"},
		})
	})

	mux.HandleFunc("/check", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer backend-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 1001, "name": "Sarah Chen", "email": "sarah@email.com"})
	})

	mux.HandleFunc("/campaigns", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{"campaigns": b.campaigns})
		case http.MethodPost:
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			b.nextID++
			record := map[string]any{
				"id":           b.nextID,
				"description":  body["description"],
				"category":     body["category"],
				"targetamount": body["targetamount"],
				"raisedamount": 0,
				"user_id":      1001,
				"user":         map[string]any{"id": 1001, "name": "Sarah Chen"},
			}
			b.campaigns = append(b.campaigns, record)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(record)
		}
	})

	mux.HandleFunc("/campaigns/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/campaigns/")
		if strings.HasSuffix(rest, "/donations") || strings.HasSuffix(rest, "/updates") {
			json.NewEncoder(w).Encode([]any{})
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, c := range b.campaigns {
			if fmt.Sprint(c["id"]) == rest {
				if r.Method == http.MethodDelete {
					b.campaigns = append(b.campaigns[:i], b.campaigns[i+1:]...)
					w.WriteHeader(http.StatusNoContent)
					return
				}
				json.NewEncoder(w).Encode(c)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	mux.HandleFunc("/donations", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, c := range b.campaigns {
			if fmt.Sprint(c["id"]) == fmt.Sprint(body["campaign_id"]) {
				raised, _ := c["raisedamount"].(float64)
				amount, _ := body["amount"].(float64)
				c["raisedamount"] = raised + amount
				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(map[string]any{})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	mux.HandleFunc("/updates", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{})
	})

	return mux
}

func (b *fakeBackend) addCampaign(id int, goal, raised float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.campaigns = append(b.campaigns, map[string]any{
		"id":           id,
		"description":  fmt.Sprintf("Campaign %d", id),
		"category":     "charity",
		"targetamount": goal,
		"raisedamount": raised,
		"user_id":      1002,
		"user":         map[string]any{"id": 1002, "name": "Miguel Torres"},
	})
}

// newTestRouter wires the full stack against the fake backend.
func newTestRouter(t *testing.T, backend *fakeBackend) http.Handler {
	t.Helper()

	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	local, err := localstore.Open(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { local.Close() })

	cred := session.NewCredential()
	client := fundapi.NewClient(
		&http.Client{Timeout: 5 * time.Second},
		srv.URL,
		cred,
		resilience.NewCircuitBreaker("test"),
		resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxConcurrency: 4},
		logger,
	)
	sess := session.NewStore(client, cred, local, false, logger)
	led := ledger.New(client, sess, cache.New[domain.CampaignDetail](time.Minute), resilience.NewBulkhead(4), metrics, logger)

	return handler.NewRouter(led, sess, metrics, logger)
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, router http.Handler) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/v1/session/login", map[string]string{
		"identifier": "sarah@email.com", "password": "secret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
}

// --- Operational endpoints ---

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, &fakeBackend{})

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, &fakeBackend{})

	rec := doJSON(t, router, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestLedgerMetricsSnapshot(t *testing.T) {
	router := newTestRouter(t, &fakeBackend{})

	rec := doJSON(t, router, http.MethodGet, "/v1/metrics/ledger", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if _, ok := snap["refreshes"]; !ok {
		t.Error("snapshot should carry refresh counters")
	}
}

// --- Campaign routes ---

func TestRefreshAndList(t *testing.T) {
	backend := &fakeBackend{nextID: 10}
	backend.addCampaign(1, 50000, 32500)
	router := newTestRouter(t, backend)

	rec := doJSON(t, router, http.MethodPost, "/v1/campaigns/refresh", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/campaigns", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var snap struct {
		Campaigns []domain.Campaign `json:"campaigns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Campaigns) != 1 || snap.Campaigns[0].Raised != 32500 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestListCampaigns_OwnerFilter(t *testing.T) {
	backend := &fakeBackend{nextID: 10}
	backend.addCampaign(1, 50000, 0)
	router := newTestRouter(t, backend)
	doJSON(t, router, http.MethodPost, "/v1/campaigns/refresh", nil)

	rec := doJSON(t, router, http.MethodGet, "/v1/campaigns?owner=1002", nil)
	var got struct {
		Campaigns []domain.Campaign `json:"campaigns"`
	}
	json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got.Campaigns) != 1 {
		t.Errorf("expected 1 owned campaign, got %d", len(got.Campaigns))
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/campaigns?exclude_owner=1002", nil)
	json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got.Campaigns) != 0 {
		t.Errorf("expected 0 featured campaigns, got %d", len(got.Campaigns))
	}
}

func TestCreateCampaign_RequiresSession(t *testing.T) {
	router := newTestRouter(t, &fakeBackend{})

	rec := doJSON(t, router, http.MethodPost, "/v1/campaigns", domain.CampaignInput{
		Title: "t", Description: "d", Category: "charity", Goal: 100,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestCreateCampaign_Authenticated(t *testing.T) {
	backend := &fakeBackend{nextID: 10}
	router := newTestRouter(t, backend)
	login(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/campaigns", domain.CampaignInput{
		Title: "Community garden", Description: "A garden for everyone", Category: "charity", Goal: 12000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Campaign
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Raised != 0 {
		t.Errorf("unexpected created campaign: %+v", created)
	}
}

func TestDonate_FullFlow(t *testing.T) {
	backend := &fakeBackend{nextID: 10}
	backend.addCampaign(7, 1000, 900)
	router := newTestRouter(t, backend)
	login(t, router)
	doJSON(t, router, http.MethodPost, "/v1/campaigns/refresh", nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/campaigns/7/donations", map[string]any{"amount": 100})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var receipt domain.DonationReceipt
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatal(err)
	}
	if receipt.Raised != 1000 || receipt.Remaining != 0 {
		t.Errorf("receipt should carry the post-refresh amounts: %+v", receipt)
	}
}

func TestDonate_OverfundRejected(t *testing.T) {
	backend := &fakeBackend{nextID: 10}
	backend.addCampaign(7, 1000, 900)
	router := newTestRouter(t, backend)
	login(t, router)
	doJSON(t, router, http.MethodPost, "/v1/campaigns/refresh", nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/campaigns/7/donations", map[string]any{"amount": 150})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteCampaign_FundedConflict(t *testing.T) {
	backend := &fakeBackend{nextID: 10}
	backend.addCampaign(7, 1000, 250)
	router := newTestRouter(t, backend)
	login(t, router)
	doJSON(t, router, http.MethodPost, "/v1/campaigns/refresh", nil)

	rec := doJSON(t, router, http.MethodDelete, "/v1/campaigns/7", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteCampaign_Unfunded(t *testing.T) {
	backend := &fakeBackend{nextID: 10}
	backend.addCampaign(7, 1000, 0)
	router := newTestRouter(t, backend)
	login(t, router)
	doJSON(t, router, http.MethodPost, "/v1/campaigns/refresh", nil)

	rec := doJSON(t, router, http.MethodDelete, "/v1/campaigns/7", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCampaignDetail_Success(t *testing.T) {
	backend := &fakeBackend{nextID: 10}
	backend.addCampaign(7, 1000, 400)
	router := newTestRouter(t, backend)
	doJSON(t, router, http.MethodPost, "/v1/campaigns/refresh", nil)

	rec := doJSON(t, router, http.MethodGet, "/v1/campaigns/7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var detail domain.CampaignDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatal(err)
	}
	if detail.Campaign.ID != "7" || detail.Campaign.Raised != 400 {
		t.Errorf("unexpected detail campaign: %+v", detail.Campaign)
	}
}

func TestCampaignDetail_UnknownID(t *testing.T) {
	router := newTestRouter(t, &fakeBackend{})
	doJSON(t, router, http.MethodPost, "/v1/campaigns/refresh", nil)

	rec := doJSON(t, router, http.MethodGet, "/v1/campaigns/99", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

// --- Session routes ---

func TestSessionLifecycle(t *testing.T) {
	router := newTestRouter(t, &fakeBackend{})

	// No session yet.
	rec := doJSON(t, router, http.MethodGet, "/v1/session", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 before login, got %d", rec.Code)
	}

	login(t, router)

	rec = doJSON(t, router, http.MethodGet, "/v1/session", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after login, got %d", rec.Code)
	}
	var user domain.User
	json.Unmarshal(rec.Body.Bytes(), &user)
	if user.ID != "1001" {
		t.Errorf("unexpected user: %+v", user)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/session/logout", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on logout, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/session", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestLogin_BadPassword(t *testing.T) {
	router := newTestRouter(t, &fakeBackend{})

	rec := doJSON(t, router, http.MethodPost, "/v1/session/login", map[string]string{
		"identifier": "sarah@email.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

// --- Reference data ---

func TestCategories(t *testing.T) {
	router := newTestRouter(t, &fakeBackend{})

	rec := doJSON(t, router, http.MethodGet, "/v1/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Categories) == 0 {
		t.Error("expected a non-empty category set")
	}
}
