package httpadapter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/findit/internal/config"
	"github.com/kirillkom/findit/internal/core/domain"
)

const validDraft = `{
	"reporter_id": "user-7",
	"type": "lost",
	"category": "Bags & Wallets",
	"title": "Black leather wallet",
	"description": "Lost near the central fountain",
	"location": "Central Park",
	"tags": ["Wallet", "black"]
}`

func TestReportItemReturns202(t *testing.T) {
	reporter := &reporterFake{}
	handler := newTestHandler(config.Config{}, testDeps{reporter: reporter})

	req := httptest.NewRequest(http.MethodPost, "/v1/items", strings.NewReader(validDraft))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if reporter.got.Category != domain.CategoryBagsWallets || len(reporter.got.Tags) != 2 {
		t.Fatalf("unexpected draft passed to reporter: %+v", reporter.got)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
	var item domain.Item
	if err := json.NewDecoder(res.Body).Decode(&item); err != nil || item.ID != "item-1" {
		t.Fatalf("unexpected body %v (%v)", item, err)
	}
}

func TestReportItemRejectsContractViolations(t *testing.T) {
	cases := map[string]string{
		"unknown category": strings.Replace(validDraft, "Bags & Wallets", "Pets", 1),
		"bad type":         strings.Replace(validDraft, `"lost"`, `"stolen"`, 1),
		"missing title":    strings.Replace(validDraft, `"title": "Black leather wallet",`, "", 1),
		"title too long":   strings.Replace(validDraft, "Black leather wallet", strings.Repeat("x", 101), 1),
	}
	for name, body := range cases {
		reporter := &reporterFake{}
		handler := newTestHandler(config.Config{}, testDeps{reporter: reporter})

		req := httptest.NewRequest(http.MethodPost, "/v1/items", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		if res.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, res.Code)
		}
		if reporter.got.Title != "" {
			t.Fatalf("%s: reporter must not be called", name)
		}
	}
}

func TestGetItemReturnsItem(t *testing.T) {
	handler := newTestHandler(config.Config{}, testDeps{items: itemsFake{items: map[string]*domain.Item{
		"lost-1": {ID: "lost-1", Title: "Phone", Type: domain.ItemLost},
	}}})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/items/lost-1", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `"title":"Phone"`) {
		t.Fatalf("unexpected body %s", res.Body.String())
	}
}

func TestFindMatchesAddsDisplayBand(t *testing.T) {
	handler := newTestHandler(config.Config{}, testDeps{finder: finderFake{results: []domain.MatchResult{
		{ItemID: "found-1", SimilarityScore: 0.9, Confidence: 0.9, Reasons: []string{"Excellent text similarity"}},
		{ItemID: "found-2", SimilarityScore: 0.4, Confidence: 0.4},
	}}})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/items/lost-1/matches", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var body struct {
		ItemID  string `json:"item_id"`
		Matches []struct {
			ItemID     string  `json:"item_id"`
			Confidence float64 `json:"confidence"`
			Band       string  `json:"band"`
		} `json:"matches"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ItemID != "lost-1" || len(body.Matches) != 2 {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Matches[0].Band != "Excellent" || body.Matches[1].Band != "Poor" {
		t.Fatalf("unexpected bands %+v", body.Matches)
	}
}

func TestListStoredMatchesReturnsEmptyArray(t *testing.T) {
	handler := newTestHandler(config.Config{}, testDeps{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/items/lost-1/matches/stored", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `"matches":[]`) {
		t.Fatalf("expected empty array, got %s", res.Body.String())
	}
}

func TestConfidenceBandEndpoint(t *testing.T) {
	handler := newTestHandler(config.Config{}, testDeps{})

	cases := map[string]struct {
		status int
		band   string
	}{
		"0.85": {status: http.StatusOK, band: "Excellent"},
		"0.7":  {status: http.StatusOK, band: "Good"},
		"0.1":  {status: http.StatusOK, band: "Very Poor"},
		"1.5":  {status: http.StatusBadRequest},
		"abc":  {status: http.StatusBadRequest},
	}
	for in, want := range cases {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/confidence-band?confidence="+in, nil))
		if res.Code != want.status {
			t.Fatalf("confidence=%s: expected %d, got %d", in, want.status, res.Code)
		}
		if want.band != "" && !strings.Contains(res.Body.String(), `"band":"`+want.band+`"`) {
			t.Fatalf("confidence=%s: unexpected body %s", in, res.Body.String())
		}
	}
}

func TestUnknownRouteFallsThroughValidation(t *testing.T) {
	handler := newTestHandler(config.Config{}, testDeps{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/unknown", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestHealthzReportsBreakers(t *testing.T) {
	router := NewRouter(config.Config{}, &reporterFake{}, itemsFake{}, finderFake{}, storedFake{},
		WithBreakerStates(func() map[string]string {
			return map[string]string{"ai.analyze_text": "open"}
		}),
	)

	res := httptest.NewRecorder()
	router.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `"ai.analyze_text":"open"`) {
		t.Fatalf("expected breaker state in body, got %s", res.Body.String())
	}
}
