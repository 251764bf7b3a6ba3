package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	contributionledger "tessera/contexts/value-attribution/contribution-ledger"
	ledgerhttp "tessera/contexts/value-attribution/contribution-ledger/transport/http"
	distributionengine "tessera/contexts/value-attribution/distribution-engine"
	enginehttp "tessera/contexts/value-attribution/distribution-engine/transport/http"
)

func newTestServer() *Server {
	ledger := contributionledger.NewInMemoryModule(nil)
	engine := distributionengine.NewInMemoryModule(ledger.Store, 30*time.Second, nil)
	return New(ledger, engine, nil, ":0")
}

func doJSON(t *testing.T, server *Server, method string, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "user-test")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerContributionAndDistributionFlow(t *testing.T) {
	server := newTestServer()

	rec := doJSON(t, server, http.MethodPost, "/v1/contributions", `{
		"contributor_id": "user-http",
		"contributor_kind": "HUMAN",
		"contributor_name": "HTTP User",
		"asset_name": "service",
		"asset_version": "1.0.0",
		"asset_type": "CODE",
		"event_type": "MANUAL_LABOR",
		"cost_amount": "100",
		"coherence_score": "0.5"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("record contribution returned %d: %s", rec.Code, rec.Body.String())
	}
	var event ledgerhttp.ContributionEventDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}

	rec = doJSON(t, server, http.MethodGet, "/v1/assets/"+event.AssetID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get asset returned %d", rec.Code)
	}

	rec = doJSON(t, server, http.MethodPost, "/v1/distributions", `{
		"asset_id": "`+event.AssetID+`",
		"value_amount": "100"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("run distribution returned %d: %s", rec.Code, rec.Body.String())
	}
	var distribution enginehttp.DistributionDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &distribution); err != nil {
		t.Fatalf("decode distribution: %v", err)
	}
	if distribution.TotalDistributed != "100.00" {
		t.Fatalf("unexpected total distributed %s", distribution.TotalDistributed)
	}

	rec = doJSON(t, server, http.MethodGet, "/v1/distributions/"+distribution.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get distribution returned %d", rec.Code)
	}
	rec = doJSON(t, server, http.MethodGet, "/v1/assets/"+event.AssetID+"/distributions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list distributions returned %d", rec.Code)
	}
}

func TestServerSwaggerDocumentsRoutes(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("swagger doc returned %d", rec.Code)
	}

	body := rec.Body.String()
	for _, route := range []string{
		"/v1/contributors",
		"/v1/contributions",
		"/v1/assets/{asset_id}",
		"/v1/distributions",
	} {
		if !strings.Contains(body, `"`+route+`"`) {
			t.Fatalf("swagger doc missing %s", route)
		}
	}
}

func TestServerMapsDomainErrorsToStatusCodes(t *testing.T) {
	server := newTestServer()

	rec := doJSON(t, server, http.MethodGet, "/v1/assets/asset-missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown asset, got %d", rec.Code)
	}

	rec = doJSON(t, server, http.MethodGet, "/v1/distributions/dist-missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown distribution, got %d", rec.Code)
	}

	rec = doJSON(t, server, http.MethodPost, "/v1/contributions", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}

	rec = doJSON(t, server, http.MethodPost, "/v1/distributions", `{
		"asset_id": "asset-missing",
		"value_amount": "100"
	}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for distribution on unknown asset, got %d", rec.Code)
	}

	rec = doJSON(t, server, http.MethodPost, "/v1/distributions", `{
		"asset_id": "asset-x",
		"value_amount": "-1"
	}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative value, got %d", rec.Code)
	}

	anonReq := httptest.NewRequest(http.MethodPost, "/v1/distributions", strings.NewReader(`{
		"asset_id": "asset-x",
		"value_amount": "100"
	}`))
	anonReq.Header.Set("Content-Type", "application/json")
	anonRec := httptest.NewRecorder()
	server.Handler().ServeHTTP(anonRec, anonReq)
	if anonRec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without X-User-Id, got %d", anonRec.Code)
	}

	var body ledgerhttp.ErrorResponse
	rec = doJSON(t, server, http.MethodGet, "/v1/contributors/user-missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown contributor, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Code != "contributor_not_found" {
		t.Fatalf("unexpected error code %s", body.Code)
	}
}
