package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/storefront/internal/entity"
	"github.com/shopforge/storefront/internal/messaging"
	"github.com/shopforge/storefront/internal/repository/memory"
	"github.com/shopforge/storefront/internal/service"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	require.NoError(t, store.SeedProducts(context.Background(), []entity.Product{
		{ID: "p1", Name: "Widget", Price: 10.0, StockQuantity: 5},
	}))

	orderSvc := service.NewOrderService(store, messaging.NopPublisher{}, service.NopCache{}, service.Policy{})
	reviewSvc := service.NewReviewService(store, messaging.NopPublisher{}, service.NopCache{})

	mux := http.NewServeMux()
	NewHandler(orderSvc, reviewSvc).RegisterRoutes(mux)

	srv := httptest.NewServer(EnableCORS(mux))
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

var userHeaders = map[string]string{"X-User-ID": "user-1"}
var adminHeaders = map[string]string{"X-User-ID": "admin-1", "X-Admin": "true"}

func createOrder(t *testing.T, srv *httptest.Server, qty int) entity.Order {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/orders", map[string]any{
		"items": []map[string]any{{"product_id": "p1", "quantity": qty}},
	}, userHeaders)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[entity.Order](t, resp)
}

func TestCreateOrderEndpoint(t *testing.T) {
	srv, store := newTestServer(t)

	order := createOrder(t, srv, 2)
	assert.Equal(t, entity.StatusPending, order.Status)
	assert.InDelta(t, 20.0, order.TotalAmount, 1e-9)

	p, err := store.FindProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.StockQuantity)
}

func TestCreateOrderEndpointErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	// Shortfall surfaces as a conflict naming the product.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/orders", map[string]any{
		"items": []map[string]any{{"product_id": "p1", "quantity": 6}},
	}, userHeaders)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["error"], "p1")

	// Unknown product.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/orders", map[string]any{
		"items": []map[string]any{{"product_id": "nope", "quantity": 1}},
	}, userHeaders)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Empty order.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/orders", map[string]any{
		"items": []map[string]any{},
	}, userHeaders)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCancelOrderEndpoint(t *testing.T) {
	srv, store := newTestServer(t)

	order := createOrder(t, srv, 2)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+order.ID+"/cancel", nil, userHeaders)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	p, err := store.FindProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.StockQuantity)

	// Canceling twice is rejected, stock unchanged.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+order.ID+"/cancel", nil, userHeaders)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	p, err = store.FindProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.StockQuantity)
}

func TestUpdateStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	order := createOrder(t, srv, 1)
	url := srv.URL + "/api/orders/" + order.ID + "/status"

	// Admin only.
	resp := doJSON(t, http.MethodPost, url, map[string]string{"status": "shipped"}, userHeaders)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Unknown status value.
	resp = doJSON(t, http.MethodPost, url, map[string]string{"status": "confirmed"}, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, url, map[string]string{"status": "shipped"}, adminHeaders)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Illegal transition: shipped → pending.
	resp = doJSON(t, http.MethodPost, url, map[string]string{"status": "pending"}, adminHeaders)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestReviewEndpoints(t *testing.T) {
	srv, store := newTestServer(t)

	order := createOrder(t, srv, 1)
	statusURL := srv.URL + "/api/orders/" + order.ID + "/status"
	for _, status := range []string{"shipped", "completed"} {
		resp := doJSON(t, http.MethodPost, statusURL, map[string]string{"status": status}, adminHeaders)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	reviewBody := map[string]any{
		"order_item_id": order.Items[0].ID,
		"rating":        4,
		"comment":       "solid",
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/reviews", reviewBody, userHeaders)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	review := decode[entity.Review](t, resp)
	assert.True(t, review.IsVerified)

	p, err := store.FindProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, p.Rating)
	assert.Equal(t, 1, p.ReviewCount)

	// One review per order item.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/reviews", reviewBody, userHeaders)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Product review listing.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/products/p1/reviews", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reviews := decode[[]entity.Review](t, resp)
	assert.Len(t, reviews, 1)

	// Admin unverify drops the review from the aggregate.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/reviews/"+review.ID+"/unverify", nil, adminHeaders)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	p, err = store.FindProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Rating)
	assert.Equal(t, 0, p.ReviewCount)
}

func TestDeleteOrderEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	order := createOrder(t, srv, 1)
	url := srv.URL + "/api/orders/" + order.ID

	resp := doJSON(t, http.MethodDelete, url, nil, userHeaders)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, url, nil, adminHeaders)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/orders/"+order.ID, nil, userHeaders)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestGetProductEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/products/p1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[entity.Product](t, resp)
	assert.Equal(t, "Widget", p.Name)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/products/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/products", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
