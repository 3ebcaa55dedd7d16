package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopforge/storefront/internal/entity"
	"github.com/shopforge/storefront/internal/service"
)

// Handler exposes the consistency engine over HTTP. Authentication lives in
// an upstream gateway; it injects the caller's identity through the
// X-User-ID and X-Admin headers.
type Handler struct {
	orderSvc  *service.OrderService
	reviewSvc *service.ReviewService
}

func NewHandler(orderSvc *service.OrderService, reviewSvc *service.ReviewService) *Handler {
	return &Handler{
		orderSvc:  orderSvc,
		reviewSvc: reviewSvc,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.handleGetProducts)
	mux.HandleFunc("GET /api/products/{id}", h.handleGetProduct)
	mux.HandleFunc("GET /api/products/{id}/reviews", h.handleGetProductReviews)

	mux.HandleFunc("POST /api/orders", h.handleCreateOrder)
	mux.HandleFunc("GET /api/orders", h.handleGetOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.handleGetOrder)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.handleCancelOrder)
	mux.HandleFunc("POST /api/orders/{id}/status", h.handleUpdateStatus)
	mux.HandleFunc("POST /api/orders/{id}/payment", h.handleMarkPaid)
	mux.HandleFunc("DELETE /api/orders/{id}", h.handleDeleteOrder)

	mux.HandleFunc("POST /api/reviews", h.handleCreateReview)
	mux.HandleFunc("PATCH /api/reviews/{id}", h.handleUpdateReview)
	mux.HandleFunc("DELETE /api/reviews/{id}", h.handleDeleteReview)
	mux.HandleFunc("POST /api/reviews/{id}/verify", h.handleVerifyReview)
	mux.HandleFunc("POST /api/reviews/{id}/unverify", h.handleUnverifyReview)
}

func actor(r *http.Request) entity.Actor {
	return entity.Actor{
		UserID: r.Header.Get("X-User-ID"),
		Admin:  r.Header.Get("X-Admin") == "true",
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var (
		notFound   *entity.NotFoundError
		stock      *entity.InsufficientStockError
		transition *entity.InvalidTransitionError
		duplicate  *entity.DuplicateReviewError
		validation *entity.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &stock), errors.As(err, &transition), errors.As(err, &duplicate):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, entity.ErrConcurrencyConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conflict, please retry"})
	case errors.Is(err, entity.ErrPaymentRequired):
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": err.Error()})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("Request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !actor(r).Admin {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin access required"})
		return false
	}
	return true
}

// --- products ---

func (h *Handler) handleGetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.orderSvc.GetProducts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.orderSvc.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) handleGetProductReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviewSvc.GetProductReviews(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if reviews == nil {
		reviews = []entity.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

// --- orders ---

type createOrderRequest struct {
	Items []service.NewOrderItem `json:"items"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.orderSvc.CreateOrder(r.Context(), actor(r).UserID, req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderSvc.GetRecentOrders(r.Context(), 50)
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []entity.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderSvc.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orderSvc.CancelOrder(r.Context(), r.PathValue("id"), actor(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(entity.StatusCanceled)})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	status, err := entity.ParseOrderStatus(req.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := h.orderSvc.UpdateStatus(r.Context(), r.PathValue("id"), status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (h *Handler) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	if err := h.orderSvc.MarkPaid(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"payment_status": string(entity.PaymentPaid)})
}

func (h *Handler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	if err := h.orderSvc.DeleteOrder(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- reviews ---

type createReviewRequest struct {
	OrderItemID string `json:"order_item_id"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment"`
}

func (h *Handler) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	review, err := h.reviewSvc.CreateReview(r.Context(), actor(r).UserID, req.OrderItemID, req.Rating, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

type updateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

func (h *Handler) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	var req updateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	review, err := h.reviewSvc.UpdateReview(r.Context(), r.PathValue("id"), actor(r), req.Rating, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *Handler) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.reviewSvc.DeleteReview(r.Context(), r.PathValue("id"), actor(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleVerifyReview(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	if err := h.reviewSvc.SetVerified(r.Context(), r.PathValue("id"), true); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_verified": true})
}

func (h *Handler) handleUnverifyReview(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	if err := h.reviewSvc.SetVerified(r.Context(), r.PathValue("id"), false); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_verified": false})
}

// EnableCORS is middleware to allow the web frontend to connect.
func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID, X-Admin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
