package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/krittawat/order-register/internal/core/domain"
	"github.com/krittawat/order-register/internal/core/ports"
	"github.com/krittawat/order-register/internal/observability/metrics"
)

const defaultQueueLimit = 50

type Router struct {
	intake  ports.OrderIntake
	reader  ports.RecordReader
	review  ports.ReviewService
	syncer  ports.RecordSyncer
	metrics *metrics.HTTPServerMetrics
	limiter *trafficLimiter
}

func NewRouter(
	intake ports.OrderIntake,
	reader ports.RecordReader,
	review ports.ReviewService,
	syncer ports.RecordSyncer,
	httpMetrics *metrics.HTTPServerMetrics,
	limits TrafficLimits,
) *Router {
	return &Router{
		intake:  intake,
		reader:  reader,
		review:  review,
		syncer:  syncer,
		metrics: httpMetrics,
		limiter: newTrafficLimiter(limits),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/orders", rt.submitOrder)
	mux.HandleFunc("/v1/orders/", rt.orderSubresource)
	mux.HandleFunc("/v1/review/queue", rt.reviewQueue)
	mux.HandleFunc("/v1/review/", rt.reviewDecision)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = rt.limiter.middleware(handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) submitOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		CustomerID     string   `json:"customer_id"`
		Channel        string   `json:"channel"`
		Text           string   `json:"text"`
		AttachmentRefs []string `json:"attachment_refs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.intake.Submit(r.Context(), domain.Request{
		CustomerID:     req.CustomerID,
		Channel:        req.Channel,
		RawText:        req.Text,
		AttachmentRefs: req.AttachmentRefs,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordIntake(req.Channel, result.Duplicate)
	}
	status := http.StatusAccepted
	if result.Duplicate {
		// Replays acknowledge the original admission instead of failing.
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// orderSubresource serves GET /v1/orders/{id} and POST /v1/orders/{id}/sync.
func (rt *Router) orderSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/orders/")
	if rest == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order id is required"})
		return
	}

	if orderID, ok := strings.CutSuffix(rest, "/sync"); ok {
		rt.syncOrder(w, r, orderID)
		return
	}
	rt.getOrderByID(w, r, rest)
}

func (rt *Router) getOrderByID(w http.ResponseWriter, r *http.Request, orderID string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if strings.Contains(orderID, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	record, err := rt.reader.GetByID(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) syncOrder(w http.ResponseWriter, r *http.Request, orderID string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order id is required"})
		return
	}

	report, err := rt.syncer.SyncByID(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) reviewQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	limit := defaultQueueLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	tasks, err := rt.review.Queue(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []domain.ReviewTask{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (rt *Router) reviewDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/review/")
	orderID, ok := strings.CutSuffix(rest, "/decision")
	if !ok || orderID == "" || strings.Contains(orderID, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	var decision domain.ReviewDecision
	if err := json.NewDecoder(r.Body).Decode(&decision); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	record, err := rt.review.Decide(r.Context(), orderID, decision)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordReviewDecision(string(decision.Action))
	}
	writeJSON(w, http.StatusOK, record)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		// Do not leak wrapped internals on 5xx responses.
		writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
