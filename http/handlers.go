package http

import (
	"net/http"
	"time"

	"cardioserve/ml"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const rootMessage = "Heart Disease Prediction API is running"

// Handlers 持有预测服务上下文，启动后只读
type Handlers struct {
	provider ml.ModelProvider
	log      *zap.Logger
	validate *validator.Validate
	started  time.Time
}

func NewHandlers(provider ml.ModelProvider, log *zap.Logger) *Handlers {
	return &Handlers{
		provider: provider,
		log:      log,
		validate: newValidator(),
		started:  time.Now(),
	}
}

func RegisterHandlers(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /{$}", h.handleRoot)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /model/info", h.handleModelInfo)
	mux.HandleFunc("POST /predict", h.handlePredict)
}

// jsonFallback 未匹配的路由以 JSON 返回 404/405
func jsonFallback(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pattern := mux.Handler(r); pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}
		fallback := &statusCapture{header: make(http.Header), status: http.StatusNotFound}
		mux.ServeHTTP(fallback, r)
		if allow := fallback.header.Get("Allow"); allow != "" {
			w.Header().Set("Allow", allow)
		}
		writeDetail(w, fallback.status, http.StatusText(fallback.status))
	})
}

// statusCapture 记录 ServeMux 默认响应的状态码和头，丢弃正文
type statusCapture struct {
	header http.Header
	status int
}

func (c *statusCapture) Header() http.Header         { return c.header }
func (c *statusCapture) Write(b []byte) (int, error) { return len(b), nil }
func (c *statusCapture) WriteHeader(status int)      { c.status = status }

func (h *Handlers) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": rootMessage})
}

type healthResponse struct {
	Status string         `json:"status"`
	Uptime int64          `json:"uptime"`
	Model  ml.ModelStatus `json:"model"`
}

// handleHealth 降级（随机权重）或模型不可用时返回 503
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.provider.Status()
	response := healthResponse{
		Status: "ok",
		Uptime: int64(time.Since(h.started).Seconds()),
		Model:  status,
	}
	code := http.StatusOK
	switch {
	case !status.Ready:
		response.Status = "unavailable"
		code = http.StatusServiceUnavailable
	case status.Degraded:
		response.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}

func (h *Handlers) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.provider.Status())
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	record, verr := decodePredictRequest(r, h.validate)
	if verr != nil {
		h.log.Debug("Invalid prediction request",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(verr))
		writeJSON(w, verr.Status, verr)
		return
	}

	prediction, err := h.provider.Predict(r.Context(), record)
	if err != nil {
		h.log.Error("Prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		writePredictionError(w, err)
		return
	}

	if h.provider.Status().Degraded {
		w.Header().Set("X-Model-Degraded", "true")
	}
	h.log.Debug("Prediction served",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.Int("prediction", prediction.Prediction),
		zap.Float64("probability", prediction.Probability),
		zap.Duration("elapsed", time.Since(GetStartTime(r.Context()))))
	writeJSON(w, http.StatusOK, prediction)
}
