package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（方法+路径模式），外层套访问日志
type Router struct {
	mux     *http.ServeMux
	handler http.Handler
	logger  *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	mux := http.NewServeMux()
	r := &Router{mux: mux, logger: logger}
	r.handler = accessLog(logger, mux)
	r.Handle("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok("ok"))
	})
	return r
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// RegisterPatientRoutes 注册患者相关路由
func (r *Router) RegisterPatientRoutes(h *PatientHandler) {
	r.Handle("GET /api/v1/patients", h.ListPatients)
	r.Handle("POST /api/v1/patients", h.RegisterPatient)
	r.Handle("GET /api/v1/patients/export.xlsx", h.ExportWorkbook)
	r.Handle("GET /api/v1/patients/{id}", h.GetPatient)
	r.Handle("GET /api/v1/patients/{id}/barcode.png", h.GetBarcode)
	r.Handle("GET /api/v1/patients/{id}/export.txt", h.ExportText)
	r.Handle("GET /api/v1/lookup", h.Lookup)

	// 条码/链接中携带的标识 URL
	r.Handle("GET /patient/{id}", h.GetPatient)
	r.Handle("GET /ps/{id}", h.GetPatient)
}
