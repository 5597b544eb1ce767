package httpapi

import (
	"net/http"

	"wisefido-patients/internal/barcode"
	"wisefido-patients/internal/domain"
	"wisefido-patients/internal/export"
	"wisefido-patients/internal/service"

	"go.uber.org/zap"
)

const maxRegisterBody = 64 << 10

// PatientHandler 患者登记/查询/导出 API
type PatientHandler struct {
	svc    *service.PatientService
	logger *zap.Logger
}

func NewPatientHandler(svc *service.PatientService, logger *zap.Logger) *PatientHandler {
	return &PatientHandler{svc: svc, logger: logger}
}

// PatientItem 响应中的患者（附带链接）
type PatientItem struct {
	domain.Patient
	Link      string `json:"link"`
	ShortLink string `json:"short_link"`
}

func (h *PatientHandler) item(p domain.Patient) PatientItem {
	link, short := h.svc.Links(p.Identifier)
	return PatientItem{Patient: p, Link: link, ShortLink: short}
}

func (h *PatientHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := failFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Patient API request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, body)
}

// GET /api/v1/patients?search=<姓名或标识片段>
func (h *PatientHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.svc.Search(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items := make([]PatientItem, 0, len(patients))
	for _, p := range patients {
		items = append(items, h.item(p))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": len(items),
	}))
}

// POST /api/v1/patients
func (h *PatientHandler) RegisterPatient(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterPatientRequest
	if err := readBodyJSON(r, maxRegisterBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	p, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(h.item(*p)))
}

// GET /api/v1/patients/{id}, /patient/{id}, /ps/{id}
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.item(*p)))
}

// GET /api/v1/lookup?q=<id 或扫码 URL>
func (h *PatientHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Lookup(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.item(*p)))
}

// GET /api/v1/patients/{id}/barcode.png?text=false
// 默认使用页面展示参数（条高 50，显示标识文本）
func (h *PatientHandler) GetBarcode(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	opts := barcode.DisplayOptions()
	opts.DisplayValue = parseBool(r.URL.Query().Get("text"), true)

	png, err := barcode.EncodePNG(p.Identifier, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// GET /api/v1/patients/{id}/export.txt
func (h *PatientHandler) ExportText(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeAttachment(w, "text/plain; charset=utf-8", p.TextFilename(), []byte(p.Text()))
}

// GET /api/v1/patients/export.xlsx?search=
// 只导出匹配的患者，没有匹配时返回 404
func (h *PatientHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	buf, err := h.svc.Export(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeAttachment(w, export.ContentType, export.Filename, buf)
}
