package httpapi

import (
	"errors"
	"net/http"

	"wisefido-patients/internal/barcode"
	"wisefido-patients/internal/export"
	"wisefido-patients/internal/service"
)

// Result 统一响应包装
// - code: ResultSuccess = 2000 / ResultError = -1
// - type: 'success' | 'error'
// - message: string
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

// failFor 将服务层错误映射为 HTTP 状态码和响应
func failFor(err error) (int, Result[any]) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		r := Fail(verr.Message)
		r.Result = map[string]string{"field": verr.Field}
		return http.StatusBadRequest, r
	case errors.Is(err, service.ErrPatientNotFound):
		return http.StatusNotFound, Fail("patient not found")
	case errors.Is(err, service.ErrNothingToExport):
		return http.StatusNotFound, Fail(err.Error())
	case errors.Is(err, service.ErrEmptyLookup), errors.Is(err, service.ErrInvalidLookupURL):
		return http.StatusBadRequest, Fail(err.Error())
	case errors.Is(err, barcode.ErrInvalidSymbolInput):
		return http.StatusUnprocessableEntity, Fail(err.Error())
	case errors.Is(err, export.ErrExportFailed):
		return http.StatusInternalServerError, Fail("failed to export patient records")
	default:
		return http.StatusInternalServerError, Fail("internal error")
	}
}
