// Package client 患者登记服务的 HTTP 客户端（patientctl 使用）
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"wisefido-patients/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// envelope 服务端统一响应包装
type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// APIError 服务端返回的错误
type APIError struct {
	StatusCode int
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("patients API error: %s (field: %s, status: %d)", e.Message, e.Field, e.StatusCode)
	}
	return fmt.Sprintf("patients API error: %s (status: %d)", e.Message, e.StatusCode)
}

// NotFound 患者不存在
func (e *APIError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// Patient 服务端返回的患者（附带链接）
type Patient struct {
	domain.Patient
	Link      string `json:"link"`
	ShortLink string `json:"short_link"`
}

// RegisterRequest 登记请求体
type RegisterRequest struct {
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	BloodType      string `json:"bloodType"`
	Contact        string `json:"contact"`
	Address        string `json:"address"`
	MedicalHistory string `json:"medicalHistory"`
}

// Client 患者 API 客户端
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// New 创建客户端。登记不是幂等操作，只对 GET 请求重试
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Accept", "application/json")

	return &Client{httpClient: httpClient, logger: logger}
}

// Register POST /api/v1/patients
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Patient, error) {
	var p Patient
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/v1/patients")
	if err := c.decode(resp, err, &p); err != nil {
		return nil, err
	}
	c.logger.Info("Patient registered", zap.String("patient_id", p.Identifier))
	return &p, nil
}

// Get GET /api/v1/patients/{id}
func (c *Client) Get(ctx context.Context, id string) (*Patient, error) {
	var p Patient
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Get("/api/v1/patients/{id}")
	if err := c.decode(resp, err, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List GET /api/v1/patients，search 非空时按姓名或标识过滤
func (c *Client) List(ctx context.Context, search string) ([]Patient, error) {
	var page struct {
		Items []Patient `json:"items"`
		Total int       `json:"total"`
	}
	req := c.httpClient.R().SetContext(ctx)
	if search != "" {
		req.SetQueryParam("search", search)
	}
	resp, err := req.Get("/api/v1/patients")
	if err := c.decode(resp, err, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Lookup GET /api/v1/lookup?q=，input 可以是标识或扫码得到的 URL
func (c *Client) Lookup(ctx context.Context, input string) (*Patient, error) {
	var p Patient
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("q", input).
		Get("/api/v1/lookup")
	if err := c.decode(resp, err, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ExportWorkbook 下载患者 xlsx，search 非空时只包含匹配的患者
func (c *Client) ExportWorkbook(ctx context.Context, search string) ([]byte, error) {
	req := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if search != "" {
		req.SetQueryParam("search", search)
	}
	resp, err := req.Get("/api/v1/patients/export.xlsx")
	return c.raw(resp, err)
}

// ExportText 下载单个患者的文本记录
func (c *Client) ExportText(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Get("/api/v1/patients/{id}/export.txt")
	return c.raw(resp, err)
}

// Barcode 下载条码 PNG
func (c *Client) Barcode(ctx context.Context, id string, withText bool) ([]byte, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetQueryParam("text", strconv.FormatBool(withText)).
		Get("/api/v1/patients/{id}/barcode.png")
	return c.raw(resp, err)
}

func (c *Client) decode(resp *resty.Response, err error, out any) error {
	if err != nil {
		c.logger.Error("Patients API call failed", zap.Error(err))
		return fmt.Errorf("failed to call patients API: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("failed to unmarshal response (status %d): %w", resp.StatusCode(), err)
	}
	if resp.IsError() || env.Type == "error" {
		return apiError(resp.StatusCode(), env)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}

func (c *Client) raw(resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		c.logger.Error("Patients API call failed", zap.Error(err))
		return nil, fmt.Errorf("failed to call patients API: %w", err)
	}
	if resp.IsError() {
		var env envelope
		if json.Unmarshal(resp.Body(), &env) != nil {
			env.Message = http.StatusText(resp.StatusCode())
		}
		return nil, apiError(resp.StatusCode(), env)
	}
	return resp.Body(), nil
}

func apiError(status int, env envelope) *APIError {
	e := &APIError{StatusCode: status, Message: env.Message}
	var detail struct {
		Field string `json:"field"`
	}
	if len(env.Result) > 0 && json.Unmarshal(env.Result, &detail) == nil {
		e.Field = detail.Field
	}
	return e
}
