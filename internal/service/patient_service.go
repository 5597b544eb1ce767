package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wisefido-patients/internal/domain"
	"wisefido-patients/internal/export"
	"wisefido-patients/internal/repository"

	"go.uber.org/zap"
)

const (
	MinAge = 1
	MaxAge = 120
)

var (
	// ErrPatientNotFound 标识未命中
	ErrPatientNotFound = errors.New("patient not found")
	// ErrNothingToExport 待导出的（过滤后）集合为空
	ErrNothingToExport = errors.New("no patients to export")
)

// ValidationError 登记字段校验失败
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Exporter 工作簿导出接口
type Exporter interface {
	Export(ctx context.Context, records []domain.Patient) ([]byte, error)
}

// PatientService 患者服务（校验边界）
type PatientService struct {
	repo     repository.PatientsRepository
	exporter Exporter
	notifier RegistrationNotifier
	baseURL  string
	logger   *zap.Logger
}

// NewPatientService 创建患者服务；notifier 为 nil 时不发送通知
func NewPatientService(repo repository.PatientsRepository, exporter Exporter, notifier RegistrationNotifier, baseURL string, logger *zap.Logger) *PatientService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if exporter == nil {
		exporter = export.New(export.DefaultOptions(), logger)
	}
	return &PatientService{
		repo:     repo,
		exporter: exporter,
		notifier: notifier,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// RegisterPatientRequest 登记请求
type RegisterPatientRequest struct {
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	BloodType      string `json:"bloodType"`
	Contact        string `json:"contact"`
	Address        string `json:"address"`
	MedicalHistory string `json:"medicalHistory"`
}

// Validate 姓名必填，年龄 1..120
func (r RegisterPatientRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Field: "name", Message: "patient name is required"}
	}
	if r.Age < MinAge || r.Age > MaxAge {
		return &ValidationError{Field: "age", Message: fmt.Sprintf("please enter a valid age between %d and %d", MinAge, MaxAge)}
	}
	return nil
}

func (r RegisterPatientRequest) fields() domain.PatientFields {
	return domain.PatientFields{
		Name:           r.Name,
		Age:            r.Age,
		Gender:         r.Gender,
		BloodType:      r.BloodType,
		Contact:        r.Contact,
		Address:        r.Address,
		MedicalHistory: r.MedicalHistory,
	}
}

// Register 校验后登记患者，并发送登记通知（通知失败只记录日志）
func (s *PatientService) Register(ctx context.Context, req RegisterPatientRequest) (*domain.Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.repo.Add(ctx, req.fields())
	if err != nil {
		return nil, fmt.Errorf("failed to register patient: %w", err)
	}
	s.logger.Info("Patient registered", zap.String("patient_id", p.Identifier))

	if err := s.notifier.PatientRegistered(ctx, *p); err != nil {
		s.logger.Warn("Failed to publish registration event", zap.String("patient_id", p.Identifier), zap.Error(err))
	}
	return p, nil
}

// Get 按标识查询，未找到返回 ErrPatientNotFound
func (s *PatientService) Get(ctx context.Context, id string) (*domain.Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if p == nil {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (s *PatientService) List(ctx context.Context) ([]domain.Patient, error) {
	patients, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// Lookup 解析扫码 URL 或手输标识并查询
func (s *PatientService) Lookup(ctx context.Context, input string) (*domain.Patient, error) {
	id, err := ExtractIdentifier(input)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Search 按姓名或标识做不区分大小写的子串匹配，保持登记顺序；term 为空时返回全部
func (s *PatientService) Search(ctx context.Context, term string) ([]domain.Patient, error) {
	patients, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return patients, nil
	}

	matched := make([]domain.Patient, 0, len(patients))
	for _, p := range patients {
		if strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Identifier), term) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// Export 导出匹配 term 的患者工作簿；没有可导出的患者时返回 ErrNothingToExport
func (s *PatientService) Export(ctx context.Context, term string) ([]byte, error) {
	patients, err := s.Search(ctx, term)
	if err != nil {
		return nil, err
	}
	if len(patients) == 0 {
		return nil, ErrNothingToExport
	}
	return s.exporter.Export(ctx, patients)
}

// Links 患者的完整链接与短链接
func (s *PatientService) Links(id string) (link, short string) {
	return PatientLink(s.baseURL, id), ShortPatientLink(s.baseURL, id)
}
