package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wisefido-patients/internal/domain"
	"wisefido-patients/internal/idgen"
	"wisefido-patients/internal/store"

	"go.uber.org/zap"
)

// DefaultSlotKey 患者集合所在的槽
const DefaultSlotKey = "patients"

// ErrIdentifierExhausted 连续 maxAttempts 次生成的标识都已被占用
var ErrIdentifierExhausted = errors.New("could not allocate a unique patient identifier")

// SlotPatientsRepository 将整个患者集合以 JSON 数组保存在一个持久槽中
type SlotPatientsRepository struct {
	slot        store.Slot
	key         string
	gen         idgen.Generator
	maxAttempts int
	now         func() time.Time
	logger      *zap.Logger
}

type SlotOption func(*SlotPatientsRepository)

func WithSlotKey(key string) SlotOption {
	return func(r *SlotPatientsRepository) { r.key = key }
}

func WithGenerator(g idgen.Generator) SlotOption {
	return func(r *SlotPatientsRepository) { r.gen = g }
}

func WithMaxAttempts(n int) SlotOption {
	return func(r *SlotPatientsRepository) { r.maxAttempts = n }
}

func WithClock(now func() time.Time) SlotOption {
	return func(r *SlotPatientsRepository) { r.now = now }
}

func NewSlotPatientsRepository(slot store.Slot, logger *zap.Logger, opts ...SlotOption) *SlotPatientsRepository {
	r := &SlotPatientsRepository{
		slot:        slot,
		key:         DefaultSlotKey,
		gen:         idgen.NewRandom(),
		maxAttempts: 10,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// 确保实现了接口
var _ PatientsRepository = (*SlotPatientsRepository)(nil)

func (r *SlotPatientsRepository) List(ctx context.Context) ([]domain.Patient, error) {
	raw, err := r.slot.Load(ctx, r.key)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return []domain.Patient{}, nil
		}
		return nil, fmt.Errorf("failed to load patients: %w", err)
	}
	return decodePatients(raw)
}

func (r *SlotPatientsRepository) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	patients, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range patients {
		if patients[i].Identifier == id {
			p := patients[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (r *SlotPatientsRepository) Add(ctx context.Context, fields domain.PatientFields) (*domain.Patient, error) {
	var created domain.Patient

	err := r.slot.Update(ctx, r.key, func(current []byte) ([]byte, error) {
		patients, err := decodePatients(current)
		if err != nil {
			return nil, err
		}

		id, err := r.allocateID(patients)
		if err != nil {
			return nil, err
		}

		created = domain.NewPatient(id, fields, r.now().UTC())
		patients = append(patients, created)
		return json.Marshal(patients)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add patient: %w", err)
	}

	r.logger.Debug("Patient appended to slot",
		zap.String("slot", r.key),
		zap.String("patient_id", created.Identifier),
	)
	return &created, nil
}

// allocateID 生成未被集合占用的标识，冲突时重试
func (r *SlotPatientsRepository) allocateID(patients []domain.Patient) (string, error) {
	taken := make(map[string]struct{}, len(patients))
	for _, p := range patients {
		taken[p.Identifier] = struct{}{}
	}
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		id := r.gen.Generate()
		if _, dup := taken[id]; !dup {
			return id, nil
		}
		r.logger.Warn("Patient identifier collision, regenerating",
			zap.String("patient_id", id),
			zap.Int("attempt", attempt),
		)
	}
	return "", ErrIdentifierExhausted
}

func decodePatients(raw []byte) ([]domain.Patient, error) {
	if len(raw) == 0 {
		return []domain.Patient{}, nil
	}
	var patients []domain.Patient
	if err := json.Unmarshal(raw, &patients); err != nil {
		return nil, fmt.Errorf("failed to decode patients slot: %w", err)
	}
	if patients == nil {
		patients = []domain.Patient{}
	}
	return patients, nil
}
