package repository

import (
	"context"

	"wisefido-patients/internal/domain"
)

// PatientsRepository 患者记录Repository接口
// 集合有序（登记顺序），只追加；不做字段校验（由Service层负责）
type PatientsRepository interface {
	// List 返回完整集合；槽不存在时返回空切片
	List(ctx context.Context) ([]domain.Patient, error)

	// GetByID 按标识精确匹配；未找到返回 (nil, nil)
	GetByID(ctx context.Context, id string) (*domain.Patient, error)

	// Add 生成标识、写入登记时间、追加并整体写回
	Add(ctx context.Context, fields domain.PatientFields) (*domain.Patient, error)
}
