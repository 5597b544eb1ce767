package domain

import (
	"fmt"
	"strings"
	"time"
)

// Patient 患者识别记录（持久槽中集合的元素）
// 创建后不可修改；集合只追加
type Patient struct {
	Identifier string `json:"identifier"` // P + 6 位数字，创建时分配

	Name           string `json:"name"`
	Age            int    `json:"age"` // 1..120（由服务层校验）
	Gender         string `json:"gender"`
	BloodType      string `json:"bloodType"`
	Contact        string `json:"contact"`
	Address        string `json:"address"`
	MedicalHistory string `json:"medicalHistory"`

	RegisteredAt time.Time `json:"registeredAt"` // ISO-8601，创建时写入
}

// PatientFields 登记时由调用方提供的字段（不含 Identifier / RegisteredAt）
type PatientFields struct {
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	BloodType      string `json:"bloodType"`
	Contact        string `json:"contact"`
	Address        string `json:"address"`
	MedicalHistory string `json:"medicalHistory"`
}

// NewPatient 由字段、标识和登记时间组装记录
func NewPatient(id string, f PatientFields, registeredAt time.Time) Patient {
	return Patient{
		Identifier:     id,
		Name:           f.Name,
		Age:            f.Age,
		Gender:         f.Gender,
		BloodType:      f.BloodType,
		Contact:        f.Contact,
		Address:        f.Address,
		MedicalHistory: f.MedicalHistory,
		RegisteredAt:   registeredAt,
	}
}

// Fields 去掉标识与时间后的字段
func (p Patient) Fields() PatientFields {
	return PatientFields{
		Name:           p.Name,
		Age:            p.Age,
		Gender:         p.Gender,
		BloodType:      p.BloodType,
		Contact:        p.Contact,
		Address:        p.Address,
		MedicalHistory: p.MedicalHistory,
	}
}

// Text 单条记录的纯文本导出，每行一个字段
func (p Patient) Text() string {
	var b strings.Builder
	line := func(label, value string) {
		fmt.Fprintf(&b, "%s: %s\n", label, value)
	}
	line("Patient ID", p.Identifier)
	line("Name", p.Name)
	line("Age", fmt.Sprintf("%d", p.Age))
	line("Gender", p.Gender)
	line("Blood Type", p.BloodType)
	line("Contact", p.Contact)
	line("Address", p.Address)
	line("Medical History", p.MedicalHistory)
	line("Registration Date", p.RegisteredAt.UTC().Format(time.RFC3339))
	return b.String()
}

// TextFilename 单条记录文本导出的文件名
func (p Patient) TextFilename() string {
	return "Patient-" + p.Identifier + ".txt"
}
