package medical

import (
	"context"
	"fmt"

	"github.com/medisched/clinic-api/internal/model"
	"github.com/medisched/clinic-api/internal/repository"
)

type Service struct {
	repo        repository.MedicalRecordRepository
	patientRepo repository.PatientRepository
	doctorRepo  repository.DoctorRepository
}

func NewService(repo repository.MedicalRecordRepository, patientRepo repository.PatientRepository, doctorRepo repository.DoctorRepository) *Service {
	return &Service{
		repo:        repo,
		patientRepo: patientRepo,
		doctorRepo:  doctorRepo,
	}
}

func (s *Service) CreateRecord(ctx context.Context, req *model.CreateMedicalRecordRequest) (*model.MedicalRecord, error) {
	if _, err := s.patientRepo.Get(ctx, req.PatientID); err != nil {
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	if _, err := s.doctorRepo.Get(ctx, req.DoctorID); err != nil {
		return nil, fmt.Errorf("failed to load doctor: %w", err)
	}

	record := &model.MedicalRecord{
		PatientID: &req.PatientID,
		DoctorID:  &req.DoctorID,
		Diagnosis: req.Diagnosis,
		Treatment: req.Treatment,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create medical record: %w", err)
	}
	return record, nil
}

func (s *Service) GetRecord(ctx context.Context, id int64) (*model.MedicalRecord, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get medical record: %w", err)
	}
	return record, nil
}

func (s *Service) ListPatientRecords(ctx context.Context, patientID int64) ([]*model.MedicalRecord, error) {
	records, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medical records: %w", err)
	}
	return records, nil
}

func (s *Service) DeleteRecord(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete medical record: %w", err)
	}
	return nil
}
