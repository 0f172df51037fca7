package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/medisched/clinic-api/internal/model"
	"github.com/medisched/clinic-api/internal/repository"
	"github.com/medisched/clinic-api/pkg/auth"
	apperrors "github.com/medisched/clinic-api/pkg/errors"
	"github.com/medisched/clinic-api/pkg/logger"
	"github.com/medisched/clinic-api/pkg/security"
)

const (
	bcryptCost = 12

	resolveCacheTTL     = 5 * time.Minute
	resolveCacheCleanup = 10 * time.Minute
)

// Service maps verified account identifiers onto role-entity rows and owns
// the account lifecycle around them. Resolution is read-only; deletes keep
// the account and its role-entity row consistent in one transaction.
type Service struct {
	accountRepo repository.AccountRepository
	doctorRepo  repository.DoctorRepository
	patientRepo repository.PatientRepository
	adminRepo   repository.AdminRepository
	jwtSvc      auth.TokenIssuer
	hasher      security.PasswordHasher
	cache       *cache.Cache
	logger      *logger.Logger
}

func NewService(
	accountRepo repository.AccountRepository,
	doctorRepo repository.DoctorRepository,
	patientRepo repository.PatientRepository,
	adminRepo repository.AdminRepository,
	jwtSvc auth.TokenIssuer,
	logger *logger.Logger,
) *Service {
	return &Service{
		accountRepo: accountRepo,
		doctorRepo:  doctorRepo,
		patientRepo: patientRepo,
		adminRepo:   adminRepo,
		jwtSvc:      jwtSvc,
		hasher:      security.NewBcryptHasher(bcryptCost),
		cache:       cache.New(resolveCacheTTL, resolveCacheCleanup),
		logger:      logger,
	}
}

// ResolveEntityID translates an account id into the primary key of the
// single role-entity row owned by that account. Callers never supply their
// own numeric id; "my profile" style operations go through here.
//
// A missing account, an unparseable stored role, and a missing role-entity
// row all surface as NotFound. The latter two are data-integrity gaps, so
// they are logged distinctly before being flattened for the caller.
func (s *Service) ResolveEntityID(ctx context.Context, accountID string) (int64, error) {
	if id, ok := s.cache.Get(accountID); ok {
		return id.(int64), nil
	}

	account, err := s.accountRepo.Get(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve account %s: %w", accountID, err)
	}

	role, err := model.ParseRole(string(account.Role))
	if err != nil {
		s.logger.Warn("account carries unrecognized role",
			"account_id", accountID, "role", string(account.Role))
		return 0, apperrors.NewNotFound("account role", err)
	}

	var entityID int64
	switch role {
	case model.RoleDoctor:
		doctor, err := s.doctorRepo.GetByAccountID(ctx, accountID)
		if err != nil {
			return 0, s.integrityGap(accountID, role, err)
		}
		entityID = doctor.ID
	case model.RolePatient:
		patient, err := s.patientRepo.GetByAccountID(ctx, accountID)
		if err != nil {
			return 0, s.integrityGap(accountID, role, err)
		}
		entityID = patient.ID
	case model.RoleAdmin:
		admin, err := s.adminRepo.GetByAccountID(ctx, accountID)
		if err != nil {
			return 0, s.integrityGap(accountID, role, err)
		}
		entityID = admin.ID
	}

	s.cache.SetDefault(accountID, entityID)
	return entityID, nil
}

// integrityGap marks an account whose role-entity row is missing. The
// caller still sees a plain NotFound.
func (s *Service) integrityGap(accountID string, role model.Role, err error) error {
	if apperrors.IsNotFound(err) {
		s.logger.Warn("account has no role-entity row",
			"account_id", accountID, "role", role.String())
	}
	return fmt.Errorf("failed to resolve %s entity for account %s: %w", role, accountID, err)
}

// Register creates the account and its role-entity row atomically. The
// account id comes from the per-role sequence (e.g. "D007" for a doctor).
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.Account, int64, error) {
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return nil, 0, apperrors.NewBadRequest("unknown role", err)
	}

	if existing, err := s.accountRepo.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, 0, apperrors.NewConflict("email already registered", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if err == security.ErrPasswordTooShort {
			return nil, 0, apperrors.NewBadRequest("password too short", err)
		}
		return nil, 0, fmt.Errorf("failed to hash password: %w", err)
	}

	accountID, err := s.accountRepo.NextID(ctx, role)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to allocate account id: %w", err)
	}

	account := &model.Account{
		ID:           accountID,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	}

	var entityID int64
	switch role {
	case model.RoleDoctor:
		doctor := &model.Doctor{Name: req.Name, Email: req.Email, Phone: req.Phone, Specialty: req.Specialty}
		if err := s.doctorRepo.CreateWithAccount(ctx, account, doctor); err != nil {
			return nil, 0, fmt.Errorf("failed to register doctor: %w", err)
		}
		entityID = doctor.ID
	case model.RolePatient:
		patient := &model.Patient{Name: req.Name, Email: req.Email, Phone: req.Phone}
		if err := s.patientRepo.CreateWithAccount(ctx, account, patient); err != nil {
			return nil, 0, fmt.Errorf("failed to register patient: %w", err)
		}
		entityID = patient.ID
	case model.RoleAdmin:
		admin := &model.Admin{Name: req.Name, Email: req.Email, Phone: req.Phone}
		if err := s.adminRepo.CreateWithAccount(ctx, account, admin); err != nil {
			return nil, 0, fmt.Errorf("failed to register admin: %w", err)
		}
		entityID = admin.ID
	}

	s.logger.Info("registered account", "account_id", account.ID, "role", role.String())
	return account, entityID, nil
}

// Login verifies the password and issues a token carrying the verified
// (account id, role) pair. Nothing past this point touches credentials.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	account, err := s.accountRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized(fmt.Errorf("invalid credentials"))
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := s.hasher.Compare(account.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized(fmt.Errorf("invalid credentials"))
	}

	token, expiresAt, err := s.jwtSvc.GenerateToken(account)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &model.TokenResponse{
		AccessToken: token,
		AccountID:   account.ID,
		Role:        account.Role,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*model.Doctor, error) {
	doctor, err := s.doctorRepo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return doctor, nil
}

func (s *Service) ListDoctors(ctx context.Context) ([]*model.Doctor, error) {
	doctors, err := s.doctorRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

func (s *Service) UpdateDoctor(ctx context.Context, id int64, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	doctor, err := s.doctorRepo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}

	if req.Name != nil {
		doctor.Name = *req.Name
	}
	if req.Email != nil {
		doctor.Email = *req.Email
	}
	if req.Phone != nil {
		doctor.Phone = *req.Phone
	}
	if req.Specialty != nil {
		doctor.Specialty = *req.Specialty
	}

	if err := s.doctorRepo.Update(ctx, doctor); err != nil {
		return nil, fmt.Errorf("failed to update doctor: %w", err)
	}
	return doctor, nil
}

// DeleteDoctor removes the doctor row and its owning account in one
// transaction. Appointments and medical records are orphaned by the
// schema, never deleted.
func (s *Service) DeleteDoctor(ctx context.Context, id int64) error {
	doctor, err := s.doctorRepo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get doctor: %w", err)
	}

	if err := s.doctorRepo.DeleteWithAccount(ctx, id); err != nil {
		return fmt.Errorf("failed to delete doctor: %w", err)
	}

	s.cache.Delete(doctor.AccountID)
	s.logger.Info("deleted doctor and owning account",
		"doctor_id", id, "account_id", doctor.AccountID)
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*model.Patient, error) {
	patient, err := s.patientRepo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

func (s *Service) ListPatients(ctx context.Context) ([]*model.Patient, error) {
	patients, err := s.patientRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (s *Service) UpdatePatient(ctx context.Context, id int64, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.patientRepo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	if req.Name != nil {
		patient.Name = *req.Name
	}
	if req.Email != nil {
		patient.Email = *req.Email
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}

	if err := s.patientRepo.Update(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return patient, nil
}

func (s *Service) DeletePatient(ctx context.Context, id int64) error {
	patient, err := s.patientRepo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get patient: %w", err)
	}

	if err := s.patientRepo.DeleteWithAccount(ctx, id); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	s.cache.Delete(patient.AccountID)
	s.logger.Info("deleted patient and owning account",
		"patient_id", id, "account_id", patient.AccountID)
	return nil
}

func (s *Service) GetAdmin(ctx context.Context, id int64) (*model.Admin, error) {
	admin, err := s.adminRepo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return admin, nil
}

func (s *Service) ListAdmins(ctx context.Context) ([]*model.Admin, error) {
	admins, err := s.adminRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}

func (s *Service) DeleteAdmin(ctx context.Context, id int64) error {
	admin, err := s.adminRepo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get admin: %w", err)
	}

	if err := s.adminRepo.DeleteWithAccount(ctx, id); err != nil {
		return fmt.Errorf("failed to delete admin: %w", err)
	}

	s.cache.Delete(admin.AccountID)
	s.logger.Info("deleted admin and owning account",
		"admin_id", id, "account_id", admin.AccountID)
	return nil
}
