package repository

import (
	"errors"
	"session_control_backend/internal/model"
	"session_control_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

// WithTx returns a repository bound to an open transaction.
func (r *SessionRepository) WithTx(tx *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: tx}
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrSessionNotFound
	}
	return err
}

func (r *SessionRepository) Create(session *model.Session, strategies, teachers, students, domains []string) error {
	if err := r.DB.Create(session).Error; err != nil {
		return err
	}

	if len(strategies) > 0 {
		rows := make([]model.SessionStrategy, 0, len(strategies))
		for _, id := range strategies {
			rows = append(rows, model.SessionStrategy{SessionID: session.ID, StrategyID: id})
		}
		if err := r.DB.Create(&rows).Error; err != nil {
			return err
		}
	}
	if len(teachers) > 0 {
		rows := make([]model.SessionTeacher, 0, len(teachers))
		for _, id := range teachers {
			rows = append(rows, model.SessionTeacher{SessionID: session.ID, TeacherID: id})
		}
		if err := r.DB.Create(&rows).Error; err != nil {
			return err
		}
	}
	if len(students) > 0 {
		rows := make([]model.SessionStudent, 0, len(students))
		for _, id := range students {
			rows = append(rows, model.SessionStudent{SessionID: session.ID, StudentID: id})
		}
		if err := r.DB.Create(&rows).Error; err != nil {
			return err
		}
	}
	if len(domains) > 0 {
		rows := make([]model.SessionDomain, 0, len(domains))
		for _, id := range domains {
			rows = append(rows, model.SessionDomain{SessionID: session.ID, DomainID: id})
		}
		if err := r.DB.Create(&rows).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *SessionRepository) CodeExists(code string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Session{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *SessionRepository) FindByID(id uint) (*model.Session, error) {
	var session model.Session
	if err := r.DB.First(&session, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &session, nil
}

// FindByIDForUpdate row-locks the session until the surrounding transaction
// ends. SQLite ignores the locking clause; its writer lock already serialises.
func (r *SessionRepository) FindByIDForUpdate(id uint) (*model.Session, error) {
	var session model.Session
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).First(&session, id).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &session, nil
}

func (r *SessionRepository) FindByCode(code string) (*model.Session, error) {
	var session model.Session
	if err := r.DB.Where("code = ?", code).First(&session).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &session, nil
}

func (r *SessionRepository) ListIDs() ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Session{}).Order("id asc").Pluck("id", &ids).Error
	return ids, err
}

// Update writes the given columns. Callers hold the row from
// FindByIDForUpdate, so an unchanged row is not treated as missing.
func (r *SessionRepository) Update(id uint, fields map[string]interface{}) error {
	return r.DB.Model(&model.Session{}).Where("id = ?", id).Updates(fields).Error
}

func (r *SessionRepository) StrategyIDs(id uint) ([]string, error) {
	ids := []string{}
	err := r.DB.Model(&model.SessionStrategy{}).Where("session_id = ?", id).Order("id asc").Pluck("strategy_id", &ids).Error
	return ids, err
}

func (r *SessionRepository) TeacherIDs(id uint) ([]string, error) {
	ids := []string{}
	err := r.DB.Model(&model.SessionTeacher{}).Where("session_id = ?", id).Order("id asc").Pluck("teacher_id", &ids).Error
	return ids, err
}

func (r *SessionRepository) StudentIDs(id uint) ([]string, error) {
	ids := []string{}
	err := r.DB.Model(&model.SessionStudent{}).Where("session_id = ?", id).Order("id asc").Pluck("student_id", &ids).Error
	return ids, err
}

func (r *SessionRepository) DomainIDs(id uint) ([]string, error) {
	ids := []string{}
	err := r.DB.Model(&model.SessionDomain{}).Where("session_id = ?", id).Order("id asc").Pluck("domain_id", &ids).Error
	return ids, err
}

func (r *SessionRepository) CountStrategies(id uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.SessionStrategy{}).Where("session_id = ?", id).Count(&count).Error
	return count, err
}

// ReplaceStrategies leaves exactly one strategy row for the session.
func (r *SessionRepository) ReplaceStrategies(id uint, strategyID string) error {
	if err := r.DB.Where("session_id = ?", id).Delete(&model.SessionStrategy{}).Error; err != nil {
		return err
	}
	return r.DB.Create(&model.SessionStrategy{SessionID: id, StrategyID: strategyID}).Error
}

// ReplaceDomains leaves exactly one domain row for the session.
func (r *SessionRepository) ReplaceDomains(id uint, domainID string) error {
	if err := r.DB.Where("session_id = ?", id).Delete(&model.SessionDomain{}).Error; err != nil {
		return err
	}
	return r.DB.Create(&model.SessionDomain{SessionID: id, DomainID: domainID}).Error
}

// EnsureStudent enrolls a student once; repeated calls are no-ops.
func (r *SessionRepository) EnsureStudent(id uint, studentID string) error {
	var count int64
	if err := r.DB.Model(&model.SessionStudent{}).
		Where("session_id = ? AND student_id = ?", id, studentID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.DB.Create(&model.SessionStudent{SessionID: id, StudentID: studentID}).Error
}

// EnsureTeacher enrolls a teacher once; repeated calls are no-ops.
func (r *SessionRepository) EnsureTeacher(id uint, teacherID string) error {
	var count int64
	if err := r.DB.Model(&model.SessionTeacher{}).
		Where("session_id = ? AND teacher_id = ?", id, teacherID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.DB.Create(&model.SessionTeacher{SessionID: id, TeacherID: teacherID}).Error
}

func (r *SessionRepository) DeleteVerifiedAnswers(id uint) error {
	return r.DB.Where("session_id = ?", id).Delete(&model.VerifiedAnswer{}).Error
}

// Delete removes the session together with every row that references it.
func (r *SessionRepository) Delete(id uint) error {
	children := []interface{}{
		&model.SessionStrategy{},
		&model.SessionTeacher{},
		&model.SessionStudent{},
		&model.SessionDomain{},
		&model.VerifiedAnswer{},
		&model.ExtraNote{},
		&model.SessionRating{},
	}
	for _, child := range children {
		if err := r.DB.Where("session_id = ?", id).Delete(child).Error; err != nil {
			return err
		}
	}
	res := r.DB.Delete(&model.Session{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrSessionNotFound
	}
	return nil
}

// Details assembles the composite read model for one session.
func (r *SessionRepository) Details(id uint) (*model.SessionDetails, error) {
	session, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}

	details := &model.SessionDetails{
		Session:         *session,
		ExecutedIndices: []int(model.ParseLedger(session.ExecutedIndices)),
		VerifiedAnswers: []model.VerifiedAnswer{},
		ExtraNotes:      []model.ExtraNote{},
	}

	if details.Strategies, err = r.StrategyIDs(id); err != nil {
		return nil, err
	}
	if details.Teachers, err = r.TeacherIDs(id); err != nil {
		return nil, err
	}
	if details.Students, err = r.StudentIDs(id); err != nil {
		return nil, err
	}
	if details.Domains, err = r.DomainIDs(id); err != nil {
		return nil, err
	}
	if err := r.DB.Where("session_id = ?", id).Order("id asc").Find(&details.VerifiedAnswers).Error; err != nil {
		return nil, err
	}
	if err := r.DB.Where("session_id = ?", id).Order("id asc").Find(&details.ExtraNotes).Error; err != nil {
		return nil, err
	}

	return details, nil
}
