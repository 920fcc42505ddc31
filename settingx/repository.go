package settingx

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go.eggybyte.com/settings/core/errors"
)

// Repository is the persistence collaborator of the store. Each write is
// atomic for a single setting.
type Repository interface {
	Finder

	// Find returns the settings matching criteria ordered by group, weight, label.
	Find(ctx context.Context, criteria Criteria) ([]*Setting, error)

	// Create inserts s. Returns CodeAlreadyExists when group:label is taken.
	Create(ctx context.Context, s *Setting) (*Setting, error)

	// Update applies fields to the single setting matching criteria and
	// returns it as written. Returns CodeNotFound when nothing matches.
	Update(ctx context.Context, criteria Criteria, fields map[string]any) (*Setting, error)

	// Delete removes the single setting matching criteria and returns it.
	Delete(ctx context.Context, criteria Criteria) (*Setting, error)
}

// ErrNotFound is the cause of every CodeNotFound error the repository returns.
var ErrNotFound = stderrors.New("setting not found")

// GORMRepository implements Repository with GORM.
type GORMRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a GORMRepository.
// Panics if db is nil (fail-fast at startup).
func NewGORMRepository(db *gorm.DB) *GORMRepository {
	if db == nil {
		panic("NewGORMRepository: database cannot be nil")
	}
	return &GORMRepository{db: db}
}

// AutoMigrate creates or updates the settings table.
func (r *GORMRepository) AutoMigrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&Setting{}); err != nil {
		return errors.Wrap(errors.CodeInternal, "settings.migrate", err)
	}
	return nil
}

func ordered(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: FieldGroup}},
		{Column: clause.Column{Name: FieldWeight}},
		{Column: clause.Column{Name: FieldLabel}},
	}})
}

func uniqueCriteria(op string, criteria Criteria) error {
	if err := criteria.Check(); err != nil {
		return errors.Wrap(errors.CodeInvalidArgument, op, err)
	}
	if !criteria.Unique() {
		return errors.Newf(errors.CodeInvalidArgument, "%s needs an id or a group and label", op)
	}
	return nil
}

func first(tx *gorm.DB, op string, criteria Criteria) (*Setting, error) {
	var s Setting
	err := tx.Where(criteria.conditions()).Take(&s).Error
	if err == nil {
		return &s, nil
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(errors.CodeNotFound, op, ErrNotFound)
	}
	return nil, errors.Wrap(errors.CodeInternal, op, err)
}

// FindOne returns the setting matching criteria.
func (r *GORMRepository) FindOne(ctx context.Context, criteria Criteria) (*Setting, error) {
	if err := uniqueCriteria("settings.find_one", criteria); err != nil {
		return nil, err
	}
	return first(r.db.WithContext(ctx), "settings.find_one", criteria)
}

// Find returns every setting matching criteria. Empty criteria match all.
func (r *GORMRepository) Find(ctx context.Context, criteria Criteria) ([]*Setting, error) {
	if err := criteria.Check(); err != nil {
		return nil, errors.Wrap(errors.CodeInvalidArgument, "settings.find", err)
	}

	tx := ordered(r.db.WithContext(ctx))
	if len(criteria) > 0 {
		tx = tx.Where(criteria.conditions())
	}

	var out []*Setting
	if err := tx.Find(&out).Error; err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "settings.find", err)
	}
	return out, nil
}

// Create inserts s, checking group:label uniqueness first.
func (r *GORMRepository) Create(ctx context.Context, s *Setting) (*Setting, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Setting{}).Where(ByKey(s.Group, s.Label).conditions()).Count(&n).Error; err != nil {
			return errors.Wrap(errors.CodeInternal, "settings.create", err)
		}
		if n > 0 {
			return errors.Newf(errors.CodeAlreadyExists, "setting %s already exists", s.Key())
		}
		if err := tx.Create(s).Error; err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.Newf(errors.CodeAlreadyExists, "setting %s already exists", s.Key())
			}
			return errors.Wrap(errors.CodeInternal, "settings.create", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Update reads the matching row, applies fields and saves it in one transaction.
func (r *GORMRepository) Update(ctx context.Context, criteria Criteria, fields map[string]any) (*Setting, error) {
	if err := uniqueCriteria("settings.update", criteria); err != nil {
		return nil, err
	}

	var updated *Setting
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := first(tx, "settings.update", criteria)
		if err != nil {
			return err
		}
		if err := s.apply(fields); err != nil {
			return err
		}
		if err := tx.Save(s).Error; err != nil {
			return errors.Wrap(errors.CodeInternal, "settings.update", err)
		}
		updated = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the matching row and returns it.
func (r *GORMRepository) Delete(ctx context.Context, criteria Criteria) (*Setting, error) {
	if err := uniqueCriteria("settings.delete", criteria); err != nil {
		return nil, err
	}

	var deleted *Setting
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := first(tx, "settings.delete", criteria)
		if err != nil {
			return err
		}
		if err := tx.Delete(&Setting{}, "id = ?", s.ID).Error; err != nil {
			return errors.Wrap(errors.CodeInternal, "settings.delete", err)
		}
		deleted = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
