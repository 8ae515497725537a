package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"moul.io/zapgorm2"

	"github.com/bigredeye/notmanyjudges/internal/models"
	"github.com/bigredeye/notmanyjudges/internal/store"
)

var _ store.Repository = (*DataBase)(nil)

type DataBase struct {
	*gorm.DB
}

type DuplicateKey struct {
	nested error
}

func (e *DuplicateKey) Error() string {
	return e.nested.Error()
}

func (e *DuplicateKey) Unwrap() error {
	return e.nested
}

func (e *DuplicateKey) Is(target error) bool {
	return target == store.ErrDuplicate
}

func IsDuplicateKey(err error) bool {
	duplicateKey := &DuplicateKey{}
	return errors.As(err, &duplicateKey)
}

// gorm sucks huge balls:(
// https://github.com/go-gorm/gorm/issues/4037
func isUniqueViolation(err error) bool {
	var perr *pgconn.PgError
	if errors.As(err, &perr) {
		return perr.Code == "23505"
	}
	return false
}

func wrapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case isUniqueViolation(err):
		return &DuplicateKey{err}
	default:
		return err
	}
}

func OpenDataBase(logger *zap.Logger, dsn string) (*DataBase, error) {
	zapLogger := zapgorm2.New(logger.Named("gorm"))
	zapLogger.SetAsDefault()
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: zapLogger,
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&models.Event{},
		&models.Team{},
		&models.Criterion{},
		&models.Jury{},
		&models.TeamScores{},
		&models.PanelScore{},
	)
	if err != nil {
		return nil, err
	}

	return &DataBase{db}, nil
}

////////////////////////////////////////////////////////////////////////////////

func (db *DataBase) GetAggregate(ctx context.Context, teamID uint) (*models.TeamScores, error) {
	var agg models.TeamScores
	err := db.WithContext(ctx).Preload("Panels").First(&agg, "team_id = ?", teamID).Error
	if err != nil {
		return nil, wrapError(err)
	}
	return &agg, nil
}

// MergeAggregate locks the aggregate row for the duration of the patch, so the
// version check and the writes are observed as one step by concurrent callers.
func (db *DataBase) MergeAggregate(ctx context.Context, teamID uint, patch *store.Patch) error {
	if patch.Empty() {
		return nil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var team models.Team
		if err := tx.Select("id").First(&team, teamID).Error; err != nil {
			return wrapError(err)
		}

		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.TeamScores{TeamID: teamID}).Error
		if err != nil {
			return err
		}

		var agg models.TeamScores
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&agg, "team_id = ?", teamID).Error
		if err != nil {
			return wrapError(err)
		}

		if patch.IfVersion != nil && *patch.IfVersion != agg.Version {
			return store.ErrVersionConflict
		}

		if patch.Panel != nil {
			var taken int64
			err = tx.Model(&models.PanelScore{}).
				Where("team_id = ? AND panel = ?", teamID, patch.Panel.Panel).
				Count(&taken).Error
			if err != nil {
				return err
			}
			if taken > 0 {
				return store.ErrSlotTaken
			}

			panel := patch.Panel.Clone()
			panel.ID = 0
			panel.TeamID = teamID
			if err = tx.Create(panel).Error; err != nil {
				if isUniqueViolation(err) {
					return store.ErrSlotTaken
				}
				return err
			}
		}

		updates := map[string]interface{}{
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		}
		if patch.AvgScore != nil {
			updates["avg_score"] = *patch.AvgScore
		}
		if patch.ConsolidatedFeedback != nil {
			updates["consolidated_feedback"] = *patch.ConsolidatedFeedback
		}
		return tx.Model(&models.TeamScores{}).Where("team_id = ?", teamID).Updates(updates).Error
	})
}

func (db *DataBase) ListEventAggregates(ctx context.Context, eventID uint) (aggs []models.TeamScores, err error) {
	aggs = make([]models.TeamScores, 0)
	err = db.WithContext(ctx).
		Preload("Panels").
		Joins("JOIN teams ON teams.id = team_scores.team_id").
		Where("teams.event_id = ?", eventID).
		Find(&aggs).Error
	if err != nil {
		aggs = nil
	}
	return
}

////////////////////////////////////////////////////////////////////////////////

func (db *DataBase) CreateEvent(ctx context.Context, event *models.Event) error {
	return wrapError(db.WithContext(ctx).Create(event).Error)
}

func (db *DataBase) FindEvent(ctx context.Context, eventID uint) (*models.Event, error) {
	var event models.Event
	if err := db.WithContext(ctx).First(&event, eventID).Error; err != nil {
		return nil, wrapError(err)
	}
	return &event, nil
}

func (db *DataBase) ListEvents(ctx context.Context) (events []models.Event, err error) {
	events = make([]models.Event, 0)
	err = db.WithContext(ctx).Order("id").Find(&events).Error
	if err != nil {
		events = nil
	}
	return
}

func (db *DataBase) DeleteEvent(ctx context.Context, eventID uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		teams := tx.Model(&models.Team{}).Select("id").Where("event_id = ?", eventID)
		if err := tx.Where("team_id IN (?)", teams).Delete(&models.PanelScore{}).Error; err != nil {
			return err
		}
		if err := tx.Where("team_id IN (?)", teams).Delete(&models.TeamScores{}).Error; err != nil {
			return err
		}
		for _, model := range []interface{}{&models.Team{}, &models.Criterion{}, &models.Jury{}} {
			if err := tx.Where("event_id = ?", eventID).Delete(model).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&models.Event{}, eventID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected < 1 {
			return store.ErrNotFound
		}
		return nil
	})
}

////////////////////////////////////////////////////////////////////////////////

func (db *DataBase) CreateTeam(ctx context.Context, team *models.Team) error {
	if _, err := db.FindEvent(ctx, team.EventID); err != nil {
		return err
	}
	return wrapError(db.WithContext(ctx).Create(team).Error)
}

func (db *DataBase) FindTeam(ctx context.Context, teamID uint) (*models.Team, error) {
	var team models.Team
	if err := db.WithContext(ctx).First(&team, teamID).Error; err != nil {
		return nil, wrapError(err)
	}
	return &team, nil
}

func (db *DataBase) ListTeams(ctx context.Context, eventID uint) (teams []models.Team, err error) {
	teams = make([]models.Team, 0)
	err = db.WithContext(ctx).Order("id").Find(&teams, "event_id = ?", eventID).Error
	if err != nil {
		teams = nil
	}
	return
}

func (db *DataBase) DeleteTeam(ctx context.Context, teamID uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", teamID).Delete(&models.PanelScore{}).Error; err != nil {
			return err
		}
		if err := tx.Where("team_id = ?", teamID).Delete(&models.TeamScores{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Team{}, teamID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected < 1 {
			return store.ErrNotFound
		}
		return nil
	})
}

////////////////////////////////////////////////////////////////////////////////

func (db *DataBase) CreateCriterion(ctx context.Context, criterion *models.Criterion) error {
	if _, err := db.FindEvent(ctx, criterion.EventID); err != nil {
		return err
	}
	return wrapError(db.WithContext(ctx).Create(criterion).Error)
}

func (db *DataBase) ListCriteria(ctx context.Context, eventID uint) (criteria []models.Criterion, err error) {
	criteria = make([]models.Criterion, 0)
	err = db.WithContext(ctx).Order("id").Find(&criteria, "event_id = ?", eventID).Error
	if err != nil {
		criteria = nil
	}
	return
}

func (db *DataBase) ListActiveCriteria(ctx context.Context, eventID uint) (criteria []models.Criterion, err error) {
	criteria = make([]models.Criterion, 0)
	err = db.WithContext(ctx).Order("id").Find(&criteria, "event_id = ? AND active = ?", eventID, true).Error
	if err != nil {
		criteria = nil
	}
	return
}

func (db *DataBase) FindCriterion(ctx context.Context, criterionID uint) (*models.Criterion, error) {
	var criterion models.Criterion
	if err := db.WithContext(ctx).First(&criterion, criterionID).Error; err != nil {
		return nil, wrapError(err)
	}
	return &criterion, nil
}

func (db *DataBase) SetCriterionActive(ctx context.Context, criterionID uint, active bool) error {
	res := db.WithContext(ctx).Model(&models.Criterion{}).
		Where("id = ?", criterionID).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected < 1 {
		return store.ErrNotFound
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////

func (db *DataBase) CreateJury(ctx context.Context, jury *models.Jury) error {
	if _, err := db.FindEvent(ctx, jury.EventID); err != nil {
		return err
	}
	return wrapError(db.WithContext(ctx).Create(jury).Error)
}

func (db *DataBase) ListJuries(ctx context.Context, eventID uint) (juries []models.Jury, err error) {
	juries = make([]models.Jury, 0)
	err = db.WithContext(ctx).Order("panel, id").Find(&juries, "event_id = ?", eventID).Error
	if err != nil {
		juries = nil
	}
	return
}

func (db *DataBase) FindJuryByAccessCode(ctx context.Context, code string) (*models.Jury, error) {
	var jury models.Jury
	if err := db.WithContext(ctx).Take(&jury, "access_code = ?", code).Error; err != nil {
		return nil, wrapError(err)
	}
	return &jury, nil
}
