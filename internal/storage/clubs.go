package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stitts-dev/voice-caddie/internal/models"
	"github.com/stitts-dev/voice-caddie/internal/services"
)

// ClubRecord is one club in a player's bag
type ClubRecord struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string    `gorm:"type:uuid;index;not null" json:"user_id"`
	Type        string    `gorm:"not null" json:"type"` // "driver", "wood", "hybrid", "iron", "wedge"
	Number      int       `json:"number"`
	Name        string    `gorm:"not null" json:"name"`
	MinDistance float64   `gorm:"not null" json:"min_distance"` // carry range in yards, inclusive
	MaxDistance float64   `gorm:"not null" json:"max_distance"`
	SortOrder   int       `gorm:"not null;default:0" json:"sort_order"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Shaft, loft and any fitting notes stored as JSON
	Attributes datatypes.JSON `gorm:"type:jsonb" json:"attributes,omitempty"`
}

// TableName specifies the table name for GORM
func (ClubRecord) TableName() string {
	return "player_clubs"
}

// PlayerProfileRecord holds per-user caddie preferences
type PlayerProfileRecord struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string    `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	SkillLevel string    `gorm:"default:intermediate" json:"skill_level"` // "beginner", "intermediate", "advanced"
	Units      string    `gorm:"default:imperial" json:"units"`
	Verbosity  string    `gorm:"default:detailed" json:"verbosity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Preferences datatypes.JSON `gorm:"type:jsonb" json:"preferences,omitempty"`
}

// TableName specifies the table name for GORM
func (PlayerProfileRecord) TableName() string {
	return "player_profiles"
}

// ClubRepository reads and writes player bags and profiles
type ClubRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewClubRepository creates a repository and migrates its tables
func NewClubRepository(db *gorm.DB, logger *logrus.Logger) (*ClubRepository, error) {
	if err := db.AutoMigrate(&ClubRecord{}, &PlayerProfileRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate club tables: %w", err)
	}
	return &ClubRepository{db: db, logger: logger}, nil
}

// ListClubs returns the active clubs for a user ordered by sort order
func (r *ClubRepository) ListClubs(userID string) ([]ClubRecord, error) {
	var clubs []ClubRecord
	err := r.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("sort_order asc").
		Find(&clubs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list clubs for user %s: %w", userID, err)
	}
	return clubs, nil
}

// SaveClub upserts one club
func (r *ClubRepository) SaveClub(club *ClubRecord) error {
	if club.ID == "" {
		club.ID = uuid.New().String()
	}
	return r.db.Save(club).Error
}

// DeleteClub soft-disables a club
func (r *ClubRepository) DeleteClub(id string) error {
	return r.db.Model(&ClubRecord{}).Where("id = ?", id).Update("is_active", false).Error
}

// GetProfile loads a user's profile, or nil when none exists
func (r *ClubRepository) GetProfile(userID string) (*PlayerProfileRecord, error) {
	var profile PlayerProfileRecord
	err := r.db.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for user %s: %w", userID, err)
	}
	return &profile, nil
}

// SaveProfile upserts a user's profile
func (r *ClubRepository) SaveProfile(profile *PlayerProfileRecord) error {
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	return r.db.Save(profile).Error
}

// CatalogForUser builds a club catalog from the user's bag. When the
// user has no stored clubs, the stock catalog is returned.
func (r *ClubRepository) CatalogForUser(userID string) (services.ClubCatalog, error) {
	if userID == "" {
		return services.BuiltinCatalog{}, nil
	}
	clubs, err := r.ListClubs(userID)
	if err != nil {
		return nil, err
	}
	if len(clubs) == 0 {
		return services.BuiltinCatalog{}, nil
	}

	specs := make([]services.ClubSpec, len(clubs))
	for i, club := range clubs {
		specs[i] = services.ClubSpec{
			Type:     club.Type,
			Number:   club.Number,
			Name:     club.Name,
			MinYards: club.MinDistance,
			MaxYards: club.MaxDistance,
		}
	}
	return &inventoryCatalog{specs: specs}, nil
}

// inventoryCatalog selects from a player's stored bag with the same
// first-matching-range rule as the stock table.
type inventoryCatalog struct {
	specs []services.ClubSpec
}

func (c *inventoryCatalog) SelectClub(distance float64, _ models.Lie) services.ClubSpec {
	for _, club := range c.specs {
		if distance >= club.MinYards && distance <= club.MaxYards {
			return club
		}
	}
	// fall back to the mid iron closest to the middle of the bag
	return c.specs[len(c.specs)/2]
}

func (c *inventoryCatalog) SelectBackupClub(distance float64, lie models.Lie) services.ClubSpec {
	return c.SelectClub(distance+10, lie)
}
