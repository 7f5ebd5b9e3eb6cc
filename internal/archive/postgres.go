package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type GameRecord struct {
	gorm.Model
	PublicID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	RoomCode   string    `gorm:"size:8;index;not null"`
	Winners    string
	TurnCount  int
	FinishedAt time.Time    `gorm:"index"`
	Teams      []TeamRecord `gorm:"foreignKey:GameRecordID"`
}

type TeamRecord struct {
	gorm.Model
	GameRecordID  uint   `gorm:"index"`
	Name          string `gorm:"not null"`
	Members       string
	Round1        int
	Round2        int
	Round3        int
	WordsCorrect  int
	SkipPenalties int
	Adjustment    int
	Total         int
}

// Store persists one finished game.
type Store interface {
	Insert(ctx context.Context, rec *GameRecord) error
}

type GormStore struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and migrates the archive tables.
func OpenPostgres(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	return NewGormStore(db)
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&GameRecord{}, &TeamRecord{}); err != nil {
		return nil, fmt.Errorf("migrate archive tables: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Insert(ctx context.Context, rec *GameRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// toRecord flattens a summary into its table rows.
func toRecord(s GameSummary) *GameRecord {
	rec := &GameRecord{
		PublicID:   uuid.New(),
		RoomCode:   s.RoomCode,
		Winners:    strings.Join(s.Winners(), ","),
		TurnCount:  len(s.Turns),
		FinishedAt: s.FinishedAt,
	}
	for _, t := range s.Teams {
		tr := TeamRecord{
			Name:          t.Name,
			Members:       strings.Join(t.Members, ","),
			WordsCorrect:  sum(t.WordsCorrect),
			SkipPenalties: sum(t.SkipPenalties),
			Adjustment:    t.Adjustment,
			Total:         t.Total,
		}
		rounds := []*int{&tr.Round1, &tr.Round2, &tr.Round3}
		for i, score := range t.RoundScores {
			if i < len(rounds) {
				*rounds[i] = score
			}
		}
		rec.Teams = append(rec.Teams, tr)
	}
	return rec
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}
