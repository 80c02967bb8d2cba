package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a lookup id is unknown.
var ErrNotFound = errors.New("lookup not found")

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Lookup{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveLookup inserts a lookup row.
func (d *Database) SaveLookup(l *Lookup) error {
	if l == nil {
		return errors.New("lookup is nil")
	}
	if strings.TrimSpace(l.ID) == "" {
		return errors.New("lookup id is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(l).Error
}

// GetLookup fetches a single lookup by id.
func (d *Database) GetLookup(id string) (*Lookup, error) {
	var row Lookup
	if err := d.gorm.First(&row, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// ListLookups returns lookups newest first along with the unpaged total.
func (d *Database) ListLookups(opts LookupQuery) ([]Lookup, int64, error) {
	base := d.gorm.Model(&Lookup{})
	if country := strings.TrimSpace(opts.Country); country != "" {
		base = base.Where("country = ?", country)
	}
	if state := strings.TrimSpace(opts.State); state != "" {
		base = base.Where("state = ?", strings.ToLower(state))
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base.Order("created_at DESC").Order("id ASC").Offset(opts.Offset)
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	var rows []Lookup
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CountLookupsByState returns how many lookups ended in each state.
func (d *Database) CountLookupsByState() (map[string]int64, error) {
	var rows []struct {
		State string
		Total int64
	}
	if err := d.gorm.Model(&Lookup{}).Select("state, COUNT(*) AS total").Group("state").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.State] = row.Total
	}
	return out, nil
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_lookups_country_created ON lookups(country, created_at)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
