package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	DSN string `yaml:"dsn"`
}

// Record is one product row projected for indexing, joined with its
// category name, vendor username and feedback aggregates. The core reads
// records and never writes them back.
type Record struct {
	ID          int64
	Name        string
	Description string
	Price       float64
	Quantity    int
	Available   bool
	Category    string
	Vendor      string
	Rating      *float64
	Reviews     []string

	// Extra carries additional attributes discovered outside the fixed
	// column set. Keys are filtered against the sensitive-field denylist
	// before they can reach document text.
	Extra map[string]string
}

// Source yields catalog records in stable ID order, batch by batch.
// An empty batch marks the end of the source.
type Source interface {
	Records(ctx context.Context, offset, limit int) ([]Record, error)
	Close() error
}

type User struct {
	ID         int64
	Username   string
	Email      string
	Password   string
	IsVendor   bool
	IsRetailer bool
}

func (User) TableName() string { return "users" }

type Category struct {
	ID   int64
	Name string
}

func (Category) TableName() string { return "categories" }

type Product struct {
	ID          int64
	VendorID    int64
	CategoryID  *int64
	Name        string
	Description string
	Price       float64
	Quantity    int
	Available   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Product) TableName() string { return "products" }

type Feedback struct {
	ID        int64
	ProductID int64
	VendorID  int64
	Rating    int
	Comment   string
	CreatedAt time.Time
}

func (Feedback) TableName() string { return "feedbacks" }

// AutoMigrate creates the catalog schema. The service itself only reads;
// this exists for tests and local bootstrapping.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Category{}, &Product{}, &Feedback{})
}

func NewSource(cfg Config) (Source, error) {
	db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})

	if err != nil {
		return nil, err
	}

	return &gormSource{db}, nil
}

// NewSourceWithDB wraps an existing connection, typically in tests.
func NewSourceWithDB(db *gorm.DB) Source {
	return &gormSource{db}
}

type gormSource struct {
	db *gorm.DB
}

type productRow struct {
	ID          int64
	Name        string
	Description string
	Price       float64
	Quantity    int
	Available   bool
	Category    sql.NullString
	Vendor      sql.NullString
}

func (s *gormSource) Records(ctx context.Context, offset, limit int) ([]Record, error) {
	var rows []productRow

	err := s.db.WithContext(ctx).
		Table("products").
		Select("products.id, products.name, products.description, products.price, "+
			"products.quantity, products.available, "+
			"categories.name AS category, users.username AS vendor").
		Joins("LEFT JOIN categories ON categories.id = products.category_id").
		Joins("LEFT JOIN users ON users.id = products.vendor_id").
		Order("products.id").
		Offset(offset).
		Limit(limit).
		Scan(&rows).Error

	if err != nil {
		return nil, err
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		record := Record{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			Price:       row.Price,
			Quantity:    row.Quantity,
			Available:   row.Available,
			Category:    row.Category.String,
			Vendor:      row.Vendor.String,
		}

		rating, reviews, err := s.feedback(ctx, row.ID)
		if err != nil {
			return nil, err
		}

		record.Rating = rating
		record.Reviews = reviews

		records[i] = record
	}

	return records, nil
}

func (s *gormSource) feedback(ctx context.Context, productID int64) (*float64, []string, error) {
	var avg sql.NullFloat64

	err := s.db.WithContext(ctx).
		Model(&Feedback{}).
		Where("product_id = ?", productID).
		Select("AVG(rating)").
		Scan(&avg).Error

	if err != nil {
		return nil, nil, err
	}

	var comments []string

	err = s.db.WithContext(ctx).
		Model(&Feedback{}).
		Where("product_id = ? AND comment <> ''", productID).
		Order("id").
		Pluck("comment", &comments).Error

	if err != nil {
		return nil, nil, err
	}

	if !avg.Valid {
		return nil, comments, nil
	}

	rating := avg.Float64
	return &rating, comments, nil
}

func (s *gormSource) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
