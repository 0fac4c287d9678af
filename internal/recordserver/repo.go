package recordserver

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// Record is one stored document. Body holds the full JSON object, id field
// included, so reads never need to rebuild it.
type Record struct {
	Collection string `gorm:"primaryKey;size:64"`
	DocID      string `gorm:"primaryKey;size:64;column:doc_id"`
	Body       string `gorm:"type:text;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Record) TableName() string { return "records" }

type GormRepo struct {
	DB *gorm.DB
}

func NewGormRepo(db *gorm.DB) (*GormRepo, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	return &GormRepo{DB: db}, nil
}

func (r *GormRepo) List(ctx context.Context, collection string) ([]Record, error) {
	var items []Record
	if err := r.DB.WithContext(ctx).
		Where("collection = ?", collection).
		Order("doc_id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) Get(ctx context.Context, collection, id string) (*Record, error) {
	var rec Record
	if err := r.DB.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create stores the document built by build under the next free numeric id.
// Id allocation and insert share one transaction.
func (r *GormRepo) Create(ctx context.Context, collection string, build func(id string) (string, error)) (*Record, error) {
	var rec Record
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&Record{}).
			Where("collection = ?", collection).
			Pluck("doc_id", &ids).Error; err != nil {
			return err
		}

		id := strconv.Itoa(nextID(ids))
		body, err := build(id)
		if err != nil {
			return err
		}

		rec = Record{Collection: collection, DocID: id, Body: body}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Insert stores a document under a caller chosen id. Used by seeding.
func (r *GormRepo) Insert(ctx context.Context, collection, id, body string) error {
	rec := Record{Collection: collection, DocID: id, Body: body}
	return r.DB.WithContext(ctx).Create(&rec).Error
}

// Update rewrites the body of an existing record through fn, inside one
// transaction so concurrent patches do not lose fields.
func (r *GormRepo) Update(ctx context.Context, collection, id string, fn func(body string) (string, error)) (*Record, error) {
	var rec Record
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection = ? AND doc_id = ?", collection, id).First(&rec).Error; err != nil {
			return err
		}
		body, err := fn(rec.Body)
		if err != nil {
			return err
		}
		rec.Body = body
		return tx.Save(&rec).Error
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *GormRepo) Delete(ctx context.Context, collection, id string) error {
	res := r.DB.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Delete(&Record{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&Record{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func nextID(ids []string) int {
	top := 0
	for _, id := range ids {
		if n, err := strconv.Atoi(id); err == nil && n > top {
			top = n
		}
	}
	return top + 1
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
