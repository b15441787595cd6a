package persistence

import (
	"context"
	"errors"

	"github.com/erp/manufacturing/internal/domain/manufacturing"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/erp/manufacturing/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBOMRepository implements BOMRepository using GORM
type GormBOMRepository struct {
	db *gorm.DB
}

// NewGormBOMRepository creates a new GormBOMRepository
func NewGormBOMRepository(db *gorm.DB) *GormBOMRepository {
	return &GormBOMRepository{db: db}
}

func (r *GormBOMRepository) withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("line ASC")
	})
}

func (r *GormBOMRepository) first(query *gorm.DB, id int64) (*manufacturing.BillOfMaterial, error) {
	var model models.BillOfMaterialModel
	if err := r.withItems(query).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("bom_id", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds a BOM with its items
func (r *GormBOMRepository) FindByID(ctx context.Context, id int64) (*manufacturing.BillOfMaterial, error) {
	return r.first(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate loads a BOM under a row lock on its header
func (r *GormBOMRepository) FindByIDForUpdate(ctx context.Context, id int64) (*manufacturing.BillOfMaterial, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), id)
}

// FindLatestForUpdate locks the product's current latest version
func (r *GormBOMRepository) FindLatestForUpdate(ctx context.Context, productID int64) (*manufacturing.BillOfMaterial, error) {
	var model models.BillOfMaterialModel
	if err := r.withItems(forUpdate(r.db.WithContext(ctx))).
		Where("product_id = ? AND is_latest_version = ?", productID, true).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// LatestApproved returns the latest approved BOM of a product, or nil when
// the product has none
func (r *GormBOMRepository) LatestApproved(ctx context.Context, productID int64) (*manufacturing.BillOfMaterial, error) {
	var model models.BillOfMaterialModel
	err := r.withItems(r.db.WithContext(ctx)).
		Where("product_id = ? AND is_latest_version = ? AND status = ?", productID, true, manufacturing.BOMStatusApproved).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProduct lists every version of a product's BOM
func (r *GormBOMRepository) FindByProduct(ctx context.Context, productID int64) ([]manufacturing.BillOfMaterial, error) {
	var rows []models.BillOfMaterialModel
	if err := r.withItems(r.db.WithContext(ctx)).
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]manufacturing.BillOfMaterial, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// FindAll pages through BOMs filtered by product_id and status
func (r *GormBOMRepository) FindAll(ctx context.Context, filter shared.Filter) ([]manufacturing.BillOfMaterial, int64, error) {
	query := whereFilters(r.db.WithContext(ctx).Model(&models.BillOfMaterialModel{}), filter, "product_id", "status").
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.BillOfMaterialModel
	if err := r.withItems(paginate(query, filter, BOMSortFields)).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]manufacturing.BillOfMaterial, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// ExistsByProductAndVersion reports whether the version label is taken for the product
func (r *GormBOMRepository) ExistsByProductAndVersion(ctx context.Context, productID int64, version string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.BillOfMaterialModel{}).
		Where("product_id = ? AND bom_version = ?", productID, version).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save writes the header version-checked and replaces the item arena
func (r *GormBOMRepository) Save(ctx context.Context, bom *manufacturing.BillOfMaterial) error {
	db := r.db.WithContext(ctx)
	model := models.BillOfMaterialModelFromDomain(bom)
	if bom.ID == 0 {
		if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
			return translateError(err)
		}
		bom.ID = model.ID
	} else {
		model.Version = bom.GetVersion() + 1
		if err := updateVersioned(db, model, bom.GetVersion()); err != nil {
			return err
		}
		bom.IncrementVersion()
	}
	return r.saveItems(db, bom)
}

func (r *GormBOMRepository) saveItems(db *gorm.DB, bom *manufacturing.BillOfMaterial) error {
	keep := make([]int64, 0, len(bom.Items))
	for _, it := range bom.Items {
		if it.ID != 0 {
			keep = append(keep, it.ID)
		}
	}
	if err := pruneChildren(db, &models.BOMItemModel{}, "bom_id", bom.ID, keep); err != nil {
		return err
	}
	for _, it := range bom.Items {
		var row models.BOMItemModel
		row.FromDomain(bom.ID, it)
		if err := saveChild(db, &row, it.ID == 0); err != nil {
			return translateError(err)
		}
		it.ID = row.ID
	}
	return nil
}

// Ensure GormBOMRepository implements BOMRepository
var _ manufacturing.BOMRepository = (*GormBOMRepository)(nil)
