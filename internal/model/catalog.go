package model

import "github.com/shopspring/decimal"

// Category groups products on the menu (hot drinks, pastries, ...).
// Categories are deactivated rather than deleted so historical orders keep
// their references.
type Category struct {
	ID          uint64  // categories.id
	Name        string  // categories.name (unique)
	Description *string // categories.description (nullable)
	IsActive    bool    // categories.is_active
}

// Product is a purchasable menu item.  Price is a DECIMAL(10,2) column and
// is handled as decimal.Decimal everywhere to avoid float drift.  Stock is
// nullable: NULL means the product's stock is not tracked and it can be
// ordered without limit.  Products are never hard-deleted, only
// deactivated, because order lines reference them.
//
// Fields:
//
//	ID          – primary key identifier.
//	CategoryID  – owning category.
//	Name        – product name shown on the menu.
//	Description – optional text.
//	Price       – current unit price; order lines snapshot it at order time.
//	ImageURL    – optional image path.
//	Stock       – remaining units, or nil when untracked.
//	IsActive    – whether the product can currently be ordered.
type Product struct {
	ID          uint64          // products.id
	CategoryID  uint64          // products.category_id
	Name        string          // products.name
	Description *string         // products.description (nullable)
	Price       decimal.Decimal // products.price
	ImageURL    *string         // products.image_url (nullable)
	Stock       *int64          // products.stock (NULL = untracked)
	IsActive    bool            // products.is_active
}
