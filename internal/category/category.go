package category

import (
	"errors"
	"time"

	categoryDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/category"
)

type Category struct {
	ID        int64
	Name      string
	Icon      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ErrDuplicateName is returned by repositories when the unique index on
// name rejects an insert.
var ErrDuplicateName = errors.New("category name already exists")

// Defaults is the catalog installed into an empty database, in display order.
var Defaults = []struct {
	Name string
	Icon string
}{
	{"Food & Dining", "🍽️"},
	{"Transportation", "🚗"},
	{"Shopping", "🛍️"},
	{"Entertainment", "🎬"},
	{"Healthcare", "⚕️"},
	{"Education", "📚"},
	{"Utilities", "💡"},
	{"Travel", "✈️"},
	{"Others", "📦"},
}

func NewCategory(name, icon string, now time.Time) *Category {
	return &Category{
		Name:      name,
		Icon:      icon,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Category) ToResponse() CategoryResponse {
	return CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Icon:      c.Icon,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func ToDataModel(c *Category) *categoryDatamodel.Category {
	return &categoryDatamodel.Category{
		ID:        c.ID,
		Name:      c.Name,
		Icon:      c.Icon,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func FromDataModel(c *categoryDatamodel.Category) *Category {
	return &Category{
		ID:        c.ID,
		Name:      c.Name,
		Icon:      c.Icon,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*categoryDatamodel.Category) []*Category {
	result := make([]*Category, len(rows))
	for i, row := range rows {
		result[i] = FromDataModel(row)
	}
	return result
}
