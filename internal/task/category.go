package task

// Category is the closed set of task categories.
type Category string

const (
	CategoryNote      Category = "note"
	CategoryStandFM   Category = "standfm"
	CategoryInstagram Category = "instagram"
	CategoryYouTube   Category = "youtube"
	CategoryExpertise Category = "expertise"
	CategoryMarketing Category = "marketing"
	CategoryBusiness  Category = "business"
	CategoryTopform   Category = "topform"
	CategoryPrivate   Category = "private"
	CategoryOther     Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryNote, CategoryStandFM, CategoryInstagram, CategoryYouTube,
	CategoryExpertise, CategoryMarketing, CategoryBusiness, CategoryTopform,
	CategoryPrivate, CategoryOther,
}

// ProgressCategories are the categories reported in per-category progress.
// Private and other are tracked as tasks but never scored.
var ProgressCategories = []Category{
	CategoryNote, CategoryStandFM, CategoryInstagram, CategoryYouTube,
	CategoryExpertise, CategoryMarketing, CategoryBusiness, CategoryTopform,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Tracked reports whether c contributes to per-category progress.
func (c Category) Tracked() bool {
	return c.Valid() && c != CategoryPrivate && c != CategoryOther
}

// Info describes a category for display and export.
type Info struct {
	ID    Category `json:"id"`
	Name  string   `json:"name"`
	Color string   `json:"color"`
}

// Catalog returns the default category descriptions in display order.
func Catalog() []Info {
	return []Info{
		{CategoryNote, "note", "#41C9B4"},
		{CategoryStandFM, "standFM", "#FF6B35"},
		{CategoryInstagram, "Instagram", "#E4405F"},
		{CategoryYouTube, "YouTube", "#FF0000"},
		{CategoryExpertise, "Expertise", "#4ecdc4"},
		{CategoryMarketing, "Marketing", "#45b7d1"},
		{CategoryBusiness, "Business", "#f9ca24"},
		{CategoryTopform, "TOPFORM", "#e74c3c"},
		{CategoryPrivate, "Private", "#9b59b6"},
		{CategoryOther, "Other", "#7f8c8d"},
	}
}

// Lookup returns the catalog entry for c.
func Lookup(c Category) (Info, bool) {
	for _, info := range Catalog() {
		if info.ID == c {
			return info, true
		}
	}
	return Info{}, false
}
