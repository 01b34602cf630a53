package models

// DefaultDimensions returns the starter set offered at profile setup: six
// active categories and two optional ones.
func DefaultDimensions() []Dimension {
	return []Dimension{
		{ID: "dim_1", Name: "Health", Active: true, Color: "bg-emerald-400"},
		{ID: "dim_2", Name: "Career", Active: true, Color: "bg-blue-400"},
		{ID: "dim_3", Name: "Finances", Active: true, Color: "bg-amber-400"},
		{ID: "dim_4", Name: "Family", Active: true, Color: "bg-rose-400"},
		{ID: "dim_5", Name: "Social", Active: true, Color: "bg-purple-400"},
		{ID: "dim_6", Name: "Growth", Active: true, Color: "bg-indigo-400"},
		{ID: "dim_7", Name: "Spirit", Active: false, Color: "bg-cyan-400"},
		{ID: "dim_8", Name: "Leisure", Active: false, Color: "bg-orange-400"},
	}
}
