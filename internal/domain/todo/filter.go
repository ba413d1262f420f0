package todo

// Filter holds optional filter criteria for listing todos.
// Zero-value fields mean "no filter" for that dimension.
type Filter struct {
	Status   Status
	Category Category
	UserID   string
}

// Attributes returns the non-empty filter dimensions keyed by column name,
// ready to scope a query.
func (f Filter) Attributes() map[string]any {
	attrs := make(map[string]any, 3)
	if f.Status != "" {
		attrs["status"] = string(f.Status)
	}
	if f.Category != "" {
		attrs["category"] = string(f.Category)
	}
	if f.UserID != "" {
		attrs["user_id"] = f.UserID
	}
	return attrs
}
