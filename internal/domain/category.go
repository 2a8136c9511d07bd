package domain

// Category groups stocks by income profile. Assigned by the remote API.
type Category string

const (
	CategoryImmediate Category = "immediate" // high yield, decent safety
	CategoryLongshot  Category = "longshot"  // lower yield, high growth
	CategoryBalanced  Category = "balanced"
)

// String returns the string representation of Category.
func (c Category) String() string {
	return string(c)
}

// IsValid checks if the category is a known value.
func (c Category) IsValid() bool {
	return c == CategoryImmediate || c == CategoryLongshot || c == CategoryBalanced
}
