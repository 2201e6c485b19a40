package utils

// NonEmpty returns nil for the empty string so it serialises as null.
func NonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
