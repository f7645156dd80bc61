// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

// Package pointers has helpers for the optional fields of the wire model, where
// a nil pointer means the field is absent from the JSON document.
package pointers

// To returns a pointer to the value passed as parameter
func To[T any](v T) *T {
	return &v
}

// Value returns the value from ptr or the zero value if the pointer is nil
func Value[T any](ptr *T) T {
	if ptr != nil {
		return *ptr
	}
	var zero T
	return zero
}

// String returns a pointer to str, or nil if str is empty
func String(str string) *string {
	if str == "" {
		return nil
	}
	return &str
}

// Bool returns a pointer to the bool passed as parameter
func Bool(b bool) *bool {
	return &b
}
