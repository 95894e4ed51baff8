package extensions

import "testing"

func AssertAreEqual[T comparable](t *testing.T, name string, expected T, actual T) {
	t.Helper()
	if expected != actual {
		t.Fatalf("value mismatch for %s, expected %v, got %v", name, expected, actual)
	}
}

func AssertNillability[T comparable](t *testing.T, name string, expected bool, actual *T) {
	t.Helper()
	if (actual == nil) != expected {
		t.Fatalf("value mismatch for %s, expected %v, got %v", name, expected, (actual == nil))
	}
}

// AssertIsClose fails when two floats differ by more than tolerance
func AssertIsClose(t *testing.T, name string, expected, actual, tolerance float64) {
	t.Helper()
	if !IsClose(expected, actual, tolerance) {
		t.Fatalf("value mismatch for %s, expected %v, got %v (tolerance %v)", name, expected, actual, tolerance)
	}
}
