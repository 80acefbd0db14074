// Package tests contains helpers and end-to-end tests of the proxy.
package tests

import (
	"fmt"
	"testing"
)

// AssertPanic fails the test unless f panics with the expected message.
func AssertPanic(t *testing.T, f func(), expected string) {
	t.Helper()

	defer func() {
		r := recover()
		if r == nil {
			t.Errorf("The code did not panic, expected %q", expected)
			return
		}

		if msg := fmt.Sprint(r); msg != expected {
			t.Errorf("The code did not panic with expected error. Got: %s", msg)
		}
	}()

	f()
}
