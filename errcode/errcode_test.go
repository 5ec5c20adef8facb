package errcode

import (
	"errors"
	"testing"
)

func TestOf(t *testing.T) {
	cause := errors.New("iap: no image")
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"code", SizeError, SizeError},
		{"wrapped", Wrap(InvalidImage, "launch", cause), InvalidImage},
		{"plain", cause, Error},
	}
	for _, c := range cases {
		if got := Of(c.err); got != c.want {
			t.Fatalf("%s: Of = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("stuck bit")
	err := Wrap(ReadbackError, "write", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped error lost its cause")
	}
	if got, want := err.Error(), "write: readback_error: stuck bit"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if Wrap(Error, "noop", nil) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
}
