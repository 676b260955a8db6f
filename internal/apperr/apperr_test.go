package apperr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsUser(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Userf("bad flag %q", "--zmin"))
	if !IsUser(err) {
		t.Fatalf("expected wrapped UserError to be detected")
	}
	if IsUser(errors.New("plain")) {
		t.Fatalf("expected plain error not to be a UserError")
	}
	if got := User("x").Error(); got != "x" {
		t.Fatalf("User().Error() = %q, want %q", got, "x")
	}
}

func TestInvalidArgf(t *testing.T) {
	err := InvalidArgf("zmin %g > zmax %g", 0.5, 0.1)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected errors.Is(err, ErrInvalidArgument), got %v", err)
	}
	if !strings.Contains(err.Error(), "zmin 0.5 > zmax 0.1") {
		t.Fatalf("expected message to carry details, got %q", err.Error())
	}
}
