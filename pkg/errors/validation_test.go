package errors

import (
	"strings"
	"testing"
)

func TestValidators(t *testing.T) {
	type check struct {
		in   string
		code Code // "" when valid
	}
	suites := []struct {
		name   string
		fn     func(string) error
		checks []check
	}{
		{"item", ValidateItemID, []check{
			{"3f2b1c4e-6a1d-4f7e-9f8a-2b3c4d5e6f70", ""},
			{"shirt1", ""},
			{"closet:42", ""},
			{"blue_jacket.v2", ""},
			{"", ErrCodeInvalidInput},
			{strings.Repeat("a", 200), ErrCodeInvalidInput},
			{"-shirt", ErrCodeInvalidInput},
			{"a/b", ErrCodeInvalidInput},
			{"a b", ErrCodeInvalidInput},
			{"a\x00b", ErrCodeInvalidInput},
		}},
		{"pose", ValidatePoseID, []check{
			{"front_v1", ""},
			{"", ErrCodeInvalidPose},
			{"front v1", ErrCodeInvalidPose},
		}},
		{"user", ValidateUserID, []check{
			{"local", ""},
			{"jane.doe+fit@example.com", ""},
			{"", ErrCodeUnauthorized},
			{"../etc", ErrCodeUnauthorized},
			{"@host", ErrCodeUnauthorized},
		}},
		{"url", ValidateURL, []check{
			{"https://cdn.example.com/a.png", ""},
			{"http://localhost:8080/a.png", ""},
			{"", ErrCodeInvalidInput},
			{"ftp://example.com/a.png", ErrCodeInvalidInput},
			{"javascript:alert(1)", ErrCodeInvalidInput},
			{"https:///a.png", ErrCodeInvalidInput},
			{"example.com/a.png", ErrCodeInvalidInput},
		}},
		{"path", ValidatePath, []check{
			{"garments/shirt.png", ""},
			{"users/42/closet/shoe.webp", ""},
			{"v1.2.3/front.png", ""},
			{"shirt..v2.png", ""},
			{"", ErrCodeInvalidPath},
			{strings.Repeat("a/", 300), ErrCodeInvalidPath},
			{"/etc/passwd", ErrCodeInvalidPath},
			{"../../../etc/passwd", ErrCodeInvalidPath},
			{"foo/../bar", ErrCodeInvalidPath},
			{"foo/..", ErrCodeInvalidPath},
			{"foo\\bar", ErrCodeInvalidPath},
			{"foo\x00bar", ErrCodeInvalidPath},
			{"foo\nbar", ErrCodeInvalidPath},
		}},
		{"image ref", ValidateImageRef, []check{
			{"https://cdn.example.com/shirt.png", ""},
			{"closet/shirt.png", ""},
			{"../secret.png", ErrCodeInvalidPath},
			{"", ErrCodeInvalidPath},
		}},
	}

	for _, s := range suites {
		t.Run(s.name, func(t *testing.T) {
			for _, c := range s.checks {
				err := s.fn(c.in)
				switch {
				case c.code == "" && err != nil:
					t.Errorf("%q: unexpected error %v", c.in, err)
				case c.code != "" && !Is(err, c.code):
					t.Errorf("%q: error = %v, want %s", c.in, err, c.code)
				}
			}
		})
	}
}

func TestStatusTableCoversClientErrors(t *testing.T) {
	for _, code := range []Code{
		ErrCodeInvalidInput, ErrCodeInvalidCategory, ErrCodeInvalidPose,
		ErrCodeInvalidTransform, ErrCodeInvalidFormat, ErrCodeInvalidPath,
	} {
		if got := statusByCode[code]; got != 400 {
			t.Errorf("status of %s = %d, want 400", code, got)
		}
	}
}
