package handler

import (
	"errors"
	"strings"
	"testing"

	"github.com/bizguardian/manager/internal/core/domain"
)

func TestValidator_RegisterRequest(t *testing.T) {
	v := NewValidator()

	cases := map[string]struct {
		req  registerRequest
		want string
	}{
		"valid": {
			req: registerRequest{FullName: "Ana", Identity: "ana@example.com", Password: "secret1", Role: "Admin"},
		},
		"missing name": {
			req:  registerRequest{Identity: "ana@example.com", Password: "secret1", Role: "admin"},
			want: "full_name is required",
		},
		"short password": {
			req:  registerRequest{FullName: "Ana", Identity: "ana@example.com", Password: "123", Role: "admin"},
			want: "password must be at least 6 characters",
		},
		"unknown role": {
			req:  registerRequest{FullName: "Ana", Identity: "ana@example.com", Password: "secret1", Role: "owner"},
			want: "role must be admin or employee",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := v.Validate(&tc.req)
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}
