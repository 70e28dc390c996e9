package domain

import (
	"strings"
	"time"
)

// Role is the closed set of roles a profile can hold.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// MaxAdmins is the hard cap on concurrent admin profiles.
const MaxAdmins = 3

// Valid reports whether r is a recognised role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// Shop identifies one of the physical shops an employee can work in.
type Shop string

const (
	ShopNone       Shop = ""
	ShopBoutique   Shop = "boutique"
	ShopHouseDecor Shop = "house-decor"
)

// Shops lists every assignable shop in display order.
var Shops = []Shop{ShopBoutique, ShopHouseDecor}

// Valid reports whether s names an assignable shop. ShopNone is not valid.
func (s Shop) Valid() bool {
	return s == ShopBoutique || s == ShopHouseDecor
}

// DisplayName is the human label used by dashboards.
func (s Shop) DisplayName() string {
	switch s {
	case ShopBoutique:
		return "Boutique"
	case ShopHouseDecor:
		return "House Décor"
	default:
		return "Unassigned"
	}
}

// ParseShop accepts the canonical value and a couple of loose spellings.
func ParseShop(v string) (Shop, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "boutique":
		return ShopBoutique, nil
	case "house-decor", "house_decor", "housedecor":
		return ShopHouseDecor, nil
	}
	return ShopNone, ErrInvalidShop
}

// ParseRole accepts a role name case-insensitively.
func ParseRole(v string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(v)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// NormalizeIdentity canonicalises an identity value (email or national id)
// before it is used as a lookup key.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// Account is the login credential record. One Account maps to exactly one Profile.
type Account struct {
	ID           string    `json:"id"`
	Identity     string    `json:"identity"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile carries the role and shop assignment of an account.
type Profile struct {
	ID           string    `json:"id"              yaml:"id"`
	FullName     string    `json:"full_name"       yaml:"full_name"`
	Identity     string    `json:"identity"        yaml:"identity"`
	Role         Role      `json:"role"            yaml:"role"`
	AssignedShop Shop      `json:"assigned_shop"   yaml:"assigned_shop,omitempty"`
	CreatedAt    time.Time `json:"created_at"      yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"      yaml:"updated_at"`
}

// PendingAssignment reports whether p is an employee that has not been
// given a shop yet. Such profiles cannot log in.
func (p Profile) PendingAssignment() bool {
	return p.Role == RoleEmployee && p.AssignedShop == ShopNone
}

// Standing is the role of a profile as a closed variant. Presentation code
// switches on it once instead of re-checking Role and AssignedShop.
type Standing interface {
	standing()
}

// AdminStanding is the standing of an admin profile.
type AdminStanding struct{}

// EmployeeStanding is the standing of an employee profile. Assigned is false
// while the employee waits for an admin to pick a shop.
type EmployeeStanding struct {
	Shop     Shop
	Assigned bool
}

func (AdminStanding) standing()    {}
func (EmployeeStanding) standing() {}

// Standing returns the variant for p.
func (p Profile) Standing() Standing {
	if p.Role == RoleAdmin {
		return AdminStanding{}
	}
	return EmployeeStanding{Shop: p.AssignedShop, Assigned: p.AssignedShop.Valid()}
}

// Overview aggregates the roster counts shown on the admin dashboard.
type Overview struct {
	TotalEmployees      int          `json:"total_employees"`
	UnassignedEmployees int          `json:"unassigned_employees"`
	Admins              int          `json:"admins"`
	AdminCapacity       int          `json:"admin_capacity"`
	EmployeesByShop     map[Shop]int `json:"employees_by_shop"`
}

// BuildOverview counts profiles the way the admin dashboard presents them.
func BuildOverview(profiles []Profile) Overview {
	ov := Overview{
		AdminCapacity:   MaxAdmins,
		EmployeesByShop: make(map[Shop]int, len(Shops)),
	}
	for _, s := range Shops {
		ov.EmployeesByShop[s] = 0
	}
	for _, p := range profiles {
		switch st := p.Standing().(type) {
		case AdminStanding:
			ov.Admins++
		case EmployeeStanding:
			ov.TotalEmployees++
			if !st.Assigned {
				ov.UnassignedEmployees++
				continue
			}
			ov.EmployeesByShop[st.Shop]++
		}
	}
	return ov
}
