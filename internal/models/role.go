package models

type Role string

const (
	RoleNone  Role = ""
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// UserRole mirrors the identity provider's role assignments. Rows are
// maintained outside this service.
type UserRole struct {
	ID     uint   `gorm:"primaryKey"`
	UserID string `gorm:"not null;uniqueIndex:idx_user_role"`
	Role   Role   `gorm:"type:varchar(10);not null;uniqueIndex:idx_user_role"`
}

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleStaff:
		return 2
	case RoleUser:
		return 1
	}
	return 0
}

// Highest returns the most privileged of the given roles.
func Highest(roles ...Role) Role {
	best := RoleNone
	for _, r := range roles {
		if r.rank() > best.rank() {
			best = r
		}
	}
	return best
}

func (r Role) CanCheckIn() bool {
	return r == RoleStaff || r == RoleAdmin
}
