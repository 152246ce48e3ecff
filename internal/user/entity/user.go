package entity

import "time"

// Role separates the two account populations. Employees carry extra
// identity fields (employee id, type, department, supervisor).
type Role string

const (
	RoleCitizen  Role = "citizen"
	RoleEmployee Role = "employee"
)

// Status models the account state machine: active <-> inactive and
// active <-> suspended, via explicit operations only.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

type EmployeeType string

const (
	EmployeeWasteCollector EmployeeType = "waste_collector"
	EmployeeSupervisor     EmployeeType = "supervisor"
	EmployeeAdmin          EmployeeType = "admin"
	EmployeeDriver         EmployeeType = "driver"
)

// CanSupervise reports whether an employee of this type may be referenced
// as another employee's supervisor.
func (t EmployeeType) CanSupervise() bool {
	return t == EmployeeSupervisor || t == EmployeeAdmin
}

// Address is the citizen-only postal location, stored as an embedded
// document.
type Address struct {
	Street      string    `bson:"street,omitempty" json:"street,omitempty"`
	City        string    `bson:"city,omitempty" json:"city,omitempty"`
	State       string    `bson:"state,omitempty" json:"state,omitempty"`
	Pincode     string    `bson:"pincode,omitempty" json:"pincode,omitempty"`
	Coordinates []float64 `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// AssignedArea is the employee-only collection zone: a name plus a
// boundary polygon of [lng, lat] points.
type AssignedArea struct {
	Name     string      `bson:"name" json:"name"`
	Boundary [][]float64 `bson:"boundary,omitempty" json:"boundary,omitempty"`
}

// User is the sole persisted entity of the auth core. PasswordHash and
// RefreshToken never leave the service: both carry json:"-" and every
// outward path goes through Public().
type User struct {
	ID            string        `bson:"_id" json:"id"`
	Email         string        `bson:"email" json:"email"`
	PasswordHash  string        `bson:"password_hash" json:"-"`
	RefreshToken  string        `bson:"refresh_token,omitempty" json:"-"`
	Role          Role          `bson:"role" json:"role"`
	Status        Status        `bson:"status" json:"status"`
	FirstName     string        `bson:"first_name" json:"firstName"`
	LastName      string        `bson:"last_name" json:"lastName"`
	Phone         string        `bson:"phone,omitempty" json:"phone,omitempty"`
	Address       *Address      `bson:"address,omitempty" json:"address,omitempty"`
	EmployeeID    string        `bson:"employee_id,omitempty" json:"employeeId,omitempty"`
	EmployeeType  EmployeeType  `bson:"employee_type,omitempty" json:"employeeType,omitempty"`
	Department    string        `bson:"department,omitempty" json:"department,omitempty"`
	SupervisorID  string        `bson:"supervisor_id,omitempty" json:"supervisorId,omitempty"`
	AssignedArea  *AssignedArea `bson:"assigned_area,omitempty" json:"assignedArea,omitempty"`
	EmailVerified bool          `bson:"email_verified" json:"emailVerified"`
	LastLoginAt   *time.Time    `bson:"last_login_at,omitempty" json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `bson:"updated_at" json:"updatedAt"`
}

// IsActive reports whether the account may log in, refresh, or mutate
// its profile.
func (u *User) IsActive() bool { return u.Status == StatusActive }

// PublicUser is the sanitized projection returned to every caller.
type PublicUser struct {
	ID            string             `json:"id"`
	Email         string             `json:"email"`
	Role          Role               `json:"role"`
	Status        Status             `json:"status"`
	FirstName     string             `json:"firstName"`
	LastName      string             `json:"lastName"`
	Phone         string             `json:"phone,omitempty"`
	Address       *Address           `json:"address,omitempty"`
	EmployeeID    string             `json:"employeeId,omitempty"`
	EmployeeType  EmployeeType       `json:"employeeType,omitempty"`
	Department    string             `json:"department,omitempty"`
	Supervisor    *SupervisorSummary `json:"supervisor,omitempty"`
	AssignedArea  *AssignedArea      `json:"assignedArea,omitempty"`
	EmailVerified bool               `json:"emailVerified"`
	LastLoginAt   *time.Time         `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// SupervisorSummary is the display-safe subset of a supervisor record
// embedded in an employee profile.
type SupervisorSummary struct {
	ID           string       `json:"id"`
	FirstName    string       `json:"firstName"`
	LastName     string       `json:"lastName"`
	EmployeeID   string       `json:"employeeId"`
	EmployeeType EmployeeType `json:"employeeType"`
	Department   string       `json:"department,omitempty"`
}

// Public strips credential material from u. The supervisor reference is
// left for the service layer to resolve.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		Role:          u.Role,
		Status:        u.Status,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Phone:         u.Phone,
		Address:       u.Address,
		EmployeeID:    u.EmployeeID,
		EmployeeType:  u.EmployeeType,
		Department:    u.Department,
		AssignedArea:  u.AssignedArea,
		EmailVerified: u.EmailVerified,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
}

// SummaryOf projects a supervisor record for embedding.
func SummaryOf(u *User) *SupervisorSummary {
	return &SupervisorSummary{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		EmployeeID:   u.EmployeeID,
		EmployeeType: u.EmployeeType,
		Department:   u.Department,
	}
}

// ProfilePatch is the set of fields UpdateProfile may change. Identity
// and credential fields (email, password, role, status, employee id and
// type) have no representation here so they cannot be smuggled through
// this path. Department, supervisor and assigned area apply to
// employees only.
type ProfilePatch struct {
	FirstName    *string       `json:"firstName,omitempty"`
	LastName     *string       `json:"lastName,omitempty"`
	Phone        *string       `json:"phone,omitempty"`
	Address      *Address      `json:"address,omitempty"`
	Department   *string       `json:"department,omitempty"`
	SupervisorID *string       `json:"supervisorId,omitempty"`
	AssignedArea *AssignedArea `json:"assignedArea,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p *ProfilePatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Phone == nil &&
		p.Address == nil && p.Department == nil && p.SupervisorID == nil &&
		p.AssignedArea == nil
}

// Stats is the aggregate count projection for dashboards.
type Stats struct {
	TotalUsers     int64                  `json:"totalUsers"`
	ByRole         map[Role]int64         `json:"byRole"`
	ByStatus       map[Status]int64       `json:"byStatus"`
	ByEmployeeType map[EmployeeType]int64 `json:"byEmployeeType"`
	ByDepartment   map[string]int64       `json:"byDepartment"`
}
