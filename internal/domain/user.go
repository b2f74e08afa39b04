package domain

type Role string

const (
	RoleCustomer  Role = "customer"
	RoleBoatOwner Role = "boat_owner"
	RoleGuide     Role = "guide"
	RoleHotel     Role = "hotel"
	RoleAdmin     Role = "admin"
)

type VerificationStatus string

const (
	VerificationNone     VerificationStatus = "not_verified"
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

type User struct {
	ID                          int64              `json:"id"`
	Email                       string             `json:"email"`
	Username                    string             `json:"username,omitempty"`
	FirstName                   string             `json:"first_name"`
	LastName                    string             `json:"last_name"`
	Phone                       string             `json:"phone,omitempty"`
	Role                        Role               `json:"role"`
	VerificationStatus          VerificationStatus `json:"verification_status,omitempty"`
	VerificationRejectionReason string             `json:"verification_rejection_reason,omitempty"`
	IsVerified                  bool               `json:"is_verified"`
}

// NeedsVerification reports whether the profile dashboard is gated behind
// document approval for this user.
func (u *User) NeedsVerification() bool {
	if u == nil {
		return false
	}
	if u.Role != RoleBoatOwner && u.Role != RoleGuide {
		return false
	}
	return u.VerificationStatus != VerificationVerified && !u.IsVerified
}

// DisplayName falls back to the e-mail local part, then to a generic label.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name != "" {
		return name
	}
	for i := 0; i < len(u.Email); i++ {
		if u.Email[i] == '@' {
			return u.Email[:i]
		}
	}
	return u.Email
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Role      Role   `json:"role" validate:"omitempty,oneof=customer boat_owner guide hotel"`
}

type ProfilePatch struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

type Verification struct {
	Status          VerificationStatus `json:"status"`
	RejectionReason string             `json:"rejection_reason,omitempty"`
	SubmittedAt     string             `json:"submitted_at,omitempty"`
}
