package identity

import "time"

// User is one entry of the shared users list. The email is the login name
// and partitions the user's appointments and registrations.
type User struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	PasswordHash     string `json:"passwordHash"`
	Role             string `json:"role"`
	Phone            string `json:"phone"`
	RegistrationDate string `json:"registrationDate"`
	Specialty        string `json:"specialty,omitempty"`
	Experience       int    `json:"experience,omitempty"`
}

// Profile is the user as returned by the API.
type Profile struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	Phone            string `json:"phone"`
	RegistrationDate string `json:"registrationDate"`
	Specialty        string `json:"specialty,omitempty"`
	Experience       int    `json:"experience,omitempty"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Role:             u.Role,
		Phone:            u.Phone,
		RegistrationDate: u.RegistrationDate,
		Specialty:        u.Specialty,
		Experience:       u.Experience,
	}
}

// Session is the current-session record kept per user. Only the token whose
// id matches TokenID is accepted; logging out clears it.
type Session struct {
	Email     string    `json:"email"`
	TokenID   string    `json:"tokenId,omitempty"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Profile   `json:"user"`
}

type SignupRequest struct {
	Name            string `json:"name" validate:"notblank"`
	Email           string `json:"email" validate:"contact_email"`
	Phone           string `json:"phone" validate:"contact_phone"`
	Password        string `json:"password" validate:"min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
	AgreeTerms      bool   `json:"agreeTerms" validate:"required"`
}

// seed is a default account created on first start.
type seed struct {
	User
	password string
}

var defaultUsers = []seed{
	{User{ID: 1, Name: "Admin User", Email: "admin@hms.com", Role: "admin", Phone: "+1234567890", RegistrationDate: "2024-01-01"}, "admin123"},
	{User{ID: 2, Name: "John Doe", Email: "john@example.com", Role: "patient", Phone: "+1234567891", RegistrationDate: "2024-01-15"}, "patient123"},
	{User{ID: 3, Name: "Dr. Smith", Email: "dr.smith@hms.com", Role: "doctor", Phone: "+1234567892", RegistrationDate: "2024-01-10", Specialty: "Cardiology", Experience: 15}, "doctor123"},
}
