package domain

import "time"

const (
	RoleStudent  = "student"
	RoleEducator = "educator"
)

type User struct {
	ID              string    `json:"id" bson:"_id"`
	Name            string    `json:"name" bson:"name"`
	Description     string    `json:"description,omitempty" bson:"description,omitempty"`
	Email           string    `json:"email" bson:"email"`
	PasswordHash    string    `json:"-" bson:"password_hash"`
	Role            string    `json:"role" bson:"role"`
	PhotoURL        string    `json:"photo_url" bson:"photo_url"`
	EnrolledCourses []string  `json:"enrolled_courses" bson:"enrolled_courses"`
	OTP             *OTPState `json:"-" bson:"otp,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// OTPState es el registro versionado de un código de recuperación.
// Version crece con cada emisión, de modo que una verificación contra un
// código reemplazado falla siempre.
type OTPState struct {
	CodeHash  string    `bson:"code_hash"`
	ExpiresAt time.Time `bson:"expires_at"`
	IssuedAt  time.Time `bson:"issued_at"`
	Version   int64     `bson:"version"`
	Verified  bool      `bson:"verified"`
}

// IsEnrolled indica si el usuario ya compró el curso.
func (u User) IsEnrolled(courseID string) bool {
	for _, id := range u.EnrolledCourses {
		if id == courseID {
			return true
		}
	}
	return false
}

func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleEducator
}

// ProfileUpdate agrupa los campos editables del perfil; nil significa "sin cambios".
type ProfileUpdate struct {
	Name        *string
	Description *string
	PhotoURL    *string
}
