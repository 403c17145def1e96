package model

// Practitioner holds the single-practitioner profile printed on
// prescriptions, plus the optional PIN lock guarding mutating routes.
type Practitioner struct {
	Base
	Name       string `json:"name" db:"name"`
	NameArabic string `json:"name_arabic,omitempty" db:"name_arabic"`
	Specialty  string `json:"specialty,omitempty" db:"specialty"`
	Address    string `json:"address,omitempty" db:"address"`
	Phone      string `json:"phone,omitempty" db:"phone"`
	Email      string `json:"email,omitempty" db:"email"`
	Currency   string `json:"currency,omitempty" db:"currency"`
	PINEnabled bool   `json:"pin_enabled" db:"pin_enabled"`
	PINHash    string `json:"-" db:"pin_hash"`
}

type UnlockRequest struct {
	PIN string `json:"pin" binding:"required"`
}

type UnlockResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

type UpdatePractitionerRequest struct {
	Name       *string `json:"name"`
	NameArabic *string `json:"name_arabic"`
	Specialty  *string `json:"specialty"`
	Address    *string `json:"address"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	Currency   *string `json:"currency"`
	PINEnabled *bool   `json:"pin_enabled"`
	PIN        *string `json:"pin"`
}
