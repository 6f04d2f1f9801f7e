package handler

import "github.com/homeowner/portal/internal/core/domain"

type loginForm struct {
	Email      string `form:"Email"      validate:"required,email"`
	Password   string `form:"Password"   validate:"required"`
	RememberMe bool   `form:"RememberMe"`
	ReturnURL  string `form:"ReturnUrl"`
}

type twoFactorForm struct {
	Code       string `form:"Code"       validate:"required,len=6,numeric"`
	RememberMe bool   `form:"RememberMe"`
	ReturnURL  string `form:"ReturnUrl"`
}

type registerForm struct {
	Email                 string `form:"Email"                 validate:"required,email"`
	FirstName             string `form:"FirstName"             validate:"required,max=50"`
	LastName              string `form:"LastName"              validate:"required,max=50"`
	PropertyAddress       string `form:"PropertyAddress"       validate:"max=200"`
	PhoneNumber           string `form:"PhoneNumber"           validate:"required,max=32,phone"`
	EmergencyContactName  string `form:"EmergencyContactName"  validate:"max=50"`
	EmergencyContactPhone string `form:"EmergencyContactPhone" validate:"omitempty,max=20,phone"`
	Password              string `form:"Password"              validate:"required,password"`
	ConfirmPassword       string `form:"ConfirmPassword"       validate:"eqfield=Password"`
	AcceptTerms           bool   `form:"AcceptTerms"           validate:"accepted"`
}

func (f registerForm) registration() domain.Registration {
	return domain.Registration{
		Email:                 f.Email,
		Password:              f.Password,
		FirstName:             f.FirstName,
		LastName:              f.LastName,
		PhoneNumber:           f.PhoneNumber,
		PropertyAddress:       f.PropertyAddress,
		EmergencyContactName:  f.EmergencyContactName,
		EmergencyContactPhone: f.EmergencyContactPhone,
	}
}

type forgotForm struct {
	Email string `form:"Email" validate:"required,email"`
}

type resetForm struct {
	Email           string `form:"Email"           validate:"required,email"`
	Code            string `form:"Code"            validate:"required"`
	Password        string `form:"Password"        validate:"required,password"`
	ConfirmPassword string `form:"ConfirmPassword" validate:"eqfield=Password"`
}

type createUserForm struct {
	Email           string `form:"Email"           validate:"required,email"`
	FirstName       string `form:"FirstName"       validate:"required,max=50"`
	LastName        string `form:"LastName"        validate:"required,max=50"`
	Password        string `form:"Password"        validate:"required,password"`
	ConfirmPassword string `form:"ConfirmPassword" validate:"eqfield=Password"`
	Role            string `form:"Role"            validate:"required"`
}

type editUserForm struct {
	ID                    string `param:"id"                   form:"-"`
	Email                 string `form:"Email"                 validate:"required,email"`
	FirstName             string `form:"FirstName"             validate:"required,max=50"`
	LastName              string `form:"LastName"              validate:"required,max=50"`
	PhoneNumber           string `form:"PhoneNumber"           validate:"omitempty,max=32,phone"`
	PropertyAddress       string `form:"PropertyAddress"       validate:"max=200"`
	EmergencyContactName  string `form:"EmergencyContactName"  validate:"max=50"`
	EmergencyContactPhone string `form:"EmergencyContactPhone" validate:"omitempty,max=20,phone"`
	Role                  string `form:"Role"`
}

func editFormFor(s *domain.UserSummary) *editUserForm {
	u := s.User
	return &editUserForm{
		ID:                    u.ID,
		Email:                 u.Email,
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		PhoneNumber:           u.PhoneNumber,
		PropertyAddress:       u.PropertyAddress,
		EmergencyContactName:  u.EmergencyContactName,
		EmergencyContactPhone: u.EmergencyContactPhone,
		Role:                  s.PrimaryRole(),
	}
}

func (f editUserForm) profile() domain.UserProfile {
	return domain.UserProfile{
		FirstName:             f.FirstName,
		LastName:              f.LastName,
		Email:                 f.Email,
		PhoneNumber:           f.PhoneNumber,
		PropertyAddress:       f.PropertyAddress,
		EmergencyContactName:  f.EmergencyContactName,
		EmergencyContactPhone: f.EmergencyContactPhone,
	}
}
