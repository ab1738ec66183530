package account

import "errors"

var (
	ErrMissingEmail       = errors.New("email is required")
	ErrDuplicateEmail     = errors.New("account with this email already exists")
	ErrUserNotFound       = errors.New("user with this email does not exist")
	ErrInvalidOldPassword = errors.New("old password is incorrect")
	ErrPasswordUnchanged  = errors.New("new password must be different from the old password")
	ErrPasswordTooShort   = errors.New("new password is too short")
)
