// internal/accounts/domain.go
package accounts

// Roles a console login can hold. Admins manage other accounts; staff run
// the desk.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Account is a console login stored at accounts/{uid}. The hash, salt and
// recovery answer never leave the service.
type Account struct {
	ID               string `json:"-"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	ProfileImage     string `json:"profile_image,omitempty"`
	RecoveryQuestion string `json:"recovery_question,omitempty"`
	RecoveryAnswer   string `json:"recovery_answer,omitempty"`
	PasswordHash     string `json:"password_hash,omitempty"`
	Salt             string `json:"salt,omitempty"`
}

// sanitized returns a copy safe to hand to callers.
func (a Account) sanitized() *Account {
	a.PasswordHash = ""
	a.Salt = ""
	a.RecoveryAnswer = ""
	return &a
}

// AccessEntry is one sign-in session at access_log/{entry_id}. LogoutTime
// stays empty while the session is live.
type AccessEntry struct {
	ID         string `json:"-"`
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	LoginTime  string `json:"login_time"`
	LogoutTime string `json:"logout_time"`
}
