package model

const (
	RoleAuthor   = "Author"
	RoleReviewer = "Reviewer"
	RoleApprover = "Approver"
	RoleAdmin    = "Admin"
)

type User struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	FullName     string   `json:"full_name"`
	PasswordHash string   `json:"-"`
	Roles        []string `json:"roles"`
	Active       int      `json:"active"`
	Ctime        int64    `json:"ctime"`
	Mtime        int64    `json:"mtime"`
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

func HasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
