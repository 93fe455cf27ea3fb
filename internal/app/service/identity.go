package service

import "fmt"

const RoleAdmin = "admin"

// Identity is the acting user as injected by the host panel.
type Identity struct {
	UserID   int64
	UserUUID string
	Role     string
	IP       string
}

func (i Identity) Authenticated() bool {
	return i.UserID > 0
}

func (i Identity) IsAdmin() bool {
	return i.Authenticated() && i.Role == RoleAdmin
}

// Subject is the string the identity token signs.
func (i Identity) Subject() string {
	return fmt.Sprintf("%d|%s|%s", i.UserID, i.UserUUID, i.Role)
}
