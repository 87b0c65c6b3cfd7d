package image

import "fmt"

// The unprivileged account the runtime process executes as.
//
// The account does not exist in the base image; its passwd and group
// entries are carried in the environment layer so the image is
// self-sufficient regardless of base.
type Account struct {
	Name string
	UID  int
	GID  int
}

// Default runtime account.
var DefaultAccount = Account{Name: "app", UID: 1000, GID: 1000}

// Returns the account's home directory path.
func (a Account) Home() string {
	return "/home/" + a.Name
}

// True when the account would run with superuser privileges.
func (a Account) IsRoot() bool {
	return a.UID == 0 || a.Name == "root"
}

// Renders an /etc/passwd with the superuser and this account.
//
// The base image's passwd file is replaced wholesale; only these two
// accounts exist in the runtime image.
func (a Account) passwd() string {
	return fmt.Sprintf(
		"root:x:0:0:root:/root:/sbin/nologin\n%s:x:%d:%d:%s:%s:/sbin/nologin\n",
		a.Name, a.UID, a.GID, a.Name, a.Home(),
	)
}

// Renders the matching /etc/group.
func (a Account) group() string {
	return fmt.Sprintf("root:x:0:\n%s:x:%d:\n", a.Name, a.GID)
}
