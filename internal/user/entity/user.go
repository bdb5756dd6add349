package entity

// User represents an account row in the `users` table.
// Password always holds a bcrypt hash.
type User struct {
	ID       string `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Password string `db:"password" json:"-"`
	Nickname string `db:"nickname" json:"nickname"`
}
