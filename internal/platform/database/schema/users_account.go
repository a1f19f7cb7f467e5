package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table     string
	ID        string
	Handle    string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	CreatedAt string
	UpdatedAt string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:     "users.account",
	ID:        "id",
	Handle:    "handle",
	FirstName: "firstname",
	LastName:  "lastname",
	Email:     "email",
	Phone:     "phone",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
}
