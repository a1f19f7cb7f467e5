package schema

// UserAuthBindingTable represents the 'users.authbinding' table
type UserAuthBindingTable struct {
	Table      string
	AccountID  string
	Identifier string
	Mode       string
	CreatedAt  string
}

// UserAuthBinding is the schema definition for users.authbinding
var UserAuthBinding = UserAuthBindingTable{
	Table:      "users.authbinding",
	AccountID:  "accountid",
	Identifier: "identifier",
	Mode:       "mode",
	CreatedAt:  "createdat",
}
