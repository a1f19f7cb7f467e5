package schema

// UserOneTimeCodeTable represents the 'users.onetimecode' table
type UserOneTimeCodeTable struct {
	Table       string
	ID          string
	Identifier  string
	Mode        string
	Code        string
	IsValidated string
	CreatedAt   string
}

// UserOneTimeCode is the schema definition for users.onetimecode
var UserOneTimeCode = UserOneTimeCodeTable{
	Table:       "users.onetimecode",
	ID:          "id",
	Identifier:  "identifier",
	Mode:        "mode",
	Code:        "code",
	IsValidated: "isvalidated",
	CreatedAt:   "createdat",
}
