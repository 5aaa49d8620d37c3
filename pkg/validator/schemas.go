package validator

// Registration is the body of POST /api/auth/register.
var Registration = &Schema{
	Name: "Registration",
	Fields: []Field{
		{Name: "username", Required: true, Kind: String, Rule: "min=3", Description: "At least 3 characters"},
		{Name: "email", Required: true, Kind: Email},
		{Name: "password", Required: true, Kind: String, Rule: "min=6", Description: "At least 6 characters"},
	},
}

// Login is the body of POST /api/auth/login.
var Login = &Schema{
	Name: "Login",
	Fields: []Field{
		{Name: "username", Required: true, Kind: String},
		{Name: "password", Required: true, Kind: String},
	},
}

// ProfileUpdate is the body of PUT /api/profile. Every field is optional.
var ProfileUpdate = &Schema{
	Name: "ProfileUpdate",
	Fields: []Field{
		{Name: "name", Kind: String, Rule: "min=3", Description: "Display name, at least 3 characters"},
		{Name: "email", Kind: Email},
		{Name: "bio", Kind: String, Rule: "max=500", Description: "At most 500 characters"},
	},
}
