package models

// User is one row of the user table: the provider-issued subject id, the
// provider that issued it and an optional profile image reference.
type User struct {
	ID       string  `bson:"_id" json:"id"`
	Provider string  `bson:"provider" json:"provider"`
	Profile  *string `bson:"profile" json:"profile"`
}

// ProfileOrDefault returns the stored profile image or "default" when unset.
func (u *User) ProfileOrDefault() string {
	if u == nil || u.Profile == nil || *u.Profile == "" {
		return "default"
	}
	return *u.Profile
}

// Identity is the normalized result of a completed provider login.
type Identity struct {
	ID       string `json:"id" bson:"id"`
	Provider string `json:"provider" bson:"provider"`
}
