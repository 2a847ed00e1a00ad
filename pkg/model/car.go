package model

import "regexp"

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidID reports whether id can be used as a directory or file name in the data directory.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

type Car struct {
	ID    string `json:"id" validate:"required,entity_id"`
	Model string `json:"model" validate:"required,min=1,max=100"`
	Seats int    `json:"seats" validate:"required,min=1,max=100"`
}
