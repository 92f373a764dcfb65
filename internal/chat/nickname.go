package chat

import "regexp"

var nonWord = regexp.MustCompile(`\W`)

// SanitizeNickname strips every non-word character ([^A-Za-z0-9_]). The
// result is only used to detect collisions and is never displayed.
func SanitizeNickname(name string) string {
	return nonWord.ReplaceAllString(name, "")
}

// RoomID builds the partition key for a room name and password. There is no
// separator between the two parts.
func RoomID(name, password string) string {
	return name + password
}
