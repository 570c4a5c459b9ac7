package model

import "strconv"

const (
	PerUserRange        = 100000
	FirstApplicationUID = 10000
	FirstIsolatedUID    = 99000
	LastIsolatedUID     = 99999
)

// UserID returns the user owning uid.
func UserID(uid int) int {
	return uid / PerUserRange
}

// AppID returns uid with the user component removed.
func AppID(uid int) int {
	return uid % PerUserRange
}

// FormatUID renders uid as u<user>a<app>, u<user>i<isolated> or u<user>s<system>.
func FormatUID(uid int) string {
	if uid < 0 {
		return strconv.Itoa(uid)
	}
	user := strconv.Itoa(UserID(uid))
	appID := AppID(uid)
	switch {
	case appID >= FirstIsolatedUID && appID <= LastIsolatedUID:
		return "u" + user + "i" + strconv.Itoa(appID-FirstIsolatedUID)
	case appID >= FirstApplicationUID:
		return "u" + user + "a" + strconv.Itoa(appID-FirstApplicationUID)
	default:
		return "u" + user + "s" + strconv.Itoa(appID)
	}
}
