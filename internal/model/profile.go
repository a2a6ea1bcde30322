package model

import "path"

const ProfileCollection = "profiles"

type Profile struct {
	UserID      string
	DeviceToken string
}

func ProfilePath(userID string) string {
	return path.Join(ProfileCollection, userID)
}
