package model

import (
	"time"
)

// PushNotification is a message delivered to a user's registered devices
type PushNotification struct {
	Title string
	Body  string
	Data  map[string]string
}

// PushResult reports the outcome of a push delivery
type PushResult struct {
	Success bool
	Error   string
}

// DevicePlatform identifies the client platform of a device token
type DevicePlatform string

const (
	DevicePlatformIOS     DevicePlatform = "ios"
	DevicePlatformAndroid DevicePlatform = "android"
	DevicePlatformWeb     DevicePlatform = "web"
)

// DeviceToken is an FCM registration token for one of a user's devices
type DeviceToken struct {
	UserID    string
	Token     string
	Platform  DevicePlatform
	Active    bool
	UpdatedAt time.Time
}
