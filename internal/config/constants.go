// internal/config/constants.go
package config

import "time"

// アプリケーション情報
const (
	AppName    = "flashdeck"
	AppVersion = "1.0.0"
)

// デフォルト設定値
const (
	DefaultServerPort       = ":8080"
	DefaultLogLevel         = "info"
	DefaultAccessTokenTTL   = 24 * time.Hour
	DefaultRecentDecksLimit = 5
	DefaultUsersPageLimit   = 10
)
