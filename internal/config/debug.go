package config

import "os"

func IsDebug() bool {
	return os.Getenv("AIRBOT_DEBUG") == "1"
}
