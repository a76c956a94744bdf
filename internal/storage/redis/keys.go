package redis

import "fmt"

// Key prefix for all portal data
const keyPrefix = "judge"

// sessionKey returns the Redis key for a session token
func sessionKey(token string) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, token)
}

// sessionScanPattern matches every session key
func sessionScanPattern() string {
	return fmt.Sprintf("%s:session:*", keyPrefix)
}
