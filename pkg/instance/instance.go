package instance

import "os"

// GetID identifies this process in logs. SHUTTLE_INSTANCE_ID wins, then the
// platform's DYNO name, then the hostname.
func GetID() string {
	for _, key := range []string{"SHUTTLE_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
