package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateConnectionID generates a unique connection ID
func GenerateConnectionID() string {
	return GenerateID("conn")
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.NewString()
}

// GenerateID generates a unique ID with the given prefix
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().Unix(), uuid.NewString()[:8])
}
