package firebase

import (
	"context"
	"fmt"
	"strings"
)

const DevTokenPrefix = "dev:"

// DevTokenVerifier accepts "dev:<uid>" tokens. It is only wired when the
// server runs in development mode on the memory storage driver.
type DevTokenVerifier struct{}

func NewDevTokenVerifier() *DevTokenVerifier {
	return &DevTokenVerifier{}
}

func (DevTokenVerifier) VerifyToken(_ context.Context, token string) (string, error) {
	uid := strings.TrimPrefix(token, DevTokenPrefix)
	if uid == token || strings.TrimSpace(uid) == "" {
		return "", fmt.Errorf("not a development token")
	}
	return uid, nil
}
