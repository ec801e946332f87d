// credentials.go generates login identifiers and default passwords for
// employees created by an admin. The plaintext password is returned exactly
// once for display; only its hash is ever stored.
package auth

import (
	"context"
	"fmt"
	"strings"
)

// LoginIDExistsFunc reports whether a candidate login id is already taken.
type LoginIDExistsFunc func(ctx context.Context, loginID string) (bool, error)

// GenerateLoginID derives a login id from a full name: the name is lowercased
// and concatenated without spaces, and on collision a numeric suffix is
// appended (boblee, boblee1, boblee2, ...).
func GenerateLoginID(ctx context.Context, fullName string, exists LoginIDExistsFunc) (string, error) {
	base := strings.Join(strings.Fields(strings.ToLower(fullName)), "")
	if base == "" {
		return "", fmt.Errorf("cannot derive login id from empty name")
	}

	loginID := base
	for counter := 1; ; counter++ {
		taken, err := exists(ctx, loginID)
		if err != nil {
			return "", err
		}
		if !taken {
			return loginID, nil
		}
		loginID = fmt.Sprintf("%s%d", base, counter)
	}
}

// DefaultPassword derives the initial password for a generated account:
// the lowercased first name followed by "@123".
func DefaultPassword(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return "@123"
	}
	return strings.ToLower(fields[0]) + "@123"
}
