// Package secrets resolves a connection's credential reference to
// plaintext API credentials. The only built-in resolver reads from the
// process environment; a vault-backed resolver can replace it behind the
// same interface.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/provider"
)

// Env resolves credentials from environment variables. A connection with
// CredentialRef "gbpay_main" reads GBPAY_MAIN_API_KEY, GBPAY_MAIN_API_SECRET
// and optionally GBPAY_MAIN_SCOPE.
type Env struct{}

// Decrypt implements provider.Decryptor.
func (Env) Decrypt(_ context.Context, conn *payout.Connection) (*provider.Credentials, error) {
	prefix := strings.ToUpper(strings.ReplaceAll(conn.CredentialRef, "-", "_"))
	key := os.Getenv(prefix + "_API_KEY")
	secret := os.Getenv(prefix + "_API_SECRET")
	if key == "" || secret == "" {
		return nil, fmt.Errorf("credentials for %q not configured", conn.CredentialRef)
	}
	return &provider.Credentials{
		ConnectionID: conn.ID,
		APIKey:       key,
		APISecret:    secret,
		Scope:        os.Getenv(prefix + "_SCOPE"),
	}, nil
}

// Ensure Env implements the Decryptor interface.
var _ provider.Decryptor = Env{}
