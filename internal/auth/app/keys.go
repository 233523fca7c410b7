package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/laqq/authd/pkg/jwtx"
)

// InitSigningKeys loads the Ed25519 signing key from cfg.SigningKeyFile,
// generating and persisting one on first boot. Because the key survives
// restarts, issued tokens stay valid across deployments; delete the file to
// force a rotation that invalidates everything outstanding.
func InitSigningKeys(cfg Config, logger *slog.Logger) (*jwtx.EdDSASigner, jwtx.Verifier, error) {
	pemKey, err := os.ReadFile(cfg.SigningKeyFile)
	switch {
	case err == nil:
		logger.Info("signing key loaded", "path", cfg.SigningKeyFile, "kid", cfg.KeyID)
	case errors.Is(err, os.ErrNotExist):
		pemKey, err = jwtx.GenerateEd25519PEM()
		if err != nil {
			return nil, nil, fmt.Errorf("generate signing key: %w", err)
		}
		if err := os.WriteFile(cfg.SigningKeyFile, pemKey, 0o600); err != nil {
			return nil, nil, fmt.Errorf("persist signing key: %w", err)
		}
		logger.Warn("no signing key found, generated a new one; outstanding tokens are invalid",
			"path", cfg.SigningKeyFile, "kid", cfg.KeyID)
	default:
		return nil, nil, fmt.Errorf("read signing key: %w", err)
	}

	signer, err := jwtx.NewSignerEdDSA(cfg.KeyID, pemKey)
	if err != nil {
		return nil, nil, fmt.Errorf("load signing key: %w", err)
	}

	verifier := jwtx.NewVerifierEdDSA(cfg.KeyID, signer.Public(), cfg.Issuer)
	return signer, verifier, nil
}
