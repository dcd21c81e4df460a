// Package signer provides the DocumentSigner implementations selected by SIGNING_MODE.
package signer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"signflow/internal/config"
	"signflow/internal/signing"
)

// New builds the configured document signer.
func New(c config.SigningConfig, log logrus.FieldLogger) (signing.DocumentSigner, error) {
	switch c.Mode {
	case "local":
		if c.KeyFile == "" {
			log.WithField("component", "signer").Warn("SIGNING_KEY_FILE not set, using an ephemeral key")
			key, err := GenerateKey()
			if err != nil {
				return nil, fmt.Errorf("generate signing key: %w", err)
			}
			return NewLocal(key), nil
		}
		key, err := LoadKey(c.KeyFile)
		if err != nil {
			return nil, err
		}
		return NewLocal(key), nil
	case "remote":
		if c.RemoteURL == "" {
			return nil, fmt.Errorf("SIGNING_REMOTE_URL is required in remote mode")
		}
		return NewRemote(c.RemoteURL, nil, c.RemoteTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported signing mode %q", c.Mode)
	}
}
