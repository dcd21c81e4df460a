package signing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const artifactTimeLayout = "20060102_150405"

// ArtifactPrefix is the object namespace holding every version of a session's document.
func ArtifactPrefix(sessionID string) string {
	return "sessions/" + sessionID + "/"
}

// ArtifactKey names one write attempt of version v of a session document.
// Versions are zero-padded so lexical key order equals version order; the
// random suffix keeps racing attempts for the same version apart.
func ArtifactKey(sessionID string, version int, at time.Time) string {
	return fmt.Sprintf("%sv%04d_%s_%s.pdf", ArtifactPrefix(sessionID), version,
		at.UTC().Format(artifactTimeLayout), uuid.NewString()[:8])
}

// FieldName derives a stable signature field name from the signer email and location index.
func FieldName(email string, idx int) string {
	return fmt.Sprintf("%s_sig_%d", fieldNameReplacer.Replace(email), idx)
}

var fieldNameReplacer = strings.NewReplacer("@", "_", ".", "_")

// Artifact object metadata keys.
const (
	MetaSessionID = "session-id"
	MetaVersion   = "version"
	MetaSignedBy  = "signed-by"
)
