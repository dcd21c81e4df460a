package signer

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"signflow/internal/signing"
)

// sigPrefix starts the comment line carrying a signature record.
const sigPrefix = "%signflow-signature "

// Record is the signature envelope appended to a document by Local.
type Record struct {
	Fields         []signing.Field  `json:"fields"`
	SignatureField string           `json:"signature_field"`
	Signer         signing.Identity `json:"signer"`
	Stamp          string           `json:"stamp"`
	SignedAt       time.Time        `json:"signed_at"`
	// Digest is the hex SHA-256 of every byte preceding the record.
	Digest    string `json:"digest"`
	Signature string `json:"signature,omitempty"`
}

func (r Record) payload() ([]byte, error) {
	r.Signature = ""
	return json.Marshal(r)
}

// Local signs in-process with an ECDSA P-256 key. Each call appends an
// incremental section to the document: a comment line holding the signed
// record, then a fresh %%EOF. Previous bytes are never rewritten.
type Local struct {
	key *ecdsa.PrivateKey
}

var _ signing.DocumentSigner = (*Local)(nil)

func NewLocal(key *ecdsa.PrivateKey) *Local {
	return &Local{key: key}
}

// GenerateKey returns a fresh P-256 key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// LoadKey reads an EC private key from a PEM file (SEC 1 or PKCS#8).
func LoadKey(path string) (*ecdsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("key file contains no PEM block")
	}
	switch block.Type {
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse pkcs8 key: %w", err)
		}
		ec, ok := k.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unsupported key type %T", k)
		}
		return ec, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}
}

// PublicKey is the verification key of the signer.
func (l *Local) PublicKey() *ecdsa.PublicKey {
	return &l.key.PublicKey
}

func (l *Local) Sign(ctx context.Context, req signing.SignRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(req.Document, []byte("%PDF")) {
		return nil, errors.New("document is not a PDF")
	}
	if req.SignatureField == "" {
		return nil, errors.New("signature field is required")
	}

	sum := sha256.Sum256(req.Document)
	rec := Record{
		Fields:         req.Fields,
		SignatureField: req.SignatureField,
		Signer:         req.Signer,
		Stamp:          req.StampText,
		SignedAt:       req.SignedAt.UTC(),
		Digest:         hex.EncodeToString(sum[:]),
	}
	payload, err := rec.payload()
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	h := sha256.Sum256(payload)
	sig, err := ecdsa.SignASN1(rand.Reader, l.key, h[:])
	if err != nil {
		return nil, fmt.Errorf("ecdsa sign: %w", err)
	}
	rec.Signature = base64.StdEncoding.EncodeToString(sig)

	line, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	var out bytes.Buffer
	out.Grow(len(req.Document) + len(sigPrefix) + len(line) + 16)
	out.Write(req.Document)
	if n := len(req.Document); n > 0 && req.Document[n-1] != '\n' {
		out.WriteByte('\n')
	}
	out.WriteString(sigPrefix)
	out.WriteString(base64.StdEncoding.EncodeToString(line))
	out.WriteString("\n%%EOF\n")
	return out.Bytes(), nil
}

// Verify checks every signature record in doc against pub, oldest first,
// and returns them. Each record must cover exactly the bytes before it.
func Verify(doc []byte, pub *ecdsa.PublicKey) ([]Record, error) {
	var out []Record
	prefix := []byte("\n" + sigPrefix)
	off := 0
	for {
		i := bytes.Index(doc[off:], prefix)
		if i < 0 {
			return out, nil
		}
		start := off + i + 1
		end := bytes.IndexByte(doc[start:], '\n')
		if end < 0 {
			return nil, errors.New("truncated signature record")
		}
		end += start

		line, err := base64.StdEncoding.DecodeString(string(doc[start+len(sigPrefix) : end]))
		if err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}

		// the signer inserts a newline only when the document lacked one
		covered := doc[:start]
		sum := sha256.Sum256(covered)
		if hex.EncodeToString(sum[:]) != rec.Digest {
			sum = sha256.Sum256(covered[:len(covered)-1])
			if hex.EncodeToString(sum[:]) != rec.Digest {
				return nil, fmt.Errorf("record %d: digest mismatch", len(out))
			}
		}

		sig, err := base64.StdEncoding.DecodeString(rec.Signature)
		if err != nil {
			return nil, fmt.Errorf("record %d: decode signature: %w", len(out), err)
		}
		payload, err := rec.payload()
		if err != nil {
			return nil, err
		}
		h := sha256.Sum256(payload)
		if !ecdsa.VerifyASN1(pub, h[:], sig) {
			return nil, fmt.Errorf("record %d: bad signature", len(out))
		}
		out = append(out, rec)
		off = end
	}
}
