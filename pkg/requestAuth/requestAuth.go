package requestAuth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	SignatureHeader = "X-Ledger-Signature"
	TimestampHeader = "X-Ledger-Timestamp"

	DefaultMaxClockSkew = 5 * time.Minute

	replayCacheSize = 1 << 16
)

var (
	// ErrUnauthenticated is wrapped by every verification failure.
	ErrUnauthenticated  = errors.New("request is not authenticated")
	ErrMissingSignature = fmt.Errorf("%w: missing %s header", ErrUnauthenticated, SignatureHeader)
	ErrInvalidTimestamp = fmt.Errorf("%w: missing or malformed %s header", ErrUnauthenticated, TimestampHeader)
	ErrStaleRequest     = fmt.Errorf("%w: request timestamp is outside the accepted window", ErrUnauthenticated)
	ErrInvalidSignature = fmt.Errorf("%w: invalid signature", ErrUnauthenticated)
	ErrReplayedRequest  = fmt.Errorf("%w: request was already accepted", ErrUnauthenticated)
)

// SigningHash is the EIP-191 personal message hash a caller signs for a request:
// method, path and millisecond timestamp on their own lines, followed by the raw body.
func SigningHash(method, path string, timestampMs int64, body []byte) []byte {
	msg := make([]byte, 0, len(method)+len(path)+len(body)+24)
	msg = fmt.Appendf(msg, "%s\n%s\n%d\n", method, path, timestampMs)
	msg = append(msg, body...)
	return accounts.TextHash(msg)
}

// Signer signs requests on behalf of the principal owning its key.
type Signer struct {
	key       *ecdsa.PrivateKey
	principal string
	now       func() time.Time
}

// NewSigner parses a hex secp256k1 private key, with or without a 0x prefix.
func NewSigner(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Signer{
		key:       key,
		principal: PrincipalOf(&key.PublicKey),
		now:       time.Now,
	}, nil
}

// PrincipalOf returns the lower-cased address controlled by pub.
func PrincipalOf(pub *ecdsa.PublicKey) string {
	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex())
}

func (s *Signer) Principal() string {
	return s.principal
}

// Sign returns a 65 byte [R || S || V] signature, V being 27 or 28, hex encoded.
func (s *Signer) Sign(method, path string, timestampMs int64, body []byte) (string, error) {
	sig, err := crypto.Sign(SigningHash(method, path, timestampMs, body), s.key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// SignRequest sets the signature and timestamp headers on req. body must be the exact bytes sent.
func (s *Signer) SignRequest(req *http.Request, body []byte) error {
	ts := s.now().UnixMilli()
	sig, err := s.Sign(req.Method, req.URL.Path, ts, body)
	if err != nil {
		return err
	}
	req.Header.Set(SignatureHeader, sig)
	req.Header.Set(TimestampHeader, strconv.FormatInt(ts, 10))
	return nil
}

// RecoverPrincipal returns the principal whose key produced signature over hash.
// Malleable (high S) signatures are rejected.
func RecoverPrincipal(hash []byte, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return "", ErrInvalidSignature
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	r := new(big.Int).SetBytes(sig[:32])
	sValue := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(sig[crypto.RecoveryIDOffset], r, sValue, true) {
		return "", ErrInvalidSignature
	}
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return PrincipalOf(pub), nil
}

// Verifier authenticates signed requests. Each signed message is accepted once.
type Verifier struct {
	maxClockSkew time.Duration
	now          func() time.Time

	mu   sync.Mutex
	seen lru.BasicLRU[common.Hash, int64]
}

func NewVerifier(maxClockSkew time.Duration) *Verifier {
	if maxClockSkew <= 0 {
		maxClockSkew = DefaultMaxClockSkew
	}
	return &Verifier{
		maxClockSkew: maxClockSkew,
		now:          time.Now,
		seen:         lru.NewBasicLRU[common.Hash, int64](replayCacheSize),
	}
}

// Verify returns the principal that signed r. body is the request body, already read by the caller.
func (v *Verifier) Verify(r *http.Request, body []byte) (string, error) {
	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		return "", ErrMissingSignature
	}
	ts, err := strconv.ParseInt(r.Header.Get(TimestampHeader), 10, 64)
	if err != nil {
		return "", ErrInvalidTimestamp
	}
	skew := v.now().Sub(time.UnixMilli(ts))
	if skew < 0 {
		skew = -skew
	}
	if skew > v.maxClockSkew {
		return "", ErrStaleRequest
	}

	hash := SigningHash(r.Method, r.URL.Path, ts, body)
	principal, err := RecoverPrincipal(hash, signature)
	if err != nil {
		return "", err
	}

	// Evicting an entry older than the skew window is harmless since its timestamp is rejected above.
	// Replays are therefore caught for up to replayCacheSize requests per window.
	key := crypto.Keccak256Hash(hash, []byte(principal))
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.seen.Contains(key) {
		return "", ErrReplayedRequest
	}
	v.seen.Add(key, ts)
	return principal, nil
}
