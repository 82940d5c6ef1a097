// Package initdata verifies signed Mini App init-data assertions and
// resolves the platform user they carry.
package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// webAppDataKey is the fixed HMAC key used to derive the per-bot secret.
const webAppDataKey = "WebAppData"

const hashField = "hash"

var (
	ErrMissingSignature = errors.New("initdata: missing hash")
	ErrBadSignature     = errors.New("initdata: signature mismatch")
	ErrMalformed        = errors.New("initdata: malformed")
	ErrExpired          = errors.New("initdata: auth_date outside allowed window")
)

// Fields is the decoded key/value view of an init-data string.
type Fields map[string]string

// Parse decodes a URL-encoded init-data string. Repeated keys are rejected
// because the data-check string would otherwise be ambiguous.
func Parse(raw string) (Fields, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, ErrMalformed
	}
	fields := make(Fields, len(values))
	for k, vs := range values {
		if len(vs) != 1 {
			return nil, ErrMalformed
		}
		fields[k] = vs[0]
	}
	return fields, nil
}

// DataCheckString serialises every field except hash as key=value lines,
// sorted by key in byte order and joined with '\n'.
func DataCheckString(fields Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == hashField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	return b.String()
}

// SecretKey derives the per-bot key: HMAC-SHA256 keyed with "WebAppData" over the bot token.
func SecretKey(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte(webAppDataKey))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

// Sign returns the hex signature the platform would attach to fields.
func Sign(fields Fields, botToken string) string {
	return hex.EncodeToString(sign(fields, botToken))
}

func sign(fields Fields, botToken string) []byte {
	mac := hmac.New(sha256.New, SecretKey(botToken))
	mac.Write([]byte(DataCheckString(fields)))
	return mac.Sum(nil)
}

// Verify checks raw against botToken and returns the signed fields with
// hash removed. It has no side effects and enforces no expiry.
func Verify(raw, botToken string) (Fields, error) {
	fields, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	provided, ok := fields[hashField]
	if !ok || provided == "" {
		return nil, ErrMissingSignature
	}
	delete(fields, hashField)

	providedSig, err := hex.DecodeString(provided)
	if err != nil {
		return nil, ErrBadSignature
	}
	if !hmac.Equal(sign(fields, botToken), providedSig) {
		return nil, ErrBadSignature
	}
	return fields, nil
}

// maxClockSkew tolerates clients whose auth_date is slightly ahead of ours.
const maxClockSkew = time.Minute

// CheckFreshness bounds the age of an assertion by its auth_date. A
// non-positive maxAge disables the check.
func CheckFreshness(fields Fields, now time.Time, maxAge time.Duration) error {
	if maxAge <= 0 {
		return nil
	}
	secs, err := strconv.ParseInt(fields["auth_date"], 10, 64)
	if err != nil {
		return ErrExpired
	}
	issued := time.Unix(secs, 0)
	if issued.After(now.Add(maxClockSkew)) || now.Sub(issued) > maxAge {
		return ErrExpired
	}
	return nil
}
