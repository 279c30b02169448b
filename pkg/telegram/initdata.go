// Package telegram validates Telegram Mini App init data.
//
// See https://core.telegram.org/bots/webapps#validating-data-received-via-the-mini-app
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformed          = errors.New("telegram: malformed init data")
	ErrSignatureMissing   = errors.New("telegram: hash is missing")
	ErrSignatureInvalid   = errors.New("telegram: signature is invalid")
	ErrAuthDateMissing    = errors.New("telegram: auth_date is missing")
	ErrExpired            = errors.New("telegram: init data expired")
	ErrEmptyBotToken      = errors.New("telegram: bot token is empty")
	ErrUserMissing        = errors.New("telegram: user is missing")
	ErrAuthorizationShape = errors.New("telegram: authorization header must be 'tma <init-data>'")
)

// User is the profile Telegram embeds in init data.
type User struct {
	ID                    int64  `json:"id"`
	IsBot                 bool   `json:"is_bot,omitempty"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name,omitempty"`
	Username              string `json:"username,omitempty"`
	LanguageCode          string `json:"language_code,omitempty"`
	IsPremium             bool   `json:"is_premium,omitempty"`
	AddedToAttachmentMenu bool   `json:"added_to_attachment_menu,omitempty"`
	PhotoURL              string `json:"photo_url,omitempty"`
}

// InitData is the parsed init data string.
type InitData struct {
	AuthDate     time.Time
	QueryID      string
	StartParam   string
	ChatType     string
	ChatInstance string
	Hash         string
	User         *User
}

// ParseAuthorization extracts the raw init data from an "Authorization:
// tma <raw>" header value.
func ParseAuthorization(header string) (string, error) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "tma") || strings.TrimSpace(raw) == "" {
		return "", ErrAuthorizationShape
	}
	return strings.TrimSpace(raw), nil
}

// Parse decodes raw init data without checking its signature.
func Parse(raw string) (InitData, error) {
	q, err := url.ParseQuery(raw)
	if err != nil {
		return InitData{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	d := InitData{
		QueryID:      q.Get("query_id"),
		StartParam:   q.Get("start_param"),
		ChatType:     q.Get("chat_type"),
		ChatInstance: q.Get("chat_instance"),
		Hash:         q.Get("hash"),
	}

	if s := q.Get("auth_date"); s != "" {
		sec, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return InitData{}, fmt.Errorf("%w: auth_date: %w", ErrMalformed, err)
		}
		d.AuthDate = time.Unix(sec, 0).UTC()
	}

	if s := q.Get("user"); s != "" {
		var u User
		if err := json.Unmarshal([]byte(s), &u); err != nil {
			return InitData{}, fmt.Errorf("%w: user: %w", ErrMalformed, err)
		}
		d.User = &u
	}

	return d, nil
}

// Validate checks the hash of raw init data against the bot token and
// rejects data older than ttl (ttl <= 0 disables the age check).
func Validate(raw, botToken string, ttl time.Duration, now time.Time) error {
	if botToken == "" {
		return ErrEmptyBotToken
	}

	q, err := url.ParseQuery(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	hash := q.Get("hash")
	if hash == "" {
		return ErrSignatureMissing
	}

	authDate := q.Get("auth_date")
	if authDate == "" {
		return ErrAuthDateMissing
	}
	sec, err := strconv.ParseInt(authDate, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: auth_date: %w", ErrMalformed, err)
	}
	if ttl > 0 && time.Unix(sec, 0).Add(ttl).Before(now) {
		return ErrExpired
	}

	want, err := hex.DecodeString(hash)
	if err != nil {
		return ErrSignatureInvalid
	}
	if !hmac.Equal(sign(q, botToken), want) {
		return ErrSignatureInvalid
	}
	return nil
}

// Sign returns the hex hash Telegram would attach to the given pairs.
func Sign(values url.Values, botToken string) string {
	return hex.EncodeToString(sign(values, botToken))
}

func sign(values url.Values, botToken string) []byte {
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheckString(values)))
	return mac.Sum(nil)
}

// dataCheckString is every key=value pair except hash, sorted by key and
// joined with newlines.
func dataCheckString(values url.Values) string {
	pairs := make([]string, 0, len(values))
	for k, vs := range values {
		if k == "hash" || len(vs) == 0 {
			continue
		}
		pairs = append(pairs, k+"="+vs[0])
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "\n")
}
