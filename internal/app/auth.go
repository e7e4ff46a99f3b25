package app

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"cabao-quiz-service/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	minNicknameLen = 3
	minPhoneDigits = 10
)

// Identity is the outcome of a successful credential check.
type Identity struct {
	Nickname string
	Phone    string
	Admin    bool
}

// Authenticator separates the single reserved admin identity from players.
type Authenticator struct {
	adminNickname string
	adminHash     []byte
}

// NewAuthenticator hashes the admin passphrase. An empty passphrase disables admin login.
// Passphrases compare case-insensitively.
func NewAuthenticator(adminNickname, passphrase string) (*Authenticator, error) {
	if adminNickname == "" {
		adminNickname = "ADMIN"
	}
	a := &Authenticator{adminNickname: domain.NormalizeNickname(adminNickname)}
	if passphrase == "" {
		return a, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(strings.ToUpper(passphrase)), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	a.adminHash = hash
	return a, nil
}

// AdminNickname is the reserved nickname.
func (a *Authenticator) AdminNickname() string {
	return a.adminNickname
}

// CheckAdminPassphrase reports whether passphrase unlocks the admin identity.
func (a *Authenticator) CheckAdminPassphrase(passphrase string) bool {
	if len(a.adminHash) == 0 || passphrase == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.adminHash, []byte(strings.ToUpper(passphrase))) == nil
}

// Verify validates login input. Rejections are *domain.ValidationError.
func (a *Authenticator) Verify(nickname, phone, passphrase string) (Identity, error) {
	nick := domain.NormalizeNickname(nickname)
	if nick == a.adminNickname {
		if !a.CheckAdminPassphrase(passphrase) {
			return Identity{}, &domain.ValidationError{Field: "passphrase", Message: "access denied: wrong code"}
		}
		return Identity{Nickname: nick, Admin: true}, nil
	}

	if utf8.RuneCountInString(nick) < minNicknameLen {
		return Identity{}, &domain.ValidationError{Field: "nickname", Message: "nickname must have at least 3 characters"}
	}
	phone = strings.TrimSpace(phone)
	if countDigits(phone) < minPhoneDigits {
		return Identity{}, &domain.ValidationError{Field: "phone", Message: "phone number must have at least 10 digits"}
	}
	return Identity{Nickname: nick, Phone: phone}, nil
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
