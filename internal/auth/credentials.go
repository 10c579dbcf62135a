package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/todoman/internal/model"
)

// MinPasswordLength はパスワードの最小文字数。
const MinPasswordLength = 6

var emailRegexp = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$")

// NormalizeEmail は前後の空白を取り除く。
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// ValidateCredentials は登録時のメールアドレスとパスワードを検証する。
// emailはNormalizeEmail済みであること。
func ValidateCredentials(email, password string) error {
	if email == "" {
		return model.NewValidationError("email", "メールアドレスは必須です")
	}
	if !emailRegexp.MatchString(email) {
		return model.NewValidationError("email", email+" は有効なメールアドレスではありません")
	}
	if password == "" {
		return model.NewValidationError("password", "パスワードは必須です")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return model.NewValidationError("password", "パスワードは6文字以上で入力してください")
	}
	return nil
}
