package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/brainbox-app/brainbox/auth"
)

// restErrorCodes maps Identity Toolkit and Secure Token error messages onto provider codes.
var restErrorCodes = map[string]string{
	"EMAIL_EXISTS":                auth.CodeEmailAlreadyInUse,
	"INVALID_EMAIL":               auth.CodeInvalidEmail,
	"MISSING_EMAIL":               auth.CodeInvalidEmail,
	"OPERATION_NOT_ALLOWED":       auth.CodeOperationNotAllowed,
	"PASSWORD_LOGIN_DISABLED":     auth.CodeOperationNotAllowed,
	"WEAK_PASSWORD":               auth.CodeWeakPassword,
	"USER_DISABLED":               auth.CodeUserDisabled,
	"EMAIL_NOT_FOUND":             auth.CodeUserNotFound,
	"USER_NOT_FOUND":              auth.CodeUserNotFound,
	"INVALID_PASSWORD":            auth.CodeWrongPassword,
	"INVALID_LOGIN_CREDENTIALS":   auth.CodeInvalidCredential,
	"INVALID_IDP_RESPONSE":        auth.CodeInvalidCredential,
	"TOO_MANY_ATTEMPTS_TRY_LATER": auth.CodeTooManyRequests,
	"TOKEN_EXPIRED":               auth.CodeUserTokenExpired,
	"INVALID_ID_TOKEN":            auth.CodeUserTokenExpired,
	"INVALID_REFRESH_TOKEN":       auth.CodeUserTokenExpired,
}

type restErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// errorFromBody decodes a REST error response. Messages look like "WEAK_PASSWORD : Password should be ...".
func errorFromBody(status int, body []byte) error {
	var decoded restErrorBody
	if err := json.Unmarshal(body, &decoded); err != nil || decoded.Error.Message == "" {
		return &auth.ProviderError{Code: "auth/internal-error", Message: fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(body)))}
	}

	reason, detail, _ := strings.Cut(decoded.Error.Message, " : ")
	reason = strings.TrimSpace(reason)
	code, ok := restErrorCodes[reason]
	if !ok {
		code = "auth/" + strings.ReplaceAll(strings.ToLower(reason), "_", "-")
	}
	return &auth.ProviderError{Code: code, Message: strings.TrimSpace(detail)}
}

func transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &auth.ProviderError{Code: auth.CodeNetworkRequestFailed, Err: err}
	}
	return err
}
