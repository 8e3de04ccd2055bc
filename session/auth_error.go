package session

import "github.com/jrsteele09/go-chat-auth/identity"

// Field names the form input the UI should highlight for an AuthError.
type Field string

const (
	FieldNone     Field = ""
	FieldEmail    Field = "email"
	FieldPassword Field = "password"
)

// AuthError describes the outcome of the most recent Login or SignUp attempt.
// The zero value means "no error".
type AuthError struct {
	Message string `json:"message"`
	Field   Field  `json:"fieldTrigger"`
}

// IsZero reports whether no error is recorded.
func (e AuthError) IsZero() bool {
	return e == AuthError{}
}

// Messages shown to the user. They are Russian to match the chat UI.
const (
	msgInvalidCredentials  = "Неверный логин или пароль"
	msgOperationNotAllowed = "Операция не разрешена"
	msgTooManyAttempts     = "Cлишком много попыток, попробуйте позже"
	msgEmailNotFound       = "Email не найден, попробуйте другой"
	msgInvalidPassword     = "Неверный пароль"
	msgUserDisabled        = "Пользователь заблокирован"
	msgUserNotFound        = "Пользователь не найден"
	msgEmailExists         = "Данный email уже зарегистрирован"
	msgWeakPassword        = "Слабый пароль"
	msgSomethingWentWrong  = "Что-то пошло не так"
	msgServiceUnavailable  = "Сервис недоступен, попробуйте позже"
)

// ErrorTable maps identity error codes to user facing errors. Codes missing
// from the table resolve to Default.
type ErrorTable struct {
	Entries map[identity.ErrorCode]AuthError
	Default AuthError
}

// Lookup resolves code, falling back to the default entry.
func (t ErrorTable) Lookup(code identity.ErrorCode) AuthError {
	if e, ok := t.Entries[code]; ok {
		return e
	}
	return t.Default
}

var defaultAuthError = AuthError{Message: msgSomethingWentWrong, Field: FieldPassword}

// transportAuthError is reported when the identity endpoint gave no
// structured answer.
var transportAuthError = AuthError{Message: msgServiceUnavailable, Field: FieldNone}

// LoginErrors is used by Store.Login. TOO_MANY_ATTEMPTS_TRY_LATER shares the
// invalid credentials text.
var LoginErrors = ErrorTable{
	Entries: map[identity.ErrorCode]AuthError{
		identity.CodeInvalidLoginCredentials: {Message: msgInvalidCredentials, Field: FieldPassword},
		identity.CodeOperationNotAllowed:     {Message: msgOperationNotAllowed, Field: FieldPassword},
		identity.CodeTooManyAttempts:         {Message: msgInvalidCredentials, Field: FieldPassword},
		identity.CodeEmailNotFound:           {Message: msgEmailNotFound, Field: FieldEmail},
		identity.CodeInvalidPassword:         {Message: msgInvalidPassword, Field: FieldPassword},
		identity.CodeUserDisabled:            {Message: msgUserDisabled, Field: FieldEmail},
		identity.CodeUserNotFound:            {Message: msgUserNotFound, Field: FieldEmail},
	},
	Default: defaultAuthError,
}

// SignUpErrors is used by Store.SignUp.
var SignUpErrors = ErrorTable{
	Entries: map[identity.ErrorCode]AuthError{
		identity.CodeEmailExists:         {Message: msgEmailExists, Field: FieldEmail},
		identity.CodeOperationNotAllowed: {Message: msgOperationNotAllowed, Field: FieldPassword},
		identity.CodeTooManyAttempts:     {Message: msgTooManyAttempts, Field: FieldEmail},
		identity.CodeEmailNotFound:       {Message: msgEmailNotFound, Field: FieldEmail},
		identity.CodeInvalidPassword:     {Message: msgInvalidPassword, Field: FieldPassword},
		identity.CodeUserDisabled:        {Message: msgUserDisabled, Field: FieldEmail},
		identity.CodeUserNotFound:        {Message: msgUserNotFound, Field: FieldEmail},
		identity.CodeWeakPassword:        {Message: msgWeakPassword, Field: FieldPassword},
	},
	Default: defaultAuthError,
}
