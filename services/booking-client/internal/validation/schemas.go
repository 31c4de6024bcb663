package validation

const (
	FieldName                 = "name"
	FieldEmail                = "email"
	FieldPassword             = "password"
	FieldOldPassword          = "oldPassword"
	FieldNewPassword          = "newPassword"
	FieldPasswordConfirmation = "passwordConfirmation"
)

const (
	MsgNameRequired     = "Nome obrigatório"
	MsgEmailRequired    = "E-mail obrigatório"
	MsgEmailInvalid     = "Digite um e-mail válido"
	MsgPasswordTooShort = "No mínimo 6 dígitos"
	MsgNewPassword      = "Informe a nova senha"
	MsgPasswordMismatch = "As senhas não são iguais"
)

const MinPasswordLength = 6

var SignUp = Schema{
	{Name: FieldName, Rules: []Rule{Required(MsgNameRequired)}},
	{Name: FieldEmail, Rules: []Rule{Required(MsgEmailRequired), Email(MsgEmailInvalid)}},
	{Name: FieldPassword, Rules: []Rule{MinLength(MinPasswordLength, MsgPasswordTooShort)}},
}

// Profile only asks for a new password once the old one is filled in.
var Profile = Schema{
	{Name: FieldName, Rules: []Rule{Required(MsgNameRequired)}},
	{Name: FieldEmail, Rules: []Rule{Required(MsgEmailRequired), Email(MsgEmailInvalid)}},
	{Name: FieldNewPassword, Rules: []Rule{RequiredWhen(FieldOldPassword, NotEmpty, MsgNewPassword)}},
	{Name: FieldPasswordConfirmation, Rules: []Rule{
		RequiredWhen(FieldOldPassword, NotEmpty, MsgNewPassword),
		Matches(FieldNewPassword, MsgPasswordMismatch),
	}},
}
