package assinatura

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tintaforte/api-contratos/internal/erros"
)

// ClaimsToken amarra o token de verificação a (email, CPF) do signatário.
type ClaimsToken struct {
	Email string `json:"email"`
	CPF   string `json:"cpf"`
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// ServicoToken emite e valida tokens assinados de verificação por email.
// A validação falha fechada: expirado ou malformado nunca passa.
type ServicoToken struct {
	segredo  []byte
	validade time.Duration
}

func NewServicoToken(segredo string, validade time.Duration) *ServicoToken {
	if validade <= 0 {
		validade = 30 * time.Minute
	}
	return &ServicoToken{segredo: []byte(segredo), validade: validade}
}

// Gerar emite um token com prazo curto amarrado a (email, CPF).
func (s *ServicoToken) Gerar(email, cpf string) (string, time.Time, error) {
	expira := time.Now().UTC().Add(s.validade)
	claims := &ClaimsToken{
		Email: email,
		CPF:   cpf,
		Nonce: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expira),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	assinado, err := token.SignedString(s.segredo)
	if err != nil {
		return "", time.Time{}, err
	}
	return assinado, expira, nil
}

// Validar decodifica e confere o token; devolve as claims quando válido.
func (s *ServicoToken) Validar(tokenStr string) (*ClaimsToken, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &ClaimsToken{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, erros.Validacao("método de assinatura do token inesperado")
		}
		return s.segredo, nil
	})
	if err != nil || !token.Valid {
		return nil, erros.Validacao("token inválido ou expirado")
	}
	claims, ok := token.Claims.(*ClaimsToken)
	if !ok {
		return nil, erros.Validacao("claims do token ilegíveis")
	}
	return claims, nil
}
