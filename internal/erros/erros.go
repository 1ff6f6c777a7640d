// Package erros define a taxonomia de erros estáveis da API de contratos.
// Cada operação rejeitada devolve um tipo daqui com uma razão legível.
package erros

import (
	"errors"
	"fmt"
	"net/http"
)

// Tipo classifica o erro para efeito de propagação e status HTTP.
type Tipo string

const (
	TipoValidacao     Tipo = "validation_error"
	TipoArmazenamento Tipo = "storage_error"
	TipoLedger        Tipo = "ledger_error"
	TipoPredicao      Tipo = "prediction_error"
	TipoClima         Tipo = "forecast_error"
	TipoConflito      Tipo = "conflict_error"
	TipoProibido      Tipo = "forbidden"
	TipoNaoEncontrado Tipo = "not_found"
)

// Erro carrega o tipo estável mais a mensagem para o usuário.
type Erro struct {
	Tipo     Tipo
	Mensagem string
	Causa    error
}

func (e *Erro) Error() string {
	if e.Causa != nil {
		return fmt.Sprintf("%s: %s: %v", e.Tipo, e.Mensagem, e.Causa)
	}
	return fmt.Sprintf("%s: %s", e.Tipo, e.Mensagem)
}

func (e *Erro) Unwrap() error { return e.Causa }

func novo(t Tipo, msg string, causa error) *Erro {
	return &Erro{Tipo: t, Mensagem: msg, Causa: causa}
}

func Validacao(msg string) *Erro               { return novo(TipoValidacao, msg, nil) }
func Armazenamento(msg string, c error) *Erro  { return novo(TipoArmazenamento, msg, c) }
func Ledger(msg string, c error) *Erro         { return novo(TipoLedger, msg, c) }
func Predicao(msg string, c error) *Erro       { return novo(TipoPredicao, msg, c) }
func Clima(msg string, c error) *Erro          { return novo(TipoClima, msg, c) }
func Conflito(msg string) *Erro                { return novo(TipoConflito, msg, nil) }
func Proibido(msg string) *Erro                { return novo(TipoProibido, msg, nil) }
func NaoEncontrado(msg string) *Erro           { return novo(TipoNaoEncontrado, msg, nil) }

// TipoDe extrai o tipo estável de um erro qualquer.
func TipoDe(err error) (Tipo, bool) {
	var e *Erro
	if errors.As(err, &e) {
		return e.Tipo, true
	}
	return "", false
}

func EhTipo(err error, t Tipo) bool {
	tipo, ok := TipoDe(err)
	return ok && tipo == t
}

// StatusHTTP mapeia o tipo para o código de resposta.
func StatusHTTP(err error) int {
	switch tipo, _ := TipoDe(err); tipo {
	case TipoValidacao:
		return http.StatusBadRequest
	case TipoConflito:
		return http.StatusConflict
	case TipoProibido:
		return http.StatusForbidden
	case TipoNaoEncontrado:
		return http.StatusNotFound
	case TipoArmazenamento, TipoLedger:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
