package contrato

import (
	"strings"
	"time"

	"github.com/tintaforte/api-contratos/internal/erros"
)

// ParteDTO identifica uma das partes do contrato.
type ParteDTO struct {
	Nome  string `json:"nome"`
	Email string `json:"email"`
}

// PagamentoDTO descreve valor e forma de pagamento acordados.
type PagamentoDTO struct {
	Valor float64 `json:"valor"`
	Forma string  `json:"forma"`
}

// GerarRequest é o payload de geração de um novo contrato.
type GerarRequest struct {
	CriadorID           uint         `json:"criadorId"`
	Titulo              string       `json:"titulo"`
	Descricao           string       `json:"descricao"`
	Local               Local        `json:"local"`
	DataInicioPrevista  string       `json:"dataInicioPrevista"` // YYYY-MM-DD
	DuracaoPrevistaDias int          `json:"duracaoPrevistaDias"`
	Contratante         ParteDTO     `json:"contratante"`
	Prestador           ParteDTO     `json:"prestador"`
	Pagamento           PagamentoDTO `json:"pagamento"`
}

// Validar confere os campos obrigatórios e devolve a data de início.
func (r *GerarRequest) Validar() (time.Time, error) {
	switch {
	case r.CriadorID == 0:
		return time.Time{}, erros.Validacao("criadorId é obrigatório")
	case strings.TrimSpace(r.Titulo) == "":
		return time.Time{}, erros.Validacao("titulo é obrigatório")
	case r.Local.Cidade == "" && (r.Local.Lat == 0 && r.Local.Lon == 0):
		return time.Time{}, erros.Validacao("local precisa de cidade ou coordenadas")
	case r.DuracaoPrevistaDias <= 0:
		return time.Time{}, erros.Validacao("duracaoPrevistaDias deve ser positiva")
	case r.Contratante.Nome == "" || r.Contratante.Email == "":
		return time.Time{}, erros.Validacao("dados do contratante incompletos")
	case r.Prestador.Nome == "" || r.Prestador.Email == "":
		return time.Time{}, erros.Validacao("dados do prestador incompletos")
	case strings.EqualFold(r.Contratante.Email, r.Prestador.Email):
		return time.Time{}, erros.Conflito("contratante e prestador não podem usar o mesmo email")
	case r.Pagamento.Valor <= 0 || r.Pagamento.Forma == "":
		return time.Time{}, erros.Validacao("dados de pagamento incompletos")
	}
	inicio, err := time.Parse("2006-01-02", r.DataInicioPrevista)
	if err != nil {
		return time.Time{}, erros.Validacao("dataInicioPrevista inválida, use YYYY-MM-DD")
	}
	return inicio, nil
}

// DoRequest monta o contrato em rascunho a partir do payload validado.
func DoRequest(r *GerarRequest, inicio time.Time) *Contrato {
	return &Contrato{
		CriadorID:           r.CriadorID,
		Titulo:              r.Titulo,
		Descricao:           r.Descricao,
		Local:               r.Local,
		DataInicioPrevista:  inicio,
		DuracaoPrevistaDias: r.DuracaoPrevistaDias,
		ContratanteNome:     r.Contratante.Nome,
		ContratanteEmail:    r.Contratante.Email,
		PrestadorNome:       r.Prestador.Nome,
		PrestadorEmail:      r.Prestador.Email,
		Valor:               r.Pagamento.Valor,
		FormaPagamento:      r.Pagamento.Forma,
		Status:              StatusRascunho,
	}
}
