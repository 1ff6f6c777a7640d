package contrato_test

import (
	"testing"
	"time"

	"github.com/tintaforte/api-contratos/internal/contrato"
	"github.com/tintaforte/api-contratos/internal/erros"
)

func contratoRascunho() *contrato.Contrato {
	return &contrato.Contrato{
		Titulo:              "Pintura externa",
		DuracaoPrevistaDias: 30,
		ContratanteEmail:    "cliente@example.com",
		PrestadorEmail:      "pintor@example.com",
		Status:              contrato.StatusRascunho,
	}
}

func TestTransicoesDeAssinatura(t *testing.T) {
	c := contratoRascunho()

	if err := c.SolicitarAssinatura(); err != nil {
		t.Fatalf("draft -> pending: %v", err)
	}
	if c.Status != contrato.StatusAguardandoAssinatura {
		t.Fatalf("status = %s", c.Status)
	}
	// Reenvio da solicitação é idempotente.
	if err := c.SolicitarAssinatura(); err != nil {
		t.Fatalf("pending -> pending: %v", err)
	}

	agora := time.Now().UTC()
	if err := c.Assinar("cid-assinado", contrato.MetodoClickOnly, nil, agora); err != nil {
		t.Fatalf("pending -> signed: %v", err)
	}
	if c.CIDAssinado == nil || *c.CIDAssinado != "cid-assinado" {
		t.Fatalf("CIDAssinado não preenchido")
	}
	if c.DataAssinatura == nil || !c.DataAssinatura.Equal(agora) {
		t.Fatalf("DataAssinatura não preenchida")
	}

	// Estado terminal: nada mais entra.
	if err := c.Assinar("outro", contrato.MetodoClickOnly, nil, agora); !erros.EhTipo(err, erros.TipoConflito) {
		t.Fatalf("assinar duas vezes deveria conflitar, veio %v", err)
	}
	if err := c.SolicitarAssinatura(); !erros.EhTipo(err, erros.TipoConflito) {
		t.Fatalf("solicitar após assinado deveria conflitar, veio %v", err)
	}
}

func TestCancelarSoEmRascunho(t *testing.T) {
	c := contratoRascunho()
	if err := c.Cancelar(); err != nil {
		t.Fatalf("cancelar rascunho: %v", err)
	}
	if c.Status != contrato.StatusCancelado {
		t.Fatalf("status = %s", c.Status)
	}

	p := contratoRascunho()
	_ = p.SolicitarAssinatura()
	if err := p.Cancelar(); !erros.EhTipo(err, erros.TipoConflito) {
		t.Fatalf("cancelar pending deveria conflitar, veio %v", err)
	}

	a := contratoRascunho()
	_ = a.Assinar("cid", contrato.MetodoClickOnly, nil, time.Now())
	if err := a.Cancelar(); !erros.EhTipo(err, erros.TipoConflito) {
		t.Fatalf("cancelar assinado deveria conflitar, veio %v", err)
	}
}

func TestContratoCanceladoNaoAssina(t *testing.T) {
	c := contratoRascunho()
	_ = c.Cancelar()
	if err := c.Assinar("cid", contrato.MetodoClickOnly, nil, time.Now()); !erros.EhTipo(err, erros.TipoConflito) {
		t.Fatalf("assinar cancelado deveria conflitar, veio %v", err)
	}
}

func TestAjustarDuracao(t *testing.T) {
	c := contratoRascunho()
	c.ID = 7

	aj, err := c.AjustarDuracao(36, "chuva prevista", nil)
	if err != nil {
		t.Fatalf("AjustarDuracao: %v", err)
	}
	if c.DuracaoVigente() != 36 {
		t.Fatalf("duração vigente = %d", c.DuracaoVigente())
	}
	if aj.DuracaoOriginal != 30 || aj.DuracaoAjustada != 36 || aj.ContratoID != 7 {
		t.Fatalf("auditoria incompleta: %+v", aj)
	}

	// Segundo ajuste parte da duração vigente.
	aj2, err := c.AjustarDuracao(40, "mais chuva", nil)
	if err != nil {
		t.Fatalf("segundo ajuste: %v", err)
	}
	if aj2.DuracaoOriginal != 36 {
		t.Fatalf("auditoria do segundo ajuste parte de %d, esperava 36", aj2.DuracaoOriginal)
	}

	// Nunca abaixo da prevista.
	if _, err := c.AjustarDuracao(20, "encolher", nil); !erros.EhTipo(err, erros.TipoValidacao) {
		t.Fatalf("ajuste abaixo do previsto deveria falhar, veio %v", err)
	}
}

func TestEhParte(t *testing.T) {
	c := contratoRascunho()
	if !c.EhParte("cliente@example.com") || !c.EhParte("pintor@example.com") {
		t.Fatalf("partes do contrato não reconhecidas")
	}
	if c.EhParte("intruso@example.com") {
		t.Fatalf("terceiro não pode ser parte")
	}
}

func TestGerarRequestValidar(t *testing.T) {
	valido := func() *contrato.GerarRequest {
		return &contrato.GerarRequest{
			CriadorID:           1,
			Titulo:              "Pintura",
			Local:               contrato.Local{Cidade: "Curitiba"},
			DataInicioPrevista:  "2026-09-01",
			DuracaoPrevistaDias: 30,
			Contratante:         contrato.ParteDTO{Nome: "Cliente", Email: "cliente@example.com"},
			Prestador:           contrato.ParteDTO{Nome: "Pintor", Email: "pintor@example.com"},
			Pagamento:           contrato.PagamentoDTO{Valor: 5000, Forma: "pix"},
		}
	}

	if _, err := valido().Validar(); err != nil {
		t.Fatalf("payload válido rejeitado: %v", err)
	}

	r := valido()
	r.Prestador.Email = "CLIENTE@example.com"
	if _, err := r.Validar(); !erros.EhTipo(err, erros.TipoConflito) {
		t.Fatalf("emails iguais deveriam conflitar, veio %v", err)
	}

	r = valido()
	r.DataInicioPrevista = "01/09/2026"
	if _, err := r.Validar(); !erros.EhTipo(err, erros.TipoValidacao) {
		t.Fatalf("data fora do formato deveria falhar, veio %v", err)
	}

	r = valido()
	r.DuracaoPrevistaDias = 0
	if _, err := r.Validar(); !erros.EhTipo(err, erros.TipoValidacao) {
		t.Fatalf("duração zero deveria falhar, veio %v", err)
	}
}
