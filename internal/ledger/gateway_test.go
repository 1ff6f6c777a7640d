package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/tintaforte/api-contratos/internal/contrato"
	"github.com/tintaforte/api-contratos/internal/erros"
	"github.com/tintaforte/api-contratos/internal/ledger"
)

func TestStatusEspelhado(t *testing.T) {
	casos := map[string]ledger.Status{
		contrato.StatusRascunho:             ledger.StatusRascunho,
		contrato.StatusAguardandoAssinatura: ledger.StatusAguardandoAssinatura,
		contrato.StatusAssinado:             ledger.StatusAssinado,
		contrato.StatusCancelado:            ledger.StatusCancelado,
	}
	for registro, esperado := range casos {
		got, err := ledger.StatusDoRegistro(registro)
		if err != nil {
			t.Fatalf("StatusDoRegistro(%s): %v", registro, err)
		}
		if got != esperado {
			t.Fatalf("StatusDoRegistro(%s) = %v, esperava %v", registro, got, esperado)
		}
		if !got.CorrespondeA(registro) {
			t.Fatalf("CorrespondeA falhou para %s", registro)
		}
	}

	if _, err := ledger.StatusDoRegistro("desconhecido"); err == nil {
		t.Fatalf("status sem espelho deveria falhar")
	}
	if ledger.StatusAssinado.CorrespondeA(contrato.StatusRascunho) {
		t.Fatalf("Signed não pode corresponder a draft")
	}
}

func TestOrdenarEventos(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	eventos := []ledger.Evento{
		{Nome: "ContractSigned", Quando: base.Add(2 * time.Hour)},
		{Nome: "ContractStored", Quando: base},
		{Nome: "SignatureRequested", Quando: base.Add(time.Hour)},
	}
	ledger.OrdenarEventos(eventos)

	ordem := []string{"ContractStored", "SignatureRequested", "ContractSigned"}
	for i, nome := range ordem {
		if eventos[i].Nome != nome {
			t.Fatalf("posição %d = %s, esperava %s", i, eventos[i].Nome, nome)
		}
	}
}

func TestIndisponivelFalhaComErroDeLedger(t *testing.T) {
	g := ledger.Indisponivel{}
	ctx := context.Background()

	if _, err := g.RegistrarContrato(ctx, 1, "cid", "a@x", "b@x"); !erros.EhTipo(err, erros.TipoLedger) {
		t.Fatalf("RegistrarContrato: esperava erro de ledger, veio %v", err)
	}
	if _, err := g.DetalhesContrato(ctx, 1); !erros.EhTipo(err, erros.TipoLedger) {
		t.Fatalf("DetalhesContrato: esperava erro de ledger, veio %v", err)
	}
	if _, err := g.EstimarRegistro(ctx, 1, "cid"); !erros.EhTipo(err, erros.TipoLedger) {
		t.Fatalf("EstimarRegistro: esperava erro de ledger, veio %v", err)
	}
}
