package documento_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tintaforte/api-contratos/internal/armazenamento"
	"github.com/tintaforte/api-contratos/internal/contrato"
	"github.com/tintaforte/api-contratos/internal/documento"
	"github.com/tintaforte/api-contratos/internal/previsao"
)

func snapshotExemplo() documento.Snapshot {
	c := &contrato.Contrato{
		Titulo:              "Pintura da fachada",
		Local:               contrato.Local{Endereco: "Rua A, 10", Cidade: "Curitiba", Estado: "PR", Pais: "BR"},
		DataInicioPrevista:  time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		DuracaoPrevistaDias: 30,
		ContratanteNome:     "Cliente",
		ContratanteEmail:    "cliente@example.com",
		PrestadorNome:       "Pintor",
		PrestadorEmail:      "pintor@example.com",
		Valor:               5000,
		FormaPagamento:      "pix",
	}
	c.ID = 12
	return documento.Snapshot{
		Contrato: c,
		Previsao: &previsao.Previsao{ProbChuva: 0.6, AtrasoPrevistoDias: 4, Confianca: 0.8},
	}
}

func TestRenderizacaoDeterministica(t *testing.T) {
	r := documento.NewRenderizadorTexto()
	s := snapshotExemplo()

	a, err := r.Renderizar(s)
	if err != nil {
		t.Fatalf("Renderizar: %v", err)
	}
	b, err := r.Renderizar(s)
	if err != nil {
		t.Fatalf("Renderizar de novo: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("mesmo snapshot rendeu artefatos diferentes")
	}
	if armazenamento.CID(a) != armazenamento.CID(b) {
		t.Fatalf("CID não reproduzível para o mesmo snapshot")
	}
}

func TestRenderizacaoConteudo(t *testing.T) {
	r := documento.NewRenderizadorTexto()
	s := snapshotExemplo()
	ajustada := 36
	s.Contrato.DuracaoAjustadaDias = &ajustada

	artefato, err := r.Renderizar(s)
	if err != nil {
		t.Fatalf("Renderizar: %v", err)
	}
	texto := string(artefato)
	for _, trecho := range []string{
		"Contrato nº 12",
		"cliente@example.com",
		"Duração prevista: 30 dias",
		"Duração ajustada: 36 dias",
		"Atraso previsto: 4 dias",
	} {
		if !strings.Contains(texto, trecho) {
			t.Fatalf("artefato não contém %q:\n%s", trecho, texto)
		}
	}
}

func TestGerarEPublicar(t *testing.T) {
	armazem := armazenamento.NewMemoria()
	p := documento.NewPipeline(documento.NewRenderizadorTexto(), armazem)
	ctx := context.Background()

	cid, artefato, err := p.GerarEPublicar(ctx, snapshotExemplo())
	if err != nil {
		t.Fatalf("GerarEPublicar: %v", err)
	}
	guardado, err := armazem.Buscar(ctx, cid)
	if err != nil {
		t.Fatalf("artefato publicado não recuperável: %v", err)
	}
	if !bytes.Equal(guardado, artefato) {
		t.Fatalf("bytes no armazém diferem do artefato devolvido")
	}
}

func TestPublicarAssinado(t *testing.T) {
	armazem := armazenamento.NewMemoria()
	p := documento.NewPipeline(documento.NewRenderizadorTexto(), armazem)
	ctx := context.Background()

	cid, original, err := p.GerarEPublicar(ctx, snapshotExemplo())
	if err != nil {
		t.Fatalf("GerarEPublicar: %v", err)
	}

	bloco := documento.BlocoAssinatura{
		Email:  "cliente@example.com",
		Metodo: contrato.MetodoClickOnly,
		Quando: time.Date(2026, 9, 2, 15, 0, 0, 0, time.UTC),
		Prova:  "consentimento-clique",
	}
	cidAssinado, err := p.PublicarAssinado(ctx, 12, original, bloco)
	if err != nil {
		t.Fatalf("PublicarAssinado: %v", err)
	}
	if cidAssinado == cid {
		t.Fatalf("artefato assinado deve ter CID próprio")
	}

	assinado, err := armazem.Buscar(ctx, cidAssinado)
	if err != nil {
		t.Fatalf("Buscar assinado: %v", err)
	}
	texto := string(assinado)
	if !strings.HasPrefix(texto, string(original)) {
		t.Fatalf("artefato assinado deve preservar o original como prefixo")
	}
	if !strings.Contains(texto, "---- ASSINATURA ----") || !strings.Contains(texto, "consentimento-clique") {
		t.Fatalf("bloco de assinatura ausente:\n%s", texto)
	}
}
