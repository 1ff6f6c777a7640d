package armazenamento_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/tintaforte/api-contratos/internal/armazenamento"
	"github.com/tintaforte/api-contratos/internal/erros"
)

func TestCIDDeterministico(t *testing.T) {
	a := armazenamento.CID([]byte("contrato de pintura"))
	b := armazenamento.CID([]byte("contrato de pintura"))
	if a != b {
		t.Fatalf("mesmo conteúdo produziu CIDs diferentes: %s vs %s", a, b)
	}
	if c := armazenamento.CID([]byte("outro conteúdo")); c == a {
		t.Fatalf("conteúdos diferentes colidiram no CID %s", c)
	}
}

func TestMemoriaPublicarIdempotente(t *testing.T) {
	m := armazenamento.NewMemoria()
	ctx := context.Background()

	cid1, err := m.Publicar(ctx, []byte("artefato"), "contrato_1.pdf")
	if err != nil {
		t.Fatalf("Publicar: %v", err)
	}
	cid2, err := m.Publicar(ctx, []byte("artefato"), "contrato_1.pdf")
	if err != nil {
		t.Fatalf("republicar: %v", err)
	}
	if cid1 != cid2 {
		t.Fatalf("republicação mudou o CID: %s vs %s", cid1, cid2)
	}

	conteudo, err := m.Buscar(ctx, cid1)
	if err != nil {
		t.Fatalf("Buscar: %v", err)
	}
	if !bytes.Equal(conteudo, []byte("artefato")) {
		t.Fatalf("conteúdo devolvido difere do publicado")
	}

	ok, err := m.Existe(ctx, cid1)
	if err != nil || !ok {
		t.Fatalf("Existe(%s) = %v, %v", cid1, ok, err)
	}
}

func TestMemoriaBuscarInexistente(t *testing.T) {
	m := armazenamento.NewMemoria()
	if _, err := m.Buscar(context.Background(), "sha256-inexistente"); !erros.EhTipo(err, erros.TipoNaoEncontrado) {
		t.Fatalf("esperava não encontrado, veio %v", err)
	}
	if ok, _ := m.Existe(context.Background(), "sha256-inexistente"); ok {
		t.Fatalf("Existe devolveu true para CID inexistente")
	}
}
