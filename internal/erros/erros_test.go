package erros_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/tintaforte/api-contratos/internal/erros"
)

func TestStatusHTTP(t *testing.T) {
	casos := []struct {
		err    error
		status int
	}{
		{erros.Validacao("campo ausente"), http.StatusBadRequest},
		{erros.Conflito("já assinado"), http.StatusConflict},
		{erros.Proibido("não é parte"), http.StatusForbidden},
		{erros.NaoEncontrado("sem contrato"), http.StatusNotFound},
		{erros.Armazenamento("bucket fora", nil), http.StatusBadGateway},
		{erros.Ledger("nó fora", nil), http.StatusBadGateway},
		{errors.New("qualquer coisa"), http.StatusInternalServerError},
	}
	for _, c := range casos {
		if got := erros.StatusHTTP(c.err); got != c.status {
			t.Fatalf("StatusHTTP(%v) = %d, esperava %d", c.err, got, c.status)
		}
	}
}

func TestTipoAtravesDeWrap(t *testing.T) {
	base := erros.Conflito("contrato já está assinado")
	embrulhado := fmt.Errorf("ao assinar: %w", base)

	if !erros.EhTipo(embrulhado, erros.TipoConflito) {
		t.Fatalf("tipo deveria sobreviver ao embrulho")
	}
	tipo, ok := erros.TipoDe(embrulhado)
	if !ok || tipo != erros.TipoConflito {
		t.Fatalf("TipoDe = %v, %v", tipo, ok)
	}
}

func TestUnwrapPreservaCausa(t *testing.T) {
	causa := errors.New("conexão recusada")
	err := erros.Ledger("nó fora do ar", causa)
	if !errors.Is(err, causa) {
		t.Fatalf("causa deveria ser alcançável por errors.Is")
	}
}
