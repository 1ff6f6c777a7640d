// Package ledger traduz operações de domínio em transações no registro
// distribuído e lê de volta o estado atestado.
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/tintaforte/api-contratos/internal/contrato"
	"github.com/tintaforte/api-contratos/internal/erros"
)

// Status espelha o enum do contrato on-chain. O status do banco relacional
// deve mapear 1:1 para este enum; divergência é erro de reconciliação.
type Status uint8

const (
	StatusRascunho Status = iota
	StatusAguardandoAssinatura
	StatusAssinado
	StatusCancelado
)

func (s Status) String() string {
	switch s {
	case StatusRascunho:
		return "Draft"
	case StatusAguardandoAssinatura:
		return "PendingSignature"
	case StatusAssinado:
		return "Signed"
	case StatusCancelado:
		return "Cancelled"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// StatusDoRegistro converte o status do banco relacional para o enum.
func StatusDoRegistro(status string) (Status, error) {
	switch status {
	case contrato.StatusRascunho:
		return StatusRascunho, nil
	case contrato.StatusAguardandoAssinatura:
		return StatusAguardandoAssinatura, nil
	case contrato.StatusAssinado:
		return StatusAssinado, nil
	case contrato.StatusCancelado:
		return StatusCancelado, nil
	}
	return 0, fmt.Errorf("status sem espelho no ledger: %q", status)
}

// CorrespondeA informa se o enum on-chain bate com o status do registro.
func (s Status) CorrespondeA(status string) bool {
	espelho, err := StatusDoRegistro(status)
	return err == nil && espelho == s
}

// Detalhes é o estado decodificado do contrato on-chain.
type Detalhes struct {
	ContratoID   uint64
	CID          string
	RegistradoEm time.Time
	Status       Status
}

// DetalhesAssinatura é a atestação de assinatura decodificada.
type DetalhesAssinatura struct {
	CIDOriginal string
	CIDAssinado string
	AssinadoEm  time.Time
	Metadados   string
}

// Verificacao é o resultado de conferir um CID contra o ledger.
type Verificacao struct {
	Registrado   bool
	RegistradoEm time.Time
	Status       Status
}

// Evento é um evento on-chain normalizado de um contrato.
type Evento struct {
	Nome       string
	ContratoID uint64
	CID        string
	Quando     time.Time
	TxHash     string
}

// EstimativaGas detalha o custo previsto de uma operação de escrita.
type EstimativaGas struct {
	Gas           uint64
	PrecoGasWei   *big.Int
	CustoTotalWei *big.Int
}

// Gateway é a capacidade de ledger consumida pelo orquestrador. Escritas
// bloqueiam até a transação ser minerada e devolvem o hash.
type Gateway interface {
	RegistrarContrato(ctx context.Context, id uint, cid, contratante, prestador string) (string, error)
	SolicitarAssinatura(ctx context.Context, id uint) (string, error)
	AssinarContrato(ctx context.Context, id uint, cidOriginal, cidAssinado, metadados string) (string, error)
	CancelarContrato(ctx context.Context, id uint) (string, error)

	DetalhesContrato(ctx context.Context, id uint) (*Detalhes, error)
	VerificarContrato(ctx context.Context, id uint, cid string) (*Verificacao, error)
	DetalhesAssinatura(ctx context.Context, id uint) (*DetalhesAssinatura, error)
	EventosContrato(ctx context.Context, id uint) ([]Evento, error)

	EstimarRegistro(ctx context.Context, id uint, cid string) (*EstimativaGas, error)
	EstimarAssinatura(ctx context.Context, id uint, cid string) (*EstimativaGas, error)
}

// Indisponivel é o gateway usado quando o nó do ledger não pôde ser
// alcançado na partida: toda operação falha com erro de ledger, o que deixa
// escritas para a reconciliação e degrada as leituras.
type Indisponivel struct{}

func (Indisponivel) erro() error { return erros.Ledger("ledger indisponível", nil) }

func (i Indisponivel) RegistrarContrato(context.Context, uint, string, string, string) (string, error) {
	return "", i.erro()
}
func (i Indisponivel) SolicitarAssinatura(context.Context, uint) (string, error) { return "", i.erro() }
func (i Indisponivel) AssinarContrato(context.Context, uint, string, string, string) (string, error) {
	return "", i.erro()
}
func (i Indisponivel) CancelarContrato(context.Context, uint) (string, error) { return "", i.erro() }
func (i Indisponivel) DetalhesContrato(context.Context, uint) (*Detalhes, error) {
	return nil, i.erro()
}
func (i Indisponivel) VerificarContrato(context.Context, uint, string) (*Verificacao, error) {
	return nil, i.erro()
}
func (i Indisponivel) DetalhesAssinatura(context.Context, uint) (*DetalhesAssinatura, error) {
	return nil, i.erro()
}
func (i Indisponivel) EventosContrato(context.Context, uint) ([]Evento, error) {
	return nil, i.erro()
}
func (i Indisponivel) EstimarRegistro(context.Context, uint, string) (*EstimativaGas, error) {
	return nil, i.erro()
}
func (i Indisponivel) EstimarAssinatura(context.Context, uint, string) (*EstimativaGas, error) {
	return nil, i.erro()
}

// OrdenarEventos ordena in-place por instante de emissão, ascendente.
func OrdenarEventos(eventos []Evento) {
	sort.SliceStable(eventos, func(i, j int) bool {
		return eventos[i].Quando.Before(eventos[j].Quando)
	})
}
