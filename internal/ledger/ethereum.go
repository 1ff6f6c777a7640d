package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/tintaforte/api-contratos/internal/config"
	"github.com/tintaforte/api-contratos/internal/erros"
)

// ABI do ContratoRegistry publicado na rede (ver deploy em infra).
const abiRegistry = `[
  {"type":"function","name":"storeContract","stateMutability":"nonpayable","inputs":[{"name":"contractId","type":"uint256"},{"name":"cid","type":"string"},{"name":"contractorEmail","type":"string"},{"name":"providerEmail","type":"string"}],"outputs":[]},
  {"type":"function","name":"requestSignature","stateMutability":"nonpayable","inputs":[{"name":"contractId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"signContract","stateMutability":"nonpayable","inputs":[{"name":"contractId","type":"uint256"},{"name":"originalCid","type":"string"},{"name":"signedCid","type":"string"},{"name":"metadata","type":"string"}],"outputs":[]},
  {"type":"function","name":"cancelContract","stateMutability":"nonpayable","inputs":[{"name":"contractId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"getContract","stateMutability":"view","inputs":[{"name":"contractId","type":"uint256"}],"outputs":[{"name":"id","type":"uint256"},{"name":"cid","type":"string"},{"name":"registeredAt","type":"uint256"},{"name":"status","type":"uint8"}]},
  {"type":"function","name":"getSignature","stateMutability":"view","inputs":[{"name":"contractId","type":"uint256"}],"outputs":[{"name":"originalCid","type":"string"},{"name":"signedCid","type":"string"},{"name":"signedAt","type":"uint256"},{"name":"metadata","type":"string"}]},
  {"type":"event","name":"ContractRegistered","inputs":[{"name":"contractId","type":"uint256","indexed":true},{"name":"cid","type":"string","indexed":false},{"name":"timestamp","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"SignatureRequested","inputs":[{"name":"contractId","type":"uint256","indexed":true},{"name":"timestamp","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"ContractSigned","inputs":[{"name":"contractId","type":"uint256","indexed":true},{"name":"signedCid","type":"string","indexed":false},{"name":"timestamp","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"ContractCancelled","inputs":[{"name":"contractId","type":"uint256","indexed":true},{"name":"timestamp","type":"uint256","indexed":false}],"anonymous":false}
]`

// GatewayEVM implementa o gateway sobre um nó EVM via JSON-RPC.
type GatewayEVM struct {
	client   *ethclient.Client
	abi      abi.ABI
	endereco common.Address
	chave    *ecdsa.PrivateKey
	de       common.Address
	chainID  *big.Int

	timeoutChamada   time.Duration
	timeoutMineracao time.Duration

	// Serializa o uso do nonce da conta entre transações concorrentes.
	mu sync.Mutex
}

func NewGatewayEVM(ctx context.Context, cfg config.LedgerConfig) (*GatewayEVM, error) {
	client, err := ethclient.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no nó do ledger: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(abiRegistry))
	if err != nil {
		return nil, fmt.Errorf("ABI inválida: %w", err)
	}
	chave, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.ChavePrivada, "0x"))
	if err != nil {
		return nil, fmt.Errorf("chave privada inválida: %w", err)
	}
	return &GatewayEVM{
		client:           client,
		abi:              parsed,
		endereco:         common.HexToAddress(cfg.EnderecoContrato),
		chave:            chave,
		de:               crypto.PubkeyToAddress(chave.PublicKey),
		chainID:          big.NewInt(cfg.ChainID),
		timeoutChamada:   cfg.TimeoutChamada,
		timeoutMineracao: cfg.TimeoutMineracao,
	}, nil
}

func (g *GatewayEVM) RegistrarContrato(ctx context.Context, id uint, cid, contratante, prestador string) (string, error) {
	return g.transacionar(ctx, "storeContract", big.NewInt(int64(id)), cid, contratante, prestador)
}

func (g *GatewayEVM) SolicitarAssinatura(ctx context.Context, id uint) (string, error) {
	return g.transacionar(ctx, "requestSignature", big.NewInt(int64(id)))
}

func (g *GatewayEVM) AssinarContrato(ctx context.Context, id uint, cidOriginal, cidAssinado, metadados string) (string, error) {
	return g.transacionar(ctx, "signContract", big.NewInt(int64(id)), cidOriginal, cidAssinado, metadados)
}

func (g *GatewayEVM) CancelarContrato(ctx context.Context, id uint) (string, error) {
	return g.transacionar(ctx, "cancelContract", big.NewInt(int64(id)))
}

func (g *GatewayEVM) DetalhesContrato(ctx context.Context, id uint) (*Detalhes, error) {
	saida, err := g.chamar(ctx, "getContract", big.NewInt(int64(id)))
	if err != nil {
		return nil, err
	}
	if len(saida) != 4 {
		return nil, erros.Ledger("resposta inesperada de getContract", nil)
	}
	idChain, _ := saida[0].(*big.Int)
	cid, _ := saida[1].(string)
	registradoEm, _ := saida[2].(*big.Int)
	status, _ := saida[3].(uint8)
	if idChain == nil || registradoEm == nil {
		return nil, erros.Ledger("decodificação de getContract falhou", nil)
	}
	return &Detalhes{
		ContratoID:   idChain.Uint64(),
		CID:          cid,
		RegistradoEm: time.Unix(registradoEm.Int64(), 0).UTC(),
		Status:       Status(status),
	}, nil
}

func (g *GatewayEVM) VerificarContrato(ctx context.Context, id uint, cid string) (*Verificacao, error) {
	det, err := g.DetalhesContrato(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Verificacao{
		Registrado:   det.CID == cid,
		RegistradoEm: det.RegistradoEm,
		Status:       det.Status,
	}, nil
}

func (g *GatewayEVM) DetalhesAssinatura(ctx context.Context, id uint) (*DetalhesAssinatura, error) {
	saida, err := g.chamar(ctx, "getSignature", big.NewInt(int64(id)))
	if err != nil {
		return nil, err
	}
	if len(saida) != 4 {
		return nil, erros.Ledger("resposta inesperada de getSignature", nil)
	}
	original, _ := saida[0].(string)
	assinado, _ := saida[1].(string)
	assinadoEm, _ := saida[2].(*big.Int)
	metadados, _ := saida[3].(string)
	if assinadoEm == nil {
		return nil, erros.Ledger("decodificação de getSignature falhou", nil)
	}
	return &DetalhesAssinatura{
		CIDOriginal: original,
		CIDAssinado: assinado,
		AssinadoEm:  time.Unix(assinadoEm.Int64(), 0).UTC(),
		Metadados:   metadados,
	}, nil
}

// EventosContrato varre os logs do registro filtrando pelo id indexado e
// devolve os eventos normalizados em ordem ascendente de emissão.
func (g *GatewayEVM) EventosContrato(ctx context.Context, id uint) ([]Evento, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeoutChamada)
	defer cancel()

	consulta := ethereum.FilterQuery{
		FromBlock: big.NewInt(0),
		Addresses: []common.Address{g.endereco},
		Topics: [][]common.Hash{
			nil,
			{common.BigToHash(big.NewInt(int64(id)))},
		},
	}
	logs, err := g.client.FilterLogs(ctx, consulta)
	if err != nil {
		return nil, erros.Ledger("falha ao ler eventos do ledger", err)
	}

	eventos := make([]Evento, 0, len(logs))
	for _, l := range logs {
		if len(l.Topics) < 2 {
			continue
		}
		ev, err := g.abi.EventByID(l.Topics[0])
		if err != nil {
			continue
		}
		valores, err := g.abi.Unpack(ev.Name, l.Data)
		if err != nil {
			continue
		}
		e := Evento{
			Nome:       ev.Name,
			ContratoID: l.Topics[1].Big().Uint64(),
			TxHash:     l.TxHash.Hex(),
		}
		for _, v := range valores {
			switch valor := v.(type) {
			case string:
				e.CID = valor
			case *big.Int:
				e.Quando = time.Unix(valor.Int64(), 0).UTC()
			}
		}
		eventos = append(eventos, e)
	}
	OrdenarEventos(eventos)
	return eventos, nil
}

func (g *GatewayEVM) EstimarRegistro(ctx context.Context, id uint, cid string) (*EstimativaGas, error) {
	return g.estimar(ctx, "storeContract", big.NewInt(int64(id)), cid, "", "")
}

func (g *GatewayEVM) EstimarAssinatura(ctx context.Context, id uint, cid string) (*EstimativaGas, error) {
	return g.estimar(ctx, "signContract", big.NewInt(int64(id)), "", cid, "{}")
}

// transacionar monta, assina, envia e espera minerar uma transação.
func (g *GatewayEVM) transacionar(ctx context.Context, metodo string, args ...any) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	dados, err := g.abi.Pack(metodo, args...)
	if err != nil {
		return "", erros.Ledger("falha ao codificar "+metodo, err)
	}

	ctxChamada, cancel := context.WithTimeout(ctx, g.timeoutChamada)
	defer cancel()

	nonce, err := g.client.PendingNonceAt(ctxChamada, g.de)
	if err != nil {
		return "", erros.Ledger("falha ao obter nonce", err)
	}
	precoGas, err := g.client.SuggestGasPrice(ctxChamada)
	if err != nil {
		return "", erros.Ledger("falha ao obter preço de gás", err)
	}
	gas, err := g.client.EstimateGas(ctxChamada, ethereum.CallMsg{
		From: g.de,
		To:   &g.endereco,
		Data: dados,
	})
	if err != nil {
		return "", erros.Ledger("falha ao estimar gás de "+metodo, err)
	}

	tx := types.NewTransaction(nonce, g.endereco, big.NewInt(0), gas+gas/5, precoGas, dados)
	assinada, err := types.SignTx(tx, types.LatestSignerForChainID(g.chainID), g.chave)
	if err != nil {
		return "", erros.Ledger("falha ao assinar transação", err)
	}
	if err := g.client.SendTransaction(ctxChamada, assinada); err != nil {
		return "", erros.Ledger("falha ao enviar transação de "+metodo, err)
	}

	ctxMineracao, cancelMineracao := context.WithTimeout(ctx, g.timeoutMineracao)
	defer cancelMineracao()

	recibo, err := bind.WaitMined(ctxMineracao, g.client, assinada)
	if err != nil {
		return "", erros.Ledger("transação de "+metodo+" não confirmada", err)
	}
	if recibo.Status != types.ReceiptStatusSuccessful {
		return "", erros.Ledger("transação de "+metodo+" revertida", nil)
	}
	return assinada.Hash().Hex(), nil
}

func (g *GatewayEVM) chamar(ctx context.Context, metodo string, args ...any) ([]any, error) {
	dados, err := g.abi.Pack(metodo, args...)
	if err != nil {
		return nil, erros.Ledger("falha ao codificar "+metodo, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeoutChamada)
	defer cancel()

	saida, err := g.client.CallContract(ctx, ethereum.CallMsg{To: &g.endereco, Data: dados}, nil)
	if err != nil {
		return nil, erros.Ledger("falha ao consultar "+metodo, err)
	}
	valores, err := g.abi.Unpack(metodo, saida)
	if err != nil {
		return nil, erros.Ledger("falha ao decodificar "+metodo, err)
	}
	return valores, nil
}

func (g *GatewayEVM) estimar(ctx context.Context, metodo string, args ...any) (*EstimativaGas, error) {
	dados, err := g.abi.Pack(metodo, args...)
	if err != nil {
		return nil, erros.Ledger("falha ao codificar "+metodo, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeoutChamada)
	defer cancel()

	gas, err := g.client.EstimateGas(ctx, ethereum.CallMsg{From: g.de, To: &g.endereco, Data: dados})
	if err != nil {
		return nil, erros.Ledger("falha ao estimar gás", err)
	}
	precoGas, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, erros.Ledger("falha ao obter preço de gás", err)
	}
	return &EstimativaGas{
		Gas:           gas,
		PrecoGasWei:   precoGas,
		CustoTotalWei: new(big.Int).Mul(precoGas, new(big.Int).SetUint64(gas)),
	}, nil
}
