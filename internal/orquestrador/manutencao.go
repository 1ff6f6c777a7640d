package orquestrador

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/tintaforte/api-contratos/internal/clima"
	"github.com/tintaforte/api-contratos/internal/contrato"
)

// Ações possíveis de um item do job diário ou da varredura de reconciliação.
const (
	AcaoAjustado   = "ajustado"
	AcaoNotificado = "notificado"
	AcaoSemAcao    = "sem_acao"
	AcaoConcluido  = "concluido"
	AcaoRegistrado = "registrado"
	AcaoAtestado   = "atestado"
	AcaoErro       = "erro"
)

// ItemReavaliacao é o desfecho da reavaliação de um contrato em andamento.
type ItemReavaliacao struct {
	ContratoID    uint
	Titulo        string
	DiasRestantes int
	AtrasoDias    int
	NovaDuracao   int
	Acao          string
	Detalhe       string
}

// ReavaliarEmAndamento percorre os contratos assinados cuja janela ainda não
// terminou, busca a previsão dos dias restantes e aplica a decisão do motor:
// a heurística de chuva ajusta e audita; o caminho de ML apenas notifica.
// Falha em um contrato não interrompe os demais.
func (s *Servico) ReavaliarEmAndamento(ctx context.Context) ([]ItemReavaliacao, error) {
	contratos, err := s.Contratos.ListarAssinadosEmAndamento(s.DB)
	if err != nil {
		return nil, err
	}

	hoje := s.Agora().Truncate(24 * time.Hour)
	itens := make([]ItemReavaliacao, 0, len(contratos))
	for i := range contratos {
		itens = append(itens, s.reavaliar(ctx, &contratos[i], hoje))
	}
	return itens, nil
}

func (s *Servico) reavaliar(ctx context.Context, c *contrato.Contrato, hoje time.Time) ItemReavaliacao {
	item := ItemReavaliacao{ContratoID: c.ID, Titulo: c.Titulo}

	fim := c.DataInicioPrevista.AddDate(0, 0, c.DuracaoVigente())
	restantes := int(fim.Sub(hoje).Hours() / 24)
	if restantes <= 0 {
		item.Acao = AcaoConcluido
		return item
	}
	item.DiasRestantes = restantes

	inicioJanela := hoje
	if c.DataInicioPrevista.After(hoje) {
		inicioJanela = c.DataInicioPrevista
	}

	var dias []clima.DiaPrevisao
	prev, err := s.Clima.Prever(ctx, c.Local, inicioJanela, restantes)
	if err != nil {
		slog.Warn("previsão indisponível na reavaliação, seguindo para o fallback",
			"contrato", c.ID, "err", err)
	} else {
		dias = prev.Dias
	}

	decisao := s.Motor.AvaliarEmExecucao(ctx, dias, c.Local, restantes)
	item.AtrasoDias = decisao.AtrasoDias

	switch {
	case decisao.Automatica:
		novaDuracao := c.DuracaoVigente() + decisao.AtrasoDias
		item.NovaDuracao = novaDuracao
		err := s.Transacao(func(tx *gorm.DB) error {
			atual, err := s.Contratos.BuscarPorCIDInicialParaAtualizar(tx, c.CIDInicial)
			if err != nil {
				return err
			}
			var previsaoID *uint
			if p, err := s.Previsoes.BuscarPorContrato(tx, atual.ID); err == nil {
				p.DiasPrevisao = dias
				p.ProbChuva = decisao.ProbChuva
				p.AtrasoPrevistoDias = decisao.AtrasoDias
				if err := s.Previsoes.Atualizar(tx, p); err != nil {
					return err
				}
				previsaoID = &p.ID
			}
			aj, err := atual.AjustarDuracao(novaDuracao, decisao.Motivo, previsaoID)
			if err != nil {
				return err
			}
			if err := s.Contratos.CriarAjuste(tx, aj); err != nil {
				return err
			}
			return s.Contratos.Atualizar(tx, atual)
		})
		if err != nil {
			item.Acao = AcaoErro
			item.Detalhe = err.Error()
			return item
		}
		item.Acao = AcaoAjustado
		item.Detalhe = decisao.Motivo

	case decisao.Notificar:
		if err := s.Notificar.NotificarAtraso(ctx, c, decisao.AtrasoDias, decisao.Motivo); err != nil {
			item.Acao = AcaoErro
			item.Detalhe = fmt.Sprintf("notificação falhou: %v", err)
			return item
		}
		item.Acao = AcaoNotificado
		item.Detalhe = decisao.Motivo

	default:
		item.Acao = AcaoSemAcao
		item.Detalhe = decisao.Motivo
	}
	return item
}

// ItemReconciliacao é o desfecho da varredura para um contrato sem atestação.
type ItemReconciliacao struct {
	ContratoID uint
	CIDInicial string
	TxHash     string
	Acao       string
	Detalhe    string
}

// Reconciliar varre os contratos cuja referência de transação está nula e
// reaplica as escritas de ledger que faltaram: registra quando o ledger não
// conhece o contrato e atesta a assinatura quando o banco a tem e o ledger
// não. Cada contrato é tratado sob trava de linha; falhas individuais são
// reportadas e não interrompem a varredura.
func (s *Servico) Reconciliar(ctx context.Context) ([]ItemReconciliacao, error) {
	pendentes, err := s.Contratos.ListarSemLedgerTx(s.DB)
	if err != nil {
		return nil, err
	}

	itens := make([]ItemReconciliacao, 0, len(pendentes))
	for i := range pendentes {
		itens = append(itens, s.reconciliar(ctx, &pendentes[i]))
	}
	return itens, nil
}

func (s *Servico) reconciliar(ctx context.Context, c *contrato.Contrato) ItemReconciliacao {
	item := ItemReconciliacao{ContratoID: c.ID, CIDInicial: c.CIDInicial}

	err := s.Transacao(func(tx *gorm.DB) error {
		atual, err := s.Contratos.BuscarPorCIDInicialParaAtualizar(tx, c.CIDInicial)
		if err != nil {
			return err
		}
		if atual.LedgerTx != nil {
			item.Acao = AcaoSemAcao
			item.Detalhe = "atestação já reaplicada"
			return nil
		}

		det, err := s.Ledger.DetalhesContrato(ctx, atual.ID)
		registrado := err == nil && det.CID != ""
		if !registrado {
			txHash, err := s.Ledger.RegistrarContrato(ctx, atual.ID, atual.CIDInicial,
				atual.ContratanteEmail, atual.PrestadorEmail)
			if err != nil {
				return err
			}
			item.TxHash = txHash
			item.Acao = AcaoRegistrado
			atual.LedgerTx = &txHash
		}

		if atual.Status == contrato.StatusAssinado && atual.CIDAssinado != nil {
			if _, err := s.Ledger.DetalhesAssinatura(ctx, atual.ID); err != nil {
				txHash, err := s.Ledger.AssinarContrato(ctx, atual.ID, atual.CIDInicial,
					*atual.CIDAssinado, string(atual.MetadadosAssinatura))
				if err != nil {
					return err
				}
				item.TxHash = txHash
				item.Acao = AcaoAtestado
				atual.LedgerTx = &txHash
			}
		}

		if item.Acao == "" {
			item.Acao = AcaoSemAcao
			item.Detalhe = "ledger já consistente, apenas referência atualizada"
			if item.TxHash == "" && registrado {
				// Sem hash original para recuperar; marca com o CID atestado
				// para tirar o contrato da fila da varredura.
				ref := "reconciliado:" + det.CID
				atual.LedgerTx = &ref
			}
		}
		return s.Contratos.Atualizar(tx, atual)
	})
	if err != nil {
		item.Acao = AcaoErro
		item.Detalhe = err.Error()
	}
	return item
}
