package orquestrador

import (
	"context"
	"log/slog"
	"time"

	"github.com/tintaforte/api-contratos/internal/clima"
	"github.com/tintaforte/api-contratos/internal/contrato"
	"github.com/tintaforte/api-contratos/internal/erros"
	"github.com/tintaforte/api-contratos/internal/ledger"
	"github.com/tintaforte/api-contratos/internal/previsao"
)

// SituacaoLedger é a visão atestada do contrato, quando o ledger respondeu.
type SituacaoLedger struct {
	Disponivel bool                       `json:"disponivel"`
	Detalhes   *ledger.Detalhes           `json:"detalhes,omitempty"`
	Assinatura *ledger.DetalhesAssinatura `json:"assinatura,omitempty"`
	Eventos    []ledger.Evento            `json:"eventos,omitempty"`
	// Divergente: o status on-chain não espelha o status do banco. O banco
	// prevalece; a divergência é insumo para a reconciliação.
	Divergente bool `json:"divergente"`
}

// Situacao agrega as três visões do contrato: banco relacional, artefatos
// no armazenamento e atestações no ledger.
type Situacao struct {
	Contrato *contrato.Contrato       `json:"contrato"`
	Previsao *previsao.Previsao       `json:"previsao,omitempty"`
	Ajustes  []contrato.AjusteDuracao `json:"ajustes"`

	ArtefatoDisponivel         bool `json:"artefatoDisponivel"`
	ArtefatoAssinadoDisponivel bool `json:"artefatoAssinadoDisponivel"`

	Ledger SituacaoLedger `json:"ledger"`
}

// Situacao resolve o CID (inicial ou assinado) e monta a visão agregada.
// Indisponibilidade de armazenamento ou de ledger degrada a resposta, nunca
// a transforma em erro: o banco relacional continua sendo a autoridade.
func (s *Servico) Situacao(ctx context.Context, cid string) (*Situacao, error) {
	c, err := s.Contratos.BuscarPorCID(s.DB, cid)
	if err != nil {
		return nil, err
	}

	sit := &Situacao{Contrato: c}

	if p, err := s.Previsoes.BuscarPorContrato(s.DB, c.ID); err == nil {
		sit.Previsao = p
	} else if !erros.EhTipo(err, erros.TipoNaoEncontrado) {
		return nil, err
	}
	if sit.Ajustes, err = s.Contratos.ListarAjustes(s.DB, c.ID); err != nil {
		return nil, err
	}

	if c.CIDInicial != "" {
		if ok, err := s.Armazem.Existe(ctx, c.CIDInicial); err != nil {
			slog.Warn("armazenamento indisponível na consulta", "contrato", c.ID, "err", err)
		} else {
			sit.ArtefatoDisponivel = ok
		}
	}
	if c.CIDAssinado != nil {
		if ok, err := s.Armazem.Existe(ctx, *c.CIDAssinado); err == nil {
			sit.ArtefatoAssinadoDisponivel = ok
		}
	}

	sit.Ledger = s.lerLedger(ctx, c)
	return sit, nil
}

// lerLedger coleta detalhes, assinatura e eventos; qualquer falha de leitura
// degrada para Disponivel=false em vez de propagar.
func (s *Servico) lerLedger(ctx context.Context, c *contrato.Contrato) SituacaoLedger {
	det, err := s.Ledger.DetalhesContrato(ctx, c.ID)
	if err != nil {
		slog.Warn("ledger indisponível na consulta", "contrato", c.ID, "err", err)
		return SituacaoLedger{}
	}

	sl := SituacaoLedger{Disponivel: true, Detalhes: det}
	if det.CID != "" && !det.Status.CorrespondeA(c.Status) {
		slog.Warn("status divergente entre banco e ledger",
			"contrato", c.ID, "banco", c.Status, "ledger", det.Status.String())
		sl.Divergente = true
	}

	if c.Status == contrato.StatusAssinado {
		if ass, err := s.Ledger.DetalhesAssinatura(ctx, c.ID); err == nil {
			sl.Assinatura = ass
		}
	}
	if evs, err := s.Ledger.EventosContrato(ctx, c.ID); err == nil {
		ledger.OrdenarEventos(evs)
		sl.Eventos = evs
	}
	return sl
}

// ResultadoVerificacao compara a cópia assinada com o que o ledger atesta.
type ResultadoVerificacao struct {
	ContratoID uint   `json:"contratoId"`
	Status     string `json:"status"`

	// Integro: o artefato assinado existe e confere com a atestação. Quando
	// o ledger está indisponível, Integro reflete apenas o banco e o
	// armazenamento; LedgerDisponivel distingue os dois casos.
	Integro          bool `json:"integro"`
	LedgerDisponivel bool `json:"ledgerDisponivel"`

	Verificacao *ledger.Verificacao        `json:"verificacao,omitempty"`
	Assinatura  *ledger.DetalhesAssinatura `json:"assinatura,omitempty"`
	Motivo      string                     `json:"motivo,omitempty"`
}

// Verificar confere a assinatura de um contrato a partir de qualquer um dos
// seus CIDs. Um contrato assinado no banco nunca é rebaixado a não assinado
// por indisponibilidade do ledger.
func (s *Servico) Verificar(ctx context.Context, cid string) (*ResultadoVerificacao, error) {
	c, err := s.Contratos.BuscarPorCID(s.DB, cid)
	if err != nil {
		return nil, err
	}

	r := &ResultadoVerificacao{ContratoID: c.ID, Status: c.Status}
	if c.Status != contrato.StatusAssinado || c.CIDAssinado == nil {
		r.Motivo = "contrato não está assinado"
		return r, nil
	}

	if ok, err := s.Armazem.Existe(ctx, *c.CIDAssinado); err != nil {
		return nil, erros.Armazenamento("não foi possível conferir o artefato assinado", err)
	} else if !ok {
		r.Motivo = "artefato assinado ausente do armazenamento"
		return r, nil
	}

	ver, err := s.Ledger.VerificarContrato(ctx, c.ID, c.CIDInicial)
	if err != nil {
		slog.Warn("ledger indisponível na verificação", "contrato", c.ID, "err", err)
		r.Integro = true
		r.Motivo = "atestação indisponível; verificação limitada ao banco e ao armazenamento"
		return r, nil
	}
	r.LedgerDisponivel = true
	r.Verificacao = ver

	ass, err := s.Ledger.DetalhesAssinatura(ctx, c.ID)
	if err != nil {
		r.Integro = true
		r.Motivo = "atestação de assinatura indisponível"
		return r, nil
	}
	r.Assinatura = ass

	if ass.CIDAssinado != *c.CIDAssinado {
		r.Motivo = "CID assinado não confere com a atestação"
		return r, nil
	}
	r.Integro = true
	return r, nil
}

// EstimativaCustos reúne o custo previsto das escritas pendentes.
type EstimativaCustos struct {
	Registro   *ledger.EstimativaGas `json:"registro,omitempty"`
	Assinatura *ledger.EstimativaGas `json:"assinatura,omitempty"`
}

// EstimarCustos estima o gás das atestações aplicáveis ao estado atual do
// contrato. Diferente das leituras de consulta, falha de ledger aqui é erro:
// a estimativa é o próprio serviço pedido.
func (s *Servico) EstimarCustos(ctx context.Context, cid string) (*EstimativaCustos, error) {
	c, err := s.Contratos.BuscarPorCID(s.DB, cid)
	if err != nil {
		return nil, err
	}

	est := &EstimativaCustos{}
	if c.LedgerTx == nil && c.CIDInicial != "" {
		if est.Registro, err = s.Ledger.EstimarRegistro(ctx, c.ID, c.CIDInicial); err != nil {
			return nil, err
		}
	}
	if c.Status != contrato.StatusAssinado && c.Status != contrato.StatusCancelado {
		if est.Assinatura, err = s.Ledger.EstimarAssinatura(ctx, c.ID, c.CIDInicial); err != nil {
			return nil, err
		}
	}
	return est, nil
}

// PrevisaoJanela é a avaliação avulsa de uma janela de obra, sem contrato.
type PrevisaoJanela struct {
	Dias               []clima.DiaPrevisao `json:"dias,omitempty"`
	AtrasoDias         int                 `json:"atrasoDias"`
	DuracaoRecomendada int                 `json:"duracaoRecomendada"`
	ProbChuva          float64             `json:"probChuva"`
	Motivo             string              `json:"motivo"`
}

// PreverJanela roda previsão e motor para uma janela arbitrária, em modo
// consultivo. Nada é persistido.
func (s *Servico) PreverJanela(ctx context.Context, local contrato.Local, inicio time.Time, duracao int) (*PrevisaoJanela, error) {
	if duracao <= 0 {
		return nil, erros.Validacao("duração precisa ser positiva")
	}

	var dias []clima.DiaPrevisao
	prev, err := s.Clima.Prever(ctx, local, inicio, duracao)
	if err != nil {
		slog.Warn("previsão indisponível na consulta avulsa, seguindo para o fallback", "err", err)
	} else {
		dias = prev.Dias
	}

	decisao := s.Motor.AvaliarEmExecucao(ctx, dias, local, duracao)
	return &PrevisaoJanela{
		Dias:               dias,
		AtrasoDias:         decisao.AtrasoDias,
		DuracaoRecomendada: duracao + decisao.AtrasoDias,
		ProbChuva:          decisao.ProbChuva,
		Motivo:             decisao.Motivo,
	}, nil
}
