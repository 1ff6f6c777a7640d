// Package orquestrador dirige a máquina de estados do contrato e sequencia
// previsão, documento, ledger e banco relacional. O commit no banco é a
// fonte única de verdade sobre a existência do contrato; a publicação do
// artefato vem antes dele e a atestação no ledger pode vir depois.
package orquestrador

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tintaforte/api-contratos/internal/ajuste"
	"github.com/tintaforte/api-contratos/internal/armazenamento"
	"github.com/tintaforte/api-contratos/internal/assinatura"
	"github.com/tintaforte/api-contratos/internal/clima"
	"github.com/tintaforte/api-contratos/internal/configuracao"
	"github.com/tintaforte/api-contratos/internal/contrato"
	"github.com/tintaforte/api-contratos/internal/documento"
	"github.com/tintaforte/api-contratos/internal/erros"
	"github.com/tintaforte/api-contratos/internal/ledger"
	"github.com/tintaforte/api-contratos/internal/notificacao"
	"github.com/tintaforte/api-contratos/internal/previsao"
)

// Servico é o orquestrador do ciclo de vida. Operações sobre o mesmo
// contrato são serializadas por trava de linha; contratos diferentes podem
// andar em paralelo.
type Servico struct {
	DB *gorm.DB

	Contratos  contrato.Repository
	Previsoes  previsao.Repository
	Configuracoes configuracao.Repository
	Clima      clima.Provedor
	Motor      *ajuste.Motor
	Pipeline   *documento.Pipeline
	Armazem    armazenamento.Armazem
	Ledger     ledger.Gateway
	Notificar  notificacao.Notificador
	Dispatcher *assinatura.Dispatcher
	Tokens     *assinatura.ServicoToken

	// Agora e Transacao são substituíveis em teste.
	Agora     func() time.Time
	Transacao func(fn func(tx *gorm.DB) error) error
}

func NewServico(db *gorm.DB, prov clima.Provedor, motor *ajuste.Motor, pipeline *documento.Pipeline,
	armazem armazenamento.Armazem, gw ledger.Gateway, notif notificacao.Notificador,
	tokens *assinatura.ServicoToken) *Servico {
	s := &Servico{
		DB:         db,
		Contratos:  contrato.NewRepository(),
		Previsoes:  previsao.NewRepository(),
		Configuracoes: configuracao.NewRepository(),
		Clima:      prov,
		Motor:      motor,
		Pipeline:   pipeline,
		Armazem:    armazem,
		Ledger:     gw,
		Notificar:  notif,
		Dispatcher: assinatura.NewDispatcher(tokens),
		Tokens:     tokens,
		Agora:      func() time.Time { return time.Now().UTC() },
	}
	s.Transacao = func(fn func(tx *gorm.DB) error) error {
		return db.Transaction(fn)
	}
	return s
}

// Gerar valida o pedido, decide a duração, publica o artefato, tenta a
// atestação e então consolida tudo num único commit.
func (s *Servico) Gerar(ctx context.Context, req *contrato.GerarRequest) (*contrato.Contrato, *previsao.Previsao, error) {
	inicio, err := req.Validar()
	if err != nil {
		return nil, nil, err
	}

	c := contrato.DoRequest(req, inicio)

	// Previsão e predição antes do commit; falha de clima cai no fallback
	// de ML dentro do motor, nunca aborta a geração.
	var dias []clima.DiaPrevisao
	var brutoJSON datatypes.JSON
	prev, errClima := s.Clima.Prever(ctx, c.Local, inicio, c.DuracaoPrevistaDias)
	if errClima != nil {
		slog.Warn("previsão indisponível na geração, seguindo para o fallback", "err", errClima)
	} else {
		dias = prev.Dias
		if b, err := json.Marshal(prev); err == nil {
			brutoJSON = b
		}
	}

	decisao := s.Motor.Avaliar(ctx, dias, c.Local, c.DuracaoPrevistaDias, false)

	p := &previsao.Previsao{
		Local:           c.Local,
		DataInicio:      inicio,
		DataFim:         inicio.AddDate(0, 0, c.DuracaoPrevistaDias),
		DadosBrutos:     brutoJSON,
		DiasPrevisao:    dias,
		DuracaoOriginal: c.DuracaoPrevistaDias,
		ProbChuva:       decisao.ProbChuva,
	}
	if decisao.Inferencia != nil {
		var md datatypes.JSON
		if b, err := json.Marshal(decisao.Inferencia.Metadados); err == nil {
			md = b
		}
		p.AtualizarPredicao(decisao.Inferencia.ProbChuva, decisao.Inferencia.AtrasoDias,
			decisao.Inferencia.DuracaoRecomendada, decisao.Inferencia.Confianca,
			decisao.Inferencia.VersaoModelo, md)
	} else {
		p.AtrasoPrevistoDias = decisao.AtrasoDias
	}

	err = s.Transacao(func(tx *gorm.DB) error {
		if err := s.Contratos.Criar(tx, c); err != nil {
			return err
		}
		p.ContratoID = c.ID
		if err := s.Previsoes.Criar(tx, p); err != nil {
			return err
		}

		if decisao.Automatica {
			aj, err := c.AjustarDuracao(decisao.NovaDuracao, decisao.Motivo, &p.ID)
			if err != nil {
				return err
			}
			if err := s.Contratos.CriarAjuste(tx, aj); err != nil {
				return err
			}
		}

		// Publicação antes do commit: nunca gravar um CID que não foi
		// de fato armazenado.
		cid, _, err := s.Pipeline.GerarEPublicar(ctx, documento.Snapshot{Contrato: c, Previsao: p})
		if err != nil {
			return err
		}
		c.CIDInicial = cid

		// Atestação best-effort: a falha fica registrada (LedgerTx nulo)
		// para a varredura de reconciliação.
		tx2, errLedger := s.Ledger.RegistrarContrato(ctx, c.ID, cid, c.ContratanteEmail, c.PrestadorEmail)
		if errLedger != nil {
			slog.Warn("registro no ledger falhou, contrato segue sem atestação",
				"contrato", c.ID, "err", errLedger)
		} else {
			c.LedgerTx = &tx2
		}

		return s.Contratos.Atualizar(tx, c)
	})
	if err != nil {
		return nil, nil, err
	}

	go func() {
		if err := s.Notificar.EnviarContratoParaRevisao(context.Background(), c.PrestadorEmail, c, c.CIDInicial); err != nil {
			slog.Error("falha ao notificar prestador", "contrato", c.ID, "err", err)
		}
	}()

	return c, p, nil
}

// SolicitarAssinatura move o contrato para pending_signature e pede a
// atestação correspondente.
func (s *Servico) SolicitarAssinatura(ctx context.Context, cid string) (*contrato.Contrato, error) {
	var c *contrato.Contrato
	err := s.Transacao(func(tx *gorm.DB) error {
		var err error
		c, err = s.Contratos.BuscarPorCIDInicialParaAtualizar(tx, cid)
		if err != nil {
			return err
		}
		if err := c.SolicitarAssinatura(); err != nil {
			return err
		}
		if txHash, err := s.Ledger.SolicitarAssinatura(ctx, c.ID); err != nil {
			slog.Warn("solicitação de assinatura não atestada no ledger", "contrato", c.ID, "err", err)
		} else {
			c.LedgerTx = &txHash
		}
		return s.Contratos.Atualizar(tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SolicitarToken emite o token de verificação, persiste no contrato e
// despacha por email fora de banda.
func (s *Servico) SolicitarToken(ctx context.Context, cid, email, cpf string) (time.Time, error) {
	var expira time.Time
	err := s.Transacao(func(tx *gorm.DB) error {
		c, err := s.Contratos.BuscarPorCIDInicialParaAtualizar(tx, cid)
		if err != nil {
			return err
		}
		if !c.EhParte(email) {
			return erros.Proibido("email não pertence às partes do contrato")
		}
		token, exp, err := s.Tokens.Gerar(email, cpf)
		if err != nil {
			return err
		}
		expira = exp
		c.DefinirToken(token, exp)
		if err := s.Contratos.Atualizar(tx, c); err != nil {
			return err
		}
		go func(titulo string) {
			if err := s.Notificar.EnviarToken(context.Background(), email, token, titulo); err != nil {
				slog.Error("falha ao enviar token", "contrato", c.ID, "err", err)
			}
		}(c.Titulo)
		return nil
	})
	return expira, err
}

// ValidarToken confere um token emitido e devolve o contrato dono dele.
func (s *Servico) ValidarToken(_ context.Context, token string) (*contrato.Contrato, *assinatura.ClaimsToken, error) {
	c, err := s.Contratos.BuscarPorToken(s.DB, token)
	if err != nil {
		return nil, nil, err
	}
	claims, err := s.Tokens.Validar(token)
	if err != nil {
		return nil, nil, err
	}
	return c, claims, nil
}

// Assinar executa a estratégia do método, produz e publica o artefato
// assinado e consolida a transição para signed. A atestação no ledger é
// best-effort; a ausência dela deixa o contrato marcado para reconciliação.
func (s *Servico) Assinar(ctx context.Context, cid string, metodoNome string, entrada assinatura.Entrada) (*contrato.Contrato, error) {
	var c *contrato.Contrato
	err := s.Transacao(func(tx *gorm.DB) error {
		var err error
		c, err = s.Contratos.BuscarPorCIDInicialParaAtualizar(tx, cid)
		if err != nil {
			return err
		}
		if c.Status == contrato.StatusAssinado {
			return erros.Conflito("contrato já está assinado")
		}

		if metodoNome == "" {
			metodoNome, err = s.Configuracoes.MetodoAssinaturaPadrao(tx)
			if err != nil {
				return err
			}
		}

		agora := s.Agora()
		metodo, metadados, err := s.Dispatcher.Validar(metodoNome, c, entrada, agora)
		if err != nil {
			return err
		}
		if info, ok := metadados["certificate_info"]; ok {
			if b, err := json.Marshal(info); err == nil {
				c.InfoCertificado = b
			}
		}

		// Sem o artefato original não há o que assinar: falha fatal.
		original, err := s.Armazem.Buscar(ctx, cid)
		if err != nil {
			return erros.Armazenamento("artefato original indisponível para assinatura", err)
		}

		prova, err := metodo.Prova(original, entrada)
		if err != nil {
			return err
		}
		cidAssinado, err := s.Pipeline.PublicarAssinado(ctx, c.ID, original, documento.BlocoAssinatura{
			Email:  entrada.EmailSignatario,
			Metodo: metodoNome,
			Quando: agora,
			Prova:  prova,
		})
		if err != nil {
			return err
		}

		metadadosJSON, err := json.Marshal(metadados)
		if err != nil {
			return err
		}

		txHash, errLedger := s.Ledger.AssinarContrato(ctx, c.ID, cid, cidAssinado, string(metadadosJSON))
		if errLedger != nil {
			slog.Warn("assinatura não atestada no ledger, agendada para reconciliação",
				"contrato", c.ID, "err", errLedger)
			c.LedgerTx = nil
		} else {
			c.LedgerTx = &txHash
		}

		if err := c.Assinar(cidAssinado, metodoNome, metadadosJSON, agora); err != nil {
			return err
		}
		return s.Contratos.Atualizar(tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Cancelar encerra um contrato ainda em rascunho.
func (s *Servico) Cancelar(ctx context.Context, cid string) (*contrato.Contrato, error) {
	var c *contrato.Contrato
	err := s.Transacao(func(tx *gorm.DB) error {
		var err error
		c, err = s.Contratos.BuscarPorCIDInicialParaAtualizar(tx, cid)
		if err != nil {
			return err
		}
		if err := c.Cancelar(); err != nil {
			return err
		}
		if txHash, err := s.Ledger.CancelarContrato(ctx, c.ID); err != nil {
			slog.Warn("cancelamento não atestado no ledger", "contrato", c.ID, "err", err)
		} else {
			c.LedgerTx = &txHash
		}
		return s.Contratos.Atualizar(tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
