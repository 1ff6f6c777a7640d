package contrato

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tintaforte/api-contratos/internal/erros"
)

// Status do ciclo de vida do contrato. As transições são monotônicas,
// exceto o cancelamento, permitido apenas a partir de rascunho.
const (
	StatusRascunho             = "draft"
	StatusAguardandoAssinatura = "pending_signature"
	StatusAssinado             = "signed"
	StatusCancelado            = "cancelled"
)

// Métodos de assinatura suportados. Exatamente um se aplica por assinatura.
const (
	MetodoClickOnly  = "signature_click_only"
	MetodoTokenEmail = "signature_token_email"
	MetodoICPUpload  = "signature_icp_upload"
	MetodoICPDireto  = "signature_icp_direct"
)

// MetodosValidos lista os métodos aceitos, na ordem de apresentação.
var MetodosValidos = []string{MetodoClickOnly, MetodoTokenEmail, MetodoICPUpload, MetodoICPDireto}

func MetodoValido(m string) bool {
	for _, v := range MetodosValidos {
		if v == m {
			return true
		}
	}
	return false
}

// Local é o endereço estruturado mais coordenadas da obra.
type Local struct {
	Endereco string  `json:"endereco"`
	Cidade   string  `json:"cidade"`
	Estado   string  `json:"estado"`
	Pais     string  `json:"pais"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// Contrato é a raiz do agregado: o estado autoritativo vive no banco
// relacional, o documento imutável no armazenamento por conteúdo e as
// atestações no ledger. CIDAssinado preenchido ⇔ Status == signed.
type Contrato struct {
	gorm.Model

	CriadorID uint   `gorm:"not null;index" json:"criadorId"`
	Titulo    string `gorm:"size:255;not null" json:"titulo"`
	Descricao string `json:"descricao"`
	Local     Local  `gorm:"type:jsonb;serializer:json" json:"local"`

	DataInicioPrevista  time.Time `gorm:"not null" json:"dataInicioPrevista"`
	DuracaoPrevistaDias int       `gorm:"not null" json:"duracaoPrevistaDias"`
	DuracaoAjustadaDias *int      `json:"duracaoAjustadaDias,omitempty"`

	ContratanteNome  string `gorm:"size:100;not null" json:"contratanteNome"`
	ContratanteEmail string `gorm:"size:120;not null" json:"contratanteEmail"`
	PrestadorNome    string `gorm:"size:100;not null" json:"prestadorNome"`
	PrestadorEmail   string `gorm:"size:120;not null" json:"prestadorEmail"`

	Valor          float64 `gorm:"not null" json:"valor"`
	FormaPagamento string  `gorm:"size:50;not null" json:"formaPagamento"`

	CIDInicial  string  `gorm:"size:255;index" json:"cidInicial"`
	CIDAssinado *string `gorm:"size:255;index" json:"cidAssinado,omitempty"`
	Status      string  `gorm:"size:20;default:draft" json:"status"`

	DataAssinatura      *time.Time     `json:"dataAssinatura,omitempty"`
	MetodoAssinatura    string         `gorm:"size:50" json:"metodoAssinatura,omitempty"`
	MetadadosAssinatura datatypes.JSON `json:"metadadosAssinatura,omitempty"`
	TokenEmail          *string        `gorm:"size:512" json:"-"`
	TokenExpira         *time.Time     `json:"-"`
	InfoCertificado     datatypes.JSON `json:"infoCertificado,omitempty"`

	// Referência da transação no ledger; nula quando a escrita falhou e a
	// reconciliação ainda não reaplicou o registro.
	LedgerTx *string `gorm:"size:255" json:"ledgerTx,omitempty"`

	Ajustes []AjusteDuracao `gorm:"foreignKey:ContratoID" json:"ajustes,omitempty"`
}

// AjusteDuracao é a trilha de auditoria, apenas-inserção, de toda mudança
// de duração. Nunca é alterada depois de criada.
type AjusteDuracao struct {
	gorm.Model

	ContratoID      uint   `gorm:"not null;index" json:"contratoId"`
	DuracaoOriginal int    `gorm:"not null" json:"duracaoOriginal"`
	DuracaoAjustada int    `gorm:"not null" json:"duracaoAjustada"`
	Motivo          string `gorm:"size:512;not null" json:"motivo"`

	// Evidência opcional: previsão/inferência que produziu o ajuste.
	PrevisaoID *uint `json:"previsaoId,omitempty"`

	OverrideHumano bool   `json:"overrideHumano"`
	MotivoOverride string `gorm:"size:512" json:"motivoOverride,omitempty"`
}

// DuracaoVigente devolve a duração ajustada quando há uma, senão a prevista.
func (c *Contrato) DuracaoVigente() int {
	if c.DuracaoAjustadaDias != nil {
		return *c.DuracaoAjustadaDias
	}
	return c.DuracaoPrevistaDias
}

// EhParte verifica se o email pertence a uma das duas partes do contrato.
func (c *Contrato) EhParte(email string) bool {
	return email == c.ContratanteEmail || email == c.PrestadorEmail
}

// AjustarDuracao aplica uma nova duração e devolve o registro de auditoria.
// A duração ajustada nunca encolhe abaixo da prevista.
func (c *Contrato) AjustarDuracao(novaDuracao int, motivo string, previsaoID *uint) (*AjusteDuracao, error) {
	if novaDuracao < c.DuracaoPrevistaDias {
		return nil, erros.Validacao("duração ajustada não pode ser menor que a prevista")
	}
	ajuste := &AjusteDuracao{
		ContratoID:      c.ID,
		DuracaoOriginal: c.DuracaoVigente(),
		DuracaoAjustada: novaDuracao,
		Motivo:          motivo,
		PrevisaoID:      previsaoID,
	}
	c.DuracaoAjustadaDias = &novaDuracao
	return ajuste, nil
}

// SolicitarAssinatura move o contrato para pending_signature.
func (c *Contrato) SolicitarAssinatura() error {
	switch c.Status {
	case StatusRascunho, StatusAguardandoAssinatura:
		c.Status = StatusAguardandoAssinatura
		return nil
	default:
		return erros.Conflito("contrato não pode receber solicitação de assinatura no status " + c.Status)
	}
}

// Assinar finaliza o contrato com o CID assinado e os metadados do método.
func (c *Contrato) Assinar(cidAssinado, metodo string, metadados datatypes.JSON, quando time.Time) error {
	if c.Status == StatusAssinado {
		return erros.Conflito("contrato já está assinado")
	}
	if c.Status == StatusCancelado {
		return erros.Conflito("contrato cancelado não pode ser assinado")
	}
	c.Status = StatusAssinado
	c.CIDAssinado = &cidAssinado
	c.MetodoAssinatura = metodo
	c.MetadadosAssinatura = metadados
	c.DataAssinatura = &quando
	return nil
}

// Cancelar só é permitido em rascunho: solicitações de assinatura já
// emitidas não podem ser invalidadas.
func (c *Contrato) Cancelar() error {
	if c.Status != StatusRascunho {
		return erros.Conflito("apenas contratos em rascunho podem ser cancelados")
	}
	c.Status = StatusCancelado
	return nil
}

// DefinirToken guarda o token de verificação por email e sua expiração.
func (c *Contrato) DefinirToken(token string, expira time.Time) {
	c.TokenEmail = &token
	c.TokenExpira = &expira
}
