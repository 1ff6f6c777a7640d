package contrato

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	errs "github.com/tintaforte/api-contratos/internal/erros"
)

type Repository interface {
	Criar(db *gorm.DB, c *Contrato) error
	Atualizar(db *gorm.DB, c *Contrato) error
	BuscarPorID(db *gorm.DB, id uint) (*Contrato, error)
	BuscarPorCIDInicial(db *gorm.DB, cid string) (*Contrato, error)
	BuscarPorCID(db *gorm.DB, cid string) (*Contrato, error)
	BuscarPorCIDInicialParaAtualizar(db *gorm.DB, cid string) (*Contrato, error)
	BuscarPorToken(db *gorm.DB, token string) (*Contrato, error)
	ListarAssinadosEmAndamento(db *gorm.DB) ([]Contrato, error)
	ListarSemLedgerTx(db *gorm.DB) ([]Contrato, error)
	CriarAjuste(db *gorm.DB, a *AjusteDuracao) error
	ListarAjustes(db *gorm.DB, contratoID uint) ([]AjusteDuracao, error)
}

type repositoryImpl struct{}

func NewRepository() Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) Criar(db *gorm.DB, c *Contrato) error {
	return db.Create(c).Error
}

func (r *repositoryImpl) Atualizar(db *gorm.DB, c *Contrato) error {
	return db.Save(c).Error
}

func (r *repositoryImpl) BuscarPorID(db *gorm.DB, id uint) (*Contrato, error) {
	var c Contrato
	err := db.Preload("Ajustes").First(&c, id).Error
	return &c, traduzErro(err)
}

func (r *repositoryImpl) BuscarPorCIDInicial(db *gorm.DB, cid string) (*Contrato, error) {
	var c Contrato
	err := db.Where("cid_inicial = ?", cid).First(&c).Error
	return &c, traduzErro(err)
}

// BuscarPorCID localiza pelo CID inicial ou pelo assinado.
func (r *repositoryImpl) BuscarPorCID(db *gorm.DB, cid string) (*Contrato, error) {
	var c Contrato
	err := db.Where("cid_inicial = ? OR cid_assinado = ?", cid, cid).First(&c).Error
	return &c, traduzErro(err)
}

// BuscarPorCIDInicialParaAtualizar trava a linha (FOR UPDATE) para serializar
// operações concorrentes sobre o mesmo contrato.
func (r *repositoryImpl) BuscarPorCIDInicialParaAtualizar(db *gorm.DB, cid string) (*Contrato, error) {
	var c Contrato
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cid_inicial = ?", cid).First(&c).Error
	return &c, traduzErro(err)
}

func (r *repositoryImpl) BuscarPorToken(db *gorm.DB, token string) (*Contrato, error) {
	var c Contrato
	err := db.Where("token_email = ?", token).First(&c).Error
	return &c, traduzErro(err)
}

// ListarAssinadosEmAndamento devolve contratos assinados cujo período
// previsto já começou (alvo do job diário de ajuste).
func (r *repositoryImpl) ListarAssinadosEmAndamento(db *gorm.DB) ([]Contrato, error) {
	var list []Contrato
	err := db.Where("status = ? AND data_inicio_prevista <= NOW()", StatusAssinado).Find(&list).Error
	return list, err
}

// ListarSemLedgerTx devolve contratos com documento publicado mas sem
// atestação no ledger — candidatos da varredura de reconciliação.
func (r *repositoryImpl) ListarSemLedgerTx(db *gorm.DB) ([]Contrato, error) {
	var list []Contrato
	err := db.Where("ledger_tx IS NULL AND cid_inicial <> '' AND status <> ?", StatusCancelado).Find(&list).Error
	return list, err
}

func (r *repositoryImpl) CriarAjuste(db *gorm.DB, a *AjusteDuracao) error {
	return db.Create(a).Error
}

func (r *repositoryImpl) ListarAjustes(db *gorm.DB, contratoID uint) ([]AjusteDuracao, error) {
	var list []AjusteDuracao
	err := db.Where("contrato_id = ?", contratoID).Order("created_at ASC").Find(&list).Error
	return list, err
}

func traduzErro(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NaoEncontrado("contrato não encontrado")
	}
	return err
}
