package configuracao

import (
	"errors"

	"gorm.io/gorm"

	"github.com/tintaforte/api-contratos/internal/contrato"
	errs "github.com/tintaforte/api-contratos/internal/erros"
)

type Repository interface {
	BuscarValor(db *gorm.DB, chave, padrao string) (string, error)
	DefinirValor(db *gorm.DB, chave, valor string) error
	MetodoAssinaturaPadrao(db *gorm.DB) (string, error)
	DefinirMetodoAssinaturaPadrao(db *gorm.DB, metodo string) error
}

type repositoryImpl struct{}

func NewRepository() Repository {
	return &repositoryImpl{}
}

// BuscarValor devolve o valor da chave, ou o padrão quando ela não existe.
func (r *repositoryImpl) BuscarValor(db *gorm.DB, chave, padrao string) (string, error) {
	var c Configuracao
	err := db.Where("chave = ?", chave).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return padrao, nil
	}
	if err != nil {
		return "", err
	}
	return c.Valor, nil
}

// DefinirValor cria ou sobrescreve a chave (last-writer-wins).
func (r *repositoryImpl) DefinirValor(db *gorm.DB, chave, valor string) error {
	var c Configuracao
	err := db.Where("chave = ?", chave).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&Configuracao{Chave: chave, Valor: valor}).Error
	}
	if err != nil {
		return err
	}
	c.Valor = valor
	return db.Save(&c).Error
}

func (r *repositoryImpl) MetodoAssinaturaPadrao(db *gorm.DB) (string, error) {
	return r.BuscarValor(db, ChaveMetodoAssinaturaPadrao, contrato.MetodoClickOnly)
}

func (r *repositoryImpl) DefinirMetodoAssinaturaPadrao(db *gorm.DB, metodo string) error {
	if !contrato.MetodoValido(metodo) {
		return errs.Validacao("método de assinatura inválido: " + metodo)
	}
	return r.DefinirValor(db, ChaveMetodoAssinaturaPadrao, metodo)
}
