package previsao

import "gorm.io/gorm"

type Repository interface {
	Criar(db *gorm.DB, p *Previsao) error
	Atualizar(db *gorm.DB, p *Previsao) error
	BuscarPorContrato(db *gorm.DB, contratoID uint) (*Previsao, error)
}

type repositoryImpl struct{}

func NewRepository() Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) Criar(db *gorm.DB, p *Previsao) error {
	return db.Create(p).Error
}

func (r *repositoryImpl) Atualizar(db *gorm.DB, p *Previsao) error {
	return db.Save(p).Error
}

func (r *repositoryImpl) BuscarPorContrato(db *gorm.DB, contratoID uint) (*Previsao, error) {
	var p Previsao
	err := db.Where("contrato_id = ?", contratoID).First(&p).Error
	return &p, err
}
