package configuracao

import "time"

// Configuracao é o par chave/valor global do processo (last-writer-wins).
type Configuracao struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Chave     string    `gorm:"size:255;uniqueIndex;not null" json:"chave"`
	Valor     string    `gorm:"not null" json:"valor"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Configuracao) TableName() string { return "configuracoes" }

// ChaveMetodoAssinaturaPadrao é a chave do método de assinatura padrão.
const ChaveMetodoAssinaturaPadrao = "default_signature_method"
