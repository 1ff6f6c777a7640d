package previsao

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tintaforte/api-contratos/internal/clima"
	"github.com/tintaforte/api-contratos/internal/contrato"
)

// Previsao guarda, um-para-um com o contrato, a janela de previsão usada na
// geração e os resultados da inferência. Atualizada pelo job diário, nunca
// removida.
type Previsao struct {
	gorm.Model

	ContratoID uint          `gorm:"not null;uniqueIndex" json:"contratoId"`
	Local      contrato.Local `gorm:"type:jsonb;serializer:json" json:"local"`
	DataInicio time.Time     `gorm:"not null" json:"dataInicio"`
	DataFim    time.Time     `gorm:"not null" json:"dataFim"`

	// Resposta bruta do provedor e os dias já processados.
	DadosBrutos  datatypes.JSON      `json:"dadosBrutos,omitempty"`
	DiasPrevisao []clima.DiaPrevisao `gorm:"type:jsonb;serializer:json" json:"diasPrevisao,omitempty"`

	ProbChuva          float64 `json:"probChuva"`
	AtrasoPrevistoDias int     `json:"atrasoPrevistoDias"`
	DuracaoOriginal    int     `gorm:"not null" json:"duracaoOriginal"`
	DuracaoAjustada    *int    `json:"duracaoAjustada,omitempty"`

	Confianca         float64        `json:"confianca"`
	VersaoModelo      string         `gorm:"size:50" json:"versaoModelo,omitempty"`
	MetadadosPredicao datatypes.JSON `json:"metadadosPredicao,omitempty"`
}

// AtualizarPredicao grava o resultado de uma inferência sobre a previsão.
func (p *Previsao) AtualizarPredicao(probChuva float64, atrasoDias, duracaoAjustada int,
	confianca float64, versaoModelo string, metadados datatypes.JSON) {
	p.ProbChuva = probChuva
	p.AtrasoPrevistoDias = atrasoDias
	p.DuracaoAjustada = &duracaoAjustada
	p.Confianca = confianca
	p.VersaoModelo = versaoModelo
	p.MetadadosPredicao = metadados
}
